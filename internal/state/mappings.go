package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Mapping links one upstream source record to the destination card a job
// created for it.
type Mapping struct {
	Job         string
	SourceID    string
	CardID      string
	ContentHash string
	SyncedAt    time.Time
}

// PutMapping inserts or refreshes a source→card mapping.
//
// ON CONFLICT(job, source_id) DO UPDATE keeps repeated and overlapping runs
// idempotent: a second write for the same source record can only refresh the
// hash and timestamp, never produce a second row.
func (s *Store) PutMapping(ctx context.Context, m Mapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_mappings (job, source_id, card_id, content_hash, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job, source_id) DO UPDATE SET
			card_id = excluded.card_id,
			content_hash = excluded.content_hash,
			synced_at = excluded.synced_at
	`, m.Job, m.SourceID, m.CardID, m.ContentHash, m.SyncedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	return nil
}

// GetMapping returns the mapping for a source record, or (nil, nil) when the
// record has never been synced.
func (s *Store) GetMapping(ctx context.Context, job, sourceID string) (*Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job, source_id, card_id, content_hash, synced_at
		FROM card_mappings
		WHERE job = ? AND source_id = ?
	`, job, sourceID)

	m, err := scanMapping(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

// ListMappings returns every mapping recorded for a job, ordered by source ID
// for deterministic diffing.
func (s *Store) ListMappings(ctx context.Context, job string) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job, source_id, card_id, content_hash, synced_at
		FROM card_mappings
		WHERE job = ?
		ORDER BY source_id ASC
	`, job)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []Mapping
	for rows.Next() {
		m, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list mappings: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return out, nil
}

// DeleteMapping removes the mapping for a source record. Deleting a missing
// mapping is not an error.
func (s *Store) DeleteMapping(ctx context.Context, job, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM card_mappings WHERE job = ? AND source_id = ?
	`, job, sourceID)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

func scanMapping(scan func(dest ...any) error) (*Mapping, error) {
	var m Mapping
	var syncedAt string
	if err := scan(&m.Job, &m.SourceID, &m.CardID, &m.ContentHash, &syncedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, syncedAt)
	if err != nil {
		return nil, fmt.Errorf("parse synced_at %q: %w", syncedAt, err)
	}
	m.SyncedAt = t
	return &m, nil
}
