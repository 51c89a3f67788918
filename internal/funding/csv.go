package funding

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Entry is one funding opportunity from a grants.gov CSV export.
type Entry struct {
	Title       string
	Description string
	Link        string

	CloseDate    time.Time
	HasCloseDate bool
}

// closeDateLayout is the grants.gov export format (MM/DD/YYYY).
const closeDateLayout = "01/02/2006"

// expected column headers in the export
const (
	colTitle       = "OPPORTUNITY TITLE"
	colDescription = "FUNDING DESCRIPTION"
	colCloseDate   = "CLOSE DATE"
	colNumber      = "OPPORTUNITY NUMBER"
)

// ParseCSV reads a grants.gov opportunity export. Rows with an unparseable
// close date are kept with HasCloseDate unset; the filter drops them later.
func ParseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.ToUpper(name))] = i
	}
	titleIdx, ok := col[colTitle]
	if !ok {
		return nil, fmt.Errorf("CSV missing %q column", colTitle)
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if titleIdx >= len(record) || strings.TrimSpace(record[titleIdx]) == "" {
			continue
		}

		entry := Entry{
			Title:       field(record, colTitle),
			Description: field(record, colDescription),
			Link:        extractHyperlink(field(record, colNumber)),
		}
		if raw := field(record, colCloseDate); raw != "" {
			if t, err := time.Parse(closeDateLayout, raw); err == nil {
				entry.CloseDate = t
				entry.HasCloseDate = true
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// extractHyperlink pulls the URL out of an Excel HYPERLINK() formula, e.g.
// `=HYPERLINK("https://grants.gov/search?oppId=123","OPP-123")`. Plain
// values pass through unchanged.
func extractHyperlink(s string) string {
	if !strings.Contains(s, `"`) {
		return s
	}
	parts := strings.Split(s, `"`)
	if len(parts) < 2 {
		return s
	}
	return parts[1]
}
