package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

const validYAML = `
state_path: /var/lib/boardsync/state.db
slack:
  channel_id: C093Y4SS3TN
  inbox_limit: 10
trello:
  inbox_board_id: board-inbox
  groom_board_id: board-papers
mirror:
  master_board_id: board-master
  sources:
    - board_id: board-props
      master_list_id: list-props
funding:
  board_id: board-funding
  keywords: [neural, imaging]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boardsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/boardsync/state.db", cfg.StatePath)
	assert.Equal(t, "C093Y4SS3TN", cfg.Slack.ChannelID)
	assert.Equal(t, 10, cfg.Slack.InboxLimit)
	require.Len(t, cfg.Mirror.Sources, 1)
	assert.Equal(t, "board-props", cfg.Mirror.Sources[0].BoardID)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "trello:\n  groom_board_id: b1\n"))
	require.NoError(t, err)

	assert.Equal(t, "boardsync.db", cfg.StatePath)
	assert.Equal(t, 5, cfg.Slack.InboxLimit)
	assert.Equal(t, 3, cfg.Trello.OverdueDays)
	assert.Equal(t, "Priority IV", cfg.Mirror.PriorityList)
	assert.InDelta(t, 0.75, cfg.Mirror.Threshold, 1e-9)
	assert.Equal(t, "Semi-Filtered", cfg.Funding.MatchedList)
	assert.Equal(t, "Dummy List", cfg.Funding.FallbackList)
}

func TestLoad_SchemaViolationIsConfigError(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "mirror:\n  threshold: 1.5\n"},
		{"negative overdue days", "trello:\n  overdue_days: -1\n"},
		{"inbox limit too large", "slack:\n  inbox_limit: 500\n"},
		{"mirror source missing list", "mirror:\n  sources:\n    - board_id: b1\n      master_list_id: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Equal(t, reconcile.CodeConfig, reconcile.CodeOf(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, reconcile.CodeConfig, reconcile.CodeOf(err))
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "slack: [not: a: map\n"))
	require.Error(t, err)
	assert.Equal(t, reconcile.CodeConfig, reconcile.CodeOf(err))
}

func TestParseDryRun(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"false", false, false},
		{"true", true, false},
		{"TRUE", true, false},
		{" True ", true, false},
		{"yes", false, true},
		{"1", false, true},
	}
	for _, tt := range tests {
		t.Run("value "+tt.in, func(t *testing.T) {
			got, err := ParseDryRun(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, reconcile.CodeConfig, reconcile.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecrets_Require(t *testing.T) {
	full := Secrets{SlackToken: "xoxb", TrelloKey: "k", TrelloToken: "t"}
	assert.NoError(t, full.RequireSlack())
	assert.NoError(t, full.RequireTrello())

	missing := Secrets{TrelloKey: "k"}
	err := missing.RequireTrello()
	require.Error(t, err)
	assert.Equal(t, reconcile.CodeAuth, reconcile.CodeOf(err))

	err = missing.RequireSlack()
	require.Error(t, err)
	assert.Equal(t, reconcile.CodeAuth, reconcile.CodeOf(err))
}
