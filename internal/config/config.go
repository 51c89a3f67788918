// Package config loads and validates the boardsync configuration.
//
// Non-secret settings come from a YAML file vetted against an embedded CUE
// schema. Secrets come exclusively from the environment (optionally via a
// .env file loaded by the CLI): SLACK_BOT_TOKEN, TRELLO_API_KEY,
// TRELLO_TOKEN, plus the DRY_RUN switch.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

//go:embed schema.cue
var schemaCUE string

// SlackConfig configures the inbox job's channel read.
type SlackConfig struct {
	ChannelID  string `yaml:"channel_id" json:"channel_id"`
	InboxLimit int    `yaml:"inbox_limit" json:"inbox_limit"`
}

// TrelloConfig names the boards the jobs operate on.
type TrelloConfig struct {
	InboxBoardID string `yaml:"inbox_board_id" json:"inbox_board_id"`
	GroomBoardID string `yaml:"groom_board_id" json:"groom_board_id"`
	OverdueDays  int    `yaml:"overdue_days" json:"overdue_days"`
}

// MirrorSource pairs a source board with its master-board list.
type MirrorSource struct {
	BoardID      string `yaml:"board_id" json:"board_id"`
	MasterListID string `yaml:"master_list_id" json:"master_list_id"`
}

// MirrorConfig configures the mirror job.
type MirrorConfig struct {
	MasterBoardID string         `yaml:"master_board_id" json:"master_board_id"`
	PriorityList  string         `yaml:"priority_list" json:"priority_list"`
	Threshold     float64        `yaml:"threshold" json:"threshold"`
	Sources       []MirrorSource `yaml:"sources" json:"sources"`
}

// FundingConfig configures the CSV import job.
type FundingConfig struct {
	BoardID      string   `yaml:"board_id" json:"board_id"`
	Keywords     []string `yaml:"keywords" json:"keywords"`
	MatchedList  string   `yaml:"matched_list" json:"matched_list"`
	FallbackList string   `yaml:"fallback_list" json:"fallback_list"`
}

// Config is the full boardsync configuration file.
type Config struct {
	StatePath string        `yaml:"state_path" json:"state_path"`
	Slack     SlackConfig   `yaml:"slack" json:"slack"`
	Trello    TrelloConfig  `yaml:"trello" json:"trello"`
	Mirror    MirrorConfig  `yaml:"mirror" json:"mirror"`
	Funding   FundingConfig `yaml:"funding" json:"funding"`
}

// applyDefaults fills unset fields before schema vetting.
func (c *Config) applyDefaults() {
	if c.StatePath == "" {
		c.StatePath = "boardsync.db"
	}
	if c.Slack.InboxLimit == 0 {
		c.Slack.InboxLimit = 5
	}
	if c.Trello.OverdueDays == 0 {
		c.Trello.OverdueDays = 3
	}
	if c.Mirror.PriorityList == "" {
		c.Mirror.PriorityList = "Priority IV"
	}
	if c.Mirror.Threshold == 0 {
		c.Mirror.Threshold = 0.75
	}
	if c.Mirror.Sources == nil {
		c.Mirror.Sources = []MirrorSource{}
	}
	if c.Funding.Keywords == nil {
		c.Funding.Keywords = []string{}
	}
	if c.Funding.MatchedList == "" {
		c.Funding.MatchedList = "Semi-Filtered"
	}
	if c.Funding.FallbackList == "" {
		c.Funding.FallbackList = "Dummy List"
	}
}

// Load reads, defaults, and vets a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &reconcile.Error{
			Code:    reconcile.CodeConfig,
			Message: fmt.Sprintf("reading config %s", path),
			Err:     err,
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &reconcile.Error{
			Code:    reconcile.CodeConfig,
			Message: fmt.Sprintf("parsing config %s", path),
			Err:     err,
		}
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func schemaPath() cue.Path {
	return cue.ParsePath("#Config")
}

// validate unifies the config with the embedded CUE schema.
func (c *Config) validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(schemaPath())
	if err := def.Err(); err != nil {
		return fmt.Errorf("looking up config schema: %w", err)
	}

	unified := def.Unify(ctx.Encode(c))
	if err := unified.Validate(); err != nil {
		var details []string
		for _, e := range cueerrors.Errors(err) {
			details = append(details, e.Error())
		}
		return &reconcile.Error{
			Code:    reconcile.CodeConfig,
			Message: "config violates schema: " + strings.Join(details, "; "),
		}
	}
	return nil
}

// Secrets carries the API credentials read from the environment.
type Secrets struct {
	SlackToken  string
	TrelloKey   string
	TrelloToken string
}

// LoadSecrets reads credentials from the environment. Presence is checked by
// the commands that need each credential, not here: the groom job has no use
// for a Slack token.
func LoadSecrets() Secrets {
	return Secrets{
		SlackToken:  os.Getenv("SLACK_BOT_TOKEN"),
		TrelloKey:   os.Getenv("TRELLO_API_KEY"),
		TrelloToken: os.Getenv("TRELLO_TOKEN"),
	}
}

// RequireTrello errors unless both Trello credentials are set.
func (s Secrets) RequireTrello() error {
	if s.TrelloKey == "" || s.TrelloToken == "" {
		return reconcile.Authf("TRELLO_API_KEY and TRELLO_TOKEN must be set")
	}
	return nil
}

// RequireSlack errors unless the Slack token is set.
func (s Secrets) RequireSlack() error {
	if s.SlackToken == "" {
		return reconcile.Authf("SLACK_BOT_TOKEN must be set")
	}
	return nil
}

// ParseDryRun interprets the DRY_RUN environment variable. Empty means off;
// anything other than true/false (caseless) is a config error.
func ParseDryRun(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, reconcile.Configf("DRY_RUN must be \"true\" or \"false\", got %q", value)
	}
}
