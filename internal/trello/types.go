package trello

import "time"

// Board is a Trello board.
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// List is a list (column) on a board.
type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IDBoard string `json:"idBoard"`
	Closed  bool   `json:"closed"`
}

// Label is a board label. The groom job matches on label names.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Attachment is a URL attachment on a card.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CheckItem is one entry in a checklist. State is "complete" or "incomplete".
type CheckItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Checklist is a checklist on a card.
type Checklist struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	CheckItems []CheckItem `json:"checkItems"`
}

// Card is a Trello card.
type Card struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Desc        string       `json:"desc"`
	Due         *time.Time   `json:"due"`
	Closed      bool         `json:"closed"`
	IDBoard     string       `json:"idBoard"`
	IDList      string       `json:"idList"`
	IDMembers   []string     `json:"idMembers"`
	IDLabels    []string     `json:"idLabels"`
	Labels      []Label      `json:"labels"`
	Attachments []Attachment `json:"attachments"`
}

// CompletionRatio returns the fraction of complete checklist items across
// all checklists, or 0 when there are no items.
func CompletionRatio(checklists []Checklist) float64 {
	total, done := 0, 0
	for _, cl := range checklists {
		for _, item := range cl.CheckItems {
			total++
			if item.State == "complete" {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
