package inbox

import (
	"regexp"
	"strings"
)

// govDomainRE matches .gov hostnames mentioned anywhere in a line, e.g.
// "grants.gov" or "www.nsf.gov". They become https attachment URLs.
var govDomainRE = regexp.MustCompile(`([\w.-]+\.gov)`)

// Entry is one card parsed from a funding message.
type Entry struct {
	Title       string
	Description string
	Attachments []string
}

// ParsedMessage is the structured form of a funding channel message.
//
// The channel convention: the first line names the Trello list, each
// unindented line starts a new card, and indented lines belong to the
// current card's description. Any .gov domain in a description line is
// extracted as an attachment link.
type ParsedMessage struct {
	ListTitle string
	Entries   []Entry
}

// ParseFundingMessage parses a funding message. Blank lines are ignored.
// Returns a message with no entries when the text only contains a title.
func ParseFundingMessage(text string) ParsedMessage {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	if len(lines) == 0 {
		return ParsedMessage{}
	}

	parsed := ParsedMessage{ListTitle: strings.TrimSpace(lines[0])}

	var current *Entry
	var descLines []string

	flush := func() {
		if current != nil {
			current.Description = strings.Join(descLines, "\n")
			parsed.Entries = append(parsed.Entries, *current)
		}
		current = nil
		descLines = nil
	}

	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			flush()
			current = &Entry{Title: strings.TrimSpace(line)}
			continue
		}
		if current == nil {
			continue
		}

		stripped := strings.TrimSpace(line)
		for _, domain := range govDomainRE.FindAllString(stripped, -1) {
			link := "https://" + domain
			if !contains(current.Attachments, link) {
				current.Attachments = append(current.Attachments, link)
			}
		}
		descLines = append(descLines, stripped)
	}
	flush()

	return parsed
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
