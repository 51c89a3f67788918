package funding

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `OPPORTUNITY NUMBER,OPPORTUNITY TITLE,FUNDING DESCRIPTION,CLOSE DATE
"=HYPERLINK(""https://grants.gov/opp/1"",""OPP-1"")",Neural Imaging Grant,Support for neural imaging research.,09/15/2025
OPP-2,Marine Biology Fellowship,Coastal ecosystems fieldwork.,08/01/2025
OPP-3,Undated Opportunity,No close date given.,
OPP-4,Bad Date Opportunity,Close date malformed.,late summer
`

func TestParseCSV(t *testing.T) {
	entries, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	first := entries[0]
	assert.Equal(t, "Neural Imaging Grant", first.Title)
	assert.Equal(t, "Support for neural imaging research.", first.Description)
	assert.Equal(t, "https://grants.gov/opp/1", first.Link, "link extracted from HYPERLINK formula")
	require.True(t, first.HasCloseDate)
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), first.CloseDate)

	second := entries[1]
	assert.Equal(t, "OPP-2", second.Link, "plain opportunity numbers pass through")

	assert.False(t, entries[2].HasCloseDate)
	assert.False(t, entries[3].HasCloseDate, "malformed close date is dropped, not an error")
}

func TestParseCSV_SkipsBlankTitleRows(t *testing.T) {
	csv := "OPPORTUNITY TITLE,CLOSE DATE\n,01/01/2026\nReal Grant,01/01/2026\n"
	entries, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Real Grant", entries[0].Title)
}

func TestParseCSV_MissingTitleColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("SOMETHING ELSE\nvalue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPPORTUNITY TITLE")
}

func TestMatchesKeywords(t *testing.T) {
	entry := Entry{Title: "Neural Imaging Grant", Description: "Support for BRAIN research."}

	assert.True(t, matchesKeywords(entry, []string{"neural"}))
	assert.True(t, matchesKeywords(entry, []string{"brain"}), "matching is caseless")
	assert.False(t, matchesKeywords(entry, []string{"marine"}))
	assert.False(t, matchesKeywords(entry, []string{"", "  "}), "blank keywords never match")
}
