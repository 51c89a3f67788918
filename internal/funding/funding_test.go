package funding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/state"
	"github.com/sommerlab/boardsync/internal/testutil"
	"github.com/sommerlab/boardsync/internal/trello"
)

// July 2025: the 09/15 close date is open, 06/01 has passed.
var importDay = time.Date(2025, 7, 7, 9, 0, 0, 0, time.UTC)

const importCSV = `OPPORTUNITY NUMBER,OPPORTUNITY TITLE,FUNDING DESCRIPTION,CLOSE DATE
OPP-1,Neural Imaging Grant,Advanced neural imaging methods.,09/15/2025
OPP-2,Marine Survey Grant,Coastal survey work.,09/15/2025
OPP-3,Expired Grant,Closed long ago.,06/01/2025
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestReconciler(t *testing.T, csv string) (*Reconciler, *testutil.FakeTrello) {
	t.Helper()
	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ft := testutil.NewFakeTrello()
	r := &Reconciler{
		Trello:   ft,
		State:    st,
		BoardID:  "board-funding",
		CSVPath:  writeCSV(t, csv),
		Keywords: []string{"neural", "imaging"},
		Now:      testutil.NewClock(importDay).Now,
	}
	return r, ft
}

func run(t *testing.T, r *Reconciler, dryRun bool) *reconcile.RunResult {
	t.Helper()
	runner := &reconcile.Runner{}
	result, _, err := runner.Run(context.Background(), r, dryRun)
	require.NoError(t, err)
	return result
}

func listByName(t *testing.T, ft *testutil.FakeTrello, boardID, name string) trello.List {
	t.Helper()
	lists, err := ft.BoardLists(context.Background(), boardID)
	require.NoError(t, err)
	for _, l := range lists {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("no list named %q", name)
	return trello.List{}
}

func TestFunding_RoutesByKeywordAndDropsExpired(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)

	result := run(t, r, false)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped, "expired entry skipped")

	matched := ft.CardsOnList(listByName(t, ft, "board-funding", DefaultMatchedList).ID)
	require.Len(t, matched, 1)
	assert.Equal(t, "Neural Imaging Grant", matched[0].Name)
	assert.Contains(t, matched[0].Desc, "Link: OPP-1")
	require.NotNil(t, matched[0].Due)
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), matched[0].Due.UTC())

	fallback := ft.CardsOnList(listByName(t, ft, "board-funding", DefaultFallbackList).ID)
	require.Len(t, fallback, 1)
	assert.Equal(t, "Marine Survey Grant", fallback[0].Name)
}

func TestFunding_ReimportCreatesNothing(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)

	first := run(t, r, false)
	assert.Equal(t, 2, first.Created)

	second := run(t, r, false)
	assert.Equal(t, 0, second.Created)
	assert.Len(t, ft.CardsByID, 2)
}

// Cards placed on the list by hand (or before the state store existed) are
// deduped by title alone.
func TestFunding_ExistingTitleOnListDedupes(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)
	listID := ft.SeedList("board-funding", DefaultMatchedList)
	ft.SeedCard(trello.Card{Name: "NEURAL IMAGING GRANT", IDBoard: "board-funding", IDList: listID})

	result := run(t, r, false)

	assert.Equal(t, 1, result.Created, "only the marine grant is new")
	assert.Len(t, ft.CardsOnList(listID), 1)
}

func TestFunding_DryRunTouchesNothing(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)

	dry := run(t, r, true)
	assert.Equal(t, 2, dry.Created)
	assert.Equal(t, 0, ft.Mutations)

	wet := run(t, r, false)
	assert.Equal(t, dry.Created, wet.Created)
}

func TestFunding_MissingCSVIsFatal(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)
	r.CSVPath = filepath.Join(t.TempDir(), "missing.csv")

	runner := &reconcile.Runner{}
	_, _, err := runner.Run(context.Background(), r, false)
	require.Error(t, err)
	assert.True(t, reconcile.IsFatal(err))
	assert.Equal(t, 0, ft.Mutations)
}

func TestFunding_PartialFailureIsolation(t *testing.T) {
	r, ft := newTestReconciler(t, importCSV)
	ft.FailCreateCard = map[string]error{"Neural Imaging Grant": errors.New("api error")}

	result := run(t, r, false)

	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "OPP-1", result.Errors[0].ItemID)
	assert.True(t, result.Failed())
}
