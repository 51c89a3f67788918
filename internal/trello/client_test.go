package trello

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key", "test-token", WithBaseURL(srv.URL))
}

func TestClient_SendsCredentialsAsQueryParams(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]Board{})
	})

	_, err := c.MemberBoards(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotQuery.Get("key"))
	assert.Equal(t, "test-token", gotQuery.Get("token"))
}

func TestClient_UnauthorizedMapsToAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	})

	_, err := c.MemberBoards(context.Background())
	require.Error(t, err)
	assert.Equal(t, reconcile.CodeAuth, reconcile.CodeOf(err))
	assert.True(t, reconcile.IsFatal(err))
}

func TestClient_ServerErrorIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})

	_, err := c.MemberBoards(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestClient_RetriesOnceOn429(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]Card{{ID: "c1", Name: "A"}})
	})

	cards, err := c.ListCards(context.Background(), "list-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, cards, 1)
	assert.Equal(t, "c1", cards[0].ID)
}

func TestBoardCards_UsesOpenFilterPath(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]Card{})
	})

	_, err := c.BoardCards(context.Background(), "board-1")
	require.NoError(t, err)
	assert.Equal(t, "/boards/board-1/cards/open", gotPath)
	assert.Equal(t, "true", gotQuery.Get("attachments"))
}

func TestUpdateCard_ClearDueSendsNull(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte("{}"))
	})

	err := c.UpdateCard(context.Background(), "card-1", CardPatch{ClearDue: true})
	require.NoError(t, err)
	assert.Equal(t, "null", gotQuery.Get("due"))
}

func TestGetOrCreateList_FindsCaselessMatch(t *testing.T) {
	created := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET":
			json.NewEncoder(w).Encode([]List{{ID: "l1", Name: "Semi-Filtered"}})
		case r.Method == "POST":
			created = true
			json.NewEncoder(w).Encode(List{ID: "l2", Name: "new"})
		}
	})

	list, err := c.GetOrCreateList(context.Background(), "board-1", "  semi-filtered ")
	require.NoError(t, err)
	assert.Equal(t, "l1", list.ID)
	assert.False(t, created, "matching list must not be re-created")
}

func TestGetOrCreateList_CreatesWhenMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET":
			json.NewEncoder(w).Encode([]List{{ID: "l1", Name: "Other"}})
		case "POST":
			assert.Equal(t, "July Funding", r.URL.Query().Get("name"))
			assert.Equal(t, "bottom", r.URL.Query().Get("pos"))
			json.NewEncoder(w).Encode(List{ID: "l-new", Name: "July Funding"})
		}
	})

	list, err := c.GetOrCreateList(context.Background(), "board-1", "July Funding")
	require.NoError(t, err)
	assert.Equal(t, "l-new", list.ID)
}

func TestCompletionRatio(t *testing.T) {
	tests := []struct {
		name       string
		checklists []Checklist
		want       float64
	}{
		{"no checklists", nil, 0},
		{"empty checklist", []Checklist{{Name: "x"}}, 0},
		{
			"three of four complete",
			[]Checklist{{CheckItems: []CheckItem{
				{State: "complete"}, {State: "complete"}, {State: "complete"}, {State: "incomplete"},
			}}},
			0.75,
		},
		{
			"across checklists",
			[]Checklist{
				{CheckItems: []CheckItem{{State: "complete"}}},
				{CheckItems: []CheckItem{{State: "incomplete"}}},
			},
			0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CompletionRatio(tt.checklists), 1e-9)
		})
	}
}
