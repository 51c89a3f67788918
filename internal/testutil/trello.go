package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sommerlab/boardsync/internal/trello"
)

// FakeTrello is an in-memory Trello workspace implementing the client
// interfaces the jobs consume. Every mutating call bumps Mutations so tests
// can assert the dry-run invariant (plan computed, nothing touched).
type FakeTrello struct {
	mu     sync.Mutex
	nextID int

	ListsByBoard map[string][]trello.List
	CardsByID    map[string]*trello.Card
	Checklists   map[string][]trello.Checklist // by card ID
	Attachments  map[string][]string           // by card ID
	Members      map[string][]string           // by card ID
	LabelIDs     map[string][]string           // by card ID
	Comments     map[string][]string           // by card ID

	// FailCreateCard fails CreateCard for cards with a matching name.
	FailCreateCard map[string]error
	// FailUpdateCard fails UpdateCard for matching card IDs.
	FailUpdateCard map[string]error

	Mutations int
}

// NewFakeTrello creates an empty fake workspace.
func NewFakeTrello() *FakeTrello {
	return &FakeTrello{
		ListsByBoard: map[string][]trello.List{},
		CardsByID:    map[string]*trello.Card{},
		Checklists:   map[string][]trello.Checklist{},
		Attachments:  map[string][]string{},
		Members:      map[string][]string{},
		LabelIDs:     map[string][]string{},
		Comments:     map[string][]string{},
	}
}

func (f *FakeTrello) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// SeedList adds a list to a board and returns its ID.
func (f *FakeTrello) SeedList(boardID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID("list")
	f.ListsByBoard[boardID] = append(f.ListsByBoard[boardID], trello.List{
		ID: id, Name: name, IDBoard: boardID,
	})
	return id
}

// SeedCard adds a card and returns its ID. The card must carry IDList and
// IDBoard.
func (f *FakeTrello) SeedCard(card trello.Card) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.ID == "" {
		card.ID = f.newID("card")
	}
	c := card
	f.CardsByID[c.ID] = &c
	return c.ID
}

// SeedChecklist attaches a checklist to a card.
func (f *FakeTrello) SeedChecklist(cardID string, cl trello.Checklist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cl.ID == "" {
		cl.ID = f.newID("checklist")
	}
	f.Checklists[cardID] = append(f.Checklists[cardID], cl)
}

// Card returns a copy of a stored card.
func (f *FakeTrello) Card(id string) (trello.Card, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.CardsByID[id]
	if !ok {
		return trello.Card{}, false
	}
	return *c, true
}

// CardsOnList returns the open cards on a list, sorted by name.
func (f *FakeTrello) CardsOnList(listID string) []trello.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trello.Card
	for _, c := range f.CardsByID {
		if c.IDList == listID && !c.Closed {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BoardLists implements the board listing read.
func (f *FakeTrello) BoardLists(ctx context.Context, boardID string) ([]trello.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trello.List(nil), f.ListsByBoard[boardID]...), nil
}

// BoardCards returns the open cards on a board.
func (f *FakeTrello) BoardCards(ctx context.Context, boardID string) ([]trello.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trello.Card
	for _, c := range f.CardsByID {
		if c.IDBoard == boardID && !c.Closed {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListCards returns the open cards on a list.
func (f *FakeTrello) ListCards(ctx context.Context, listID string) ([]trello.Card, error) {
	return f.CardsOnList(listID), nil
}

// CardChecklists returns the checklists seeded for a card.
func (f *FakeTrello) CardChecklists(ctx context.Context, cardID string) ([]trello.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trello.Checklist(nil), f.Checklists[cardID]...), nil
}

// GetOrCreateList matches caselessly, creating the list when missing.
func (f *FakeTrello) GetOrCreateList(ctx context.Context, boardID, name string) (*trello.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := trello.NormalizeName(name)
	for _, l := range f.ListsByBoard[boardID] {
		if trello.NormalizeName(l.Name) == want {
			l := l
			return &l, nil
		}
	}
	f.Mutations++
	list := trello.List{ID: f.newID("list"), Name: name, IDBoard: boardID}
	f.ListsByBoard[boardID] = append(f.ListsByBoard[boardID], list)
	return &list, nil
}

// CreateCard creates a card on a list.
func (f *FakeTrello) CreateCard(ctx context.Context, req trello.CardRequest) (*trello.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailCreateCard[req.Name]; err != nil {
		return nil, err
	}
	f.Mutations++
	card := trello.Card{
		ID:     f.newID("card"),
		Name:   req.Name,
		Desc:   req.Desc,
		Due:    req.Due,
		IDList: req.IDList,
	}
	for _, lists := range f.ListsByBoard {
		for _, l := range lists {
			if l.ID == req.IDList {
				card.IDBoard = l.IDBoard
			}
		}
	}
	f.CardsByID[card.ID] = &card
	return &card, nil
}

// UpdateCard applies a partial update.
func (f *FakeTrello) UpdateCard(ctx context.Context, cardID string, patch trello.CardPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailUpdateCard[cardID]; err != nil {
		return err
	}
	card, ok := f.CardsByID[cardID]
	if !ok {
		return fmt.Errorf("fake trello: no card %q", cardID)
	}
	f.Mutations++
	if patch.Name != nil {
		card.Name = *patch.Name
	}
	if patch.Desc != nil {
		card.Desc = *patch.Desc
	}
	if patch.ClearDue {
		card.Due = nil
	} else if patch.Due != nil {
		due := patch.Due.UTC()
		card.Due = &due
	}
	if patch.Closed != nil {
		card.Closed = *patch.Closed
	}
	if patch.IDList != nil {
		card.IDList = *patch.IDList
	}
	return nil
}

// AddAttachment records a URL attachment.
func (f *FakeTrello) AddAttachment(ctx context.Context, cardID, attachURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	f.Attachments[cardID] = append(f.Attachments[cardID], attachURL)
	return nil
}

// AddMember records a card member.
func (f *FakeTrello) AddMember(ctx context.Context, cardID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	f.Members[cardID] = append(f.Members[cardID], memberID)
	return nil
}

// AddLabel records a card label.
func (f *FakeTrello) AddLabel(ctx context.Context, cardID, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	f.LabelIDs[cardID] = append(f.LabelIDs[cardID], labelID)
	return nil
}

// CreateChecklist creates an empty checklist on a card.
func (f *FakeTrello) CreateChecklist(ctx context.Context, cardID, name string) (*trello.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	cl := trello.Checklist{ID: f.newID("checklist"), Name: name}
	f.Checklists[cardID] = append(f.Checklists[cardID], cl)
	return &cl, nil
}

// AddCheckItem appends an item to a checklist.
func (f *FakeTrello) AddCheckItem(ctx context.Context, checklistID, name string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	state := "incomplete"
	if checked {
		state = "complete"
	}
	for cardID, lists := range f.Checklists {
		for i, cl := range lists {
			if cl.ID == checklistID {
				f.Checklists[cardID][i].CheckItems = append(
					f.Checklists[cardID][i].CheckItems,
					trello.CheckItem{ID: f.newID("item"), Name: name, State: state},
				)
				return nil
			}
		}
	}
	return fmt.Errorf("fake trello: no checklist %q", checklistID)
}

// AddComment records a comment on a card.
func (f *FakeTrello) AddComment(ctx context.Context, cardID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations++
	f.Comments[cardID] = append(f.Comments[cardID], text)
	return nil
}
