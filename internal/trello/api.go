package trello

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// MemberBoards returns the boards visible to the authenticated member.
func (c *Client) MemberBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	if err := c.do(ctx, "GET", "members/me/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// BoardLists returns the open lists on a board.
func (c *Client) BoardLists(ctx context.Context, boardID string) ([]List, error) {
	var lists []List
	if err := c.do(ctx, "GET", "boards/"+boardID+"/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// BoardCards returns the open cards on a board, with attachments included.
func (c *Client) BoardCards(ctx context.Context, boardID string) ([]Card, error) {
	params := url.Values{}
	params.Set("attachments", "true")
	var cards []Card
	if err := c.do(ctx, "GET", "boards/"+boardID+"/cards/open", params, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// ListCards returns the cards on a list.
func (c *Client) ListCards(ctx context.Context, listID string) ([]Card, error) {
	var cards []Card
	if err := c.do(ctx, "GET", "lists/"+listID+"/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// CardChecklists returns the checklists on a card.
func (c *Client) CardChecklists(ctx context.Context, cardID string) ([]Checklist, error) {
	var checklists []Checklist
	if err := c.do(ctx, "GET", "cards/"+cardID+"/checklists", nil, &checklists); err != nil {
		return nil, err
	}
	return checklists, nil
}

// CreateList creates a list at the bottom of a board.
func (c *Client) CreateList(ctx context.Context, boardID, name string) (*List, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("idBoard", boardID)
	params.Set("pos", "bottom")
	var list List
	if err := c.do(ctx, "POST", "lists", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetOrCreateList returns the list with the given name on the board,
// creating it at the bottom when missing. Name matching is caseless.
func (c *Client) GetOrCreateList(ctx context.Context, boardID, name string) (*List, error) {
	lists, err := c.BoardLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	want := NormalizeName(name)
	for i := range lists {
		if NormalizeName(lists[i].Name) == want {
			return &lists[i], nil
		}
	}
	return c.CreateList(ctx, boardID, name)
}

// CardRequest holds the fields for creating a card.
type CardRequest struct {
	IDList string
	Name   string
	Desc   string
	Due    *time.Time
}

// CreateCard creates a card on a list.
func (c *Client) CreateCard(ctx context.Context, req CardRequest) (*Card, error) {
	params := url.Values{}
	params.Set("idList", req.IDList)
	params.Set("name", req.Name)
	params.Set("desc", req.Desc)
	if req.Due != nil {
		params.Set("due", req.Due.UTC().Format(time.RFC3339))
	}
	var card Card
	if err := c.do(ctx, "POST", "cards", params, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// CardPatch holds the mutable card fields for UpdateCard. Nil fields are
// left untouched. ClearDue removes the due date; a nil Due alone leaves it
// as is.
type CardPatch struct {
	Name     *string
	Desc     *string
	Due      *time.Time
	ClearDue bool
	Closed   *bool
	IDList   *string
}

// UpdateCard applies a partial update to a card. Setting the same values
// twice converges to the same card state, which is what lets overlapping
// runs repeat updates safely.
func (c *Client) UpdateCard(ctx context.Context, cardID string, patch CardPatch) error {
	params := url.Values{}
	if patch.Name != nil {
		params.Set("name", *patch.Name)
	}
	if patch.Desc != nil {
		params.Set("desc", *patch.Desc)
	}
	if patch.ClearDue {
		params.Set("due", "null")
	} else if patch.Due != nil {
		params.Set("due", patch.Due.UTC().Format(time.RFC3339))
	}
	if patch.Closed != nil {
		params.Set("closed", fmt.Sprintf("%t", *patch.Closed))
	}
	if patch.IDList != nil {
		params.Set("idList", *patch.IDList)
	}
	return c.do(ctx, "PUT", "cards/"+cardID, params, nil)
}

// AddAttachment attaches a URL to a card.
func (c *Client) AddAttachment(ctx context.Context, cardID, attachURL string) error {
	params := url.Values{}
	params.Set("url", attachURL)
	return c.do(ctx, "POST", "cards/"+cardID+"/attachments", params, nil)
}

// AddMember adds a member to a card.
func (c *Client) AddMember(ctx context.Context, cardID, memberID string) error {
	params := url.Values{}
	params.Set("value", memberID)
	return c.do(ctx, "POST", "cards/"+cardID+"/idMembers", params, nil)
}

// AddLabel adds a label to a card.
func (c *Client) AddLabel(ctx context.Context, cardID, labelID string) error {
	params := url.Values{}
	params.Set("value", labelID)
	return c.do(ctx, "POST", "cards/"+cardID+"/idLabels", params, nil)
}

// CreateChecklist creates a checklist on a card.
func (c *Client) CreateChecklist(ctx context.Context, cardID, name string) (*Checklist, error) {
	params := url.Values{}
	params.Set("name", name)
	var checklist Checklist
	if err := c.do(ctx, "POST", "cards/"+cardID+"/checklists", params, &checklist); err != nil {
		return nil, err
	}
	return &checklist, nil
}

// AddCheckItem appends an item to a checklist.
func (c *Client) AddCheckItem(ctx context.Context, checklistID, name string, checked bool) error {
	params := url.Values{}
	params.Set("name", name)
	params.Set("checked", fmt.Sprintf("%t", checked))
	return c.do(ctx, "POST", "checklists/"+checklistID+"/checkItems", params, nil)
}

// AddComment posts a comment on a card.
func (c *Client) AddComment(ctx context.Context, cardID, text string) error {
	params := url.Values{}
	params.Set("text", text)
	return c.do(ctx, "POST", "cards/"+cardID+"/actions/comments", params, nil)
}
