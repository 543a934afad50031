package support

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	model "github.com/zhouzirui/z-support/backend/internal/model/ticket"
	ticketstore "github.com/zhouzirui/z-support/backend/internal/store/ticket"
)

var (
	ErrEmptyMessage    = errors.New("message text is required")
	ErrInvalidTicketID = errors.New("invalid ticket id")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketClosed    = errors.New("ticket is closed")
)

// Status filters tickets by lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusAll    Status = "all"
)

// ParseStatus maps a query value onto a Status; empty means open.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusOpen:
		return StatusOpen, true
	case StatusClosed:
		return StatusClosed, true
	case StatusAll:
		return StatusAll, true
	}
	return "", false
}

// ListFilter constrains List results.
type ListFilter struct {
	Status Status
	Limit  int // 0 = no limit
}

// TicketView is a ticket together with its id, as returned to callers.
type TicketView struct {
	ID        string          `json:"id"`
	Messages  []model.Message `json:"messages"`
	Closed    bool            `json:"closed"`
	CreatedAt string          `json:"created_at"`
}

func newView(id string, t model.Ticket) TicketView {
	msgs := t.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	return TicketView{ID: id, Messages: msgs, Closed: t.Closed, CreatedAt: t.CreatedAt}
}

// Ticket converts the view back into the stored shape.
func (v TicketView) Ticket() model.Ticket {
	return model.Ticket{Messages: v.Messages, Closed: v.Closed, CreatedAt: v.CreatedAt}
}

// Service applies the support desk's ticket policy on top of the store.
// Every call loads the document, mutates it and saves it back; the mutex only
// serializes callers inside this process.
type Service struct {
	mu    sync.Mutex
	store *ticketstore.Store
}

// NewService wraps store.
func NewService(store *ticketstore.Store) *Service {
	return &Service{store: store}
}

// OpenTicket issues a fresh user-facing ticket id and records the empty ticket.
func (s *Service) OpenTicket(ctx context.Context) (TicketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return TicketView{}, err
	}

	id := model.NewID(s.store.Now())
	for {
		if _, taken := tickets[id]; !taken {
			break
		}
		id = model.NewID(s.store.Now())
	}

	t := model.Ticket{Messages: []model.Message{}, CreatedAt: model.FormatTime(s.store.Now())}
	tickets[id] = t
	if err := s.store.Save(ctx, tickets); err != nil {
		return TicketView{}, err
	}
	log.Printf("[support] opened ticket %s", id)
	return newView(id, t), nil
}

// Submit appends a user message. Unknown tickets are created when the id is well formed.
func (s *Service) Submit(ctx context.Context, id, text string) (TicketView, error) {
	text = cleanText(text)
	if text == "" {
		return TicketView{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return TicketView{}, err
	}

	t, ok := tickets[id]
	switch {
	case !ok && !model.ValidID(id):
		return TicketView{}, ErrInvalidTicketID
	case ok && t.Closed:
		return TicketView{}, ErrTicketClosed
	}

	tickets = s.store.Append(tickets, id, model.RoleUser, text)
	if err := s.store.Save(ctx, tickets); err != nil {
		return TicketView{}, err
	}
	return newView(id, tickets[id]), nil
}

// Reply appends an admin message to an existing open ticket.
func (s *Service) Reply(ctx context.Context, id, text string) (TicketView, error) {
	text = cleanText(text)
	if text == "" {
		return TicketView{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return TicketView{}, err
	}

	t, ok := tickets[id]
	if !ok {
		return TicketView{}, ErrTicketNotFound
	}
	if t.Closed {
		return TicketView{}, ErrTicketClosed
	}

	tickets = s.store.Append(tickets, id, model.RoleAdmin, text)
	if err := s.store.Save(ctx, tickets); err != nil {
		return TicketView{}, err
	}
	return newView(id, tickets[id]), nil
}

// CloseTicket marks a ticket closed. Closing a closed ticket succeeds.
func (s *Service) CloseTicket(ctx context.Context, id string) (TicketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return TicketView{}, err
	}
	if _, ok := tickets[id]; !ok {
		return TicketView{}, ErrTicketNotFound
	}

	tickets = s.store.Close(tickets, id)
	if err := s.store.Save(ctx, tickets); err != nil {
		return TicketView{}, err
	}
	log.Printf("[support] closed ticket %s", id)
	return newView(id, tickets[id]), nil
}

// cleanText trims text and replaces invalid UTF-8, which the JSON encoder would
// otherwise rewrite on save.
func cleanText(text string) string {
	return strings.TrimSpace(strings.ToValidUTF8(text, "\uFFFD"))
}

// Get retrieves a ticket by identifier.
func (s *Service) Get(ctx context.Context, id string) (TicketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return TicketView{}, err
	}
	t, ok := tickets[id]
	if !ok {
		return TicketView{}, ErrTicketNotFound
	}
	return newView(id, t), nil
}

// List returns tickets matching filter, most recently active first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]TicketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]TicketView, 0, len(tickets))
	for id, t := range tickets {
		switch filter.Status {
		case StatusOpen, "":
			if t.Closed {
				continue
			}
		case StatusClosed:
			if !t.Closed {
				continue
			}
		}
		views = append(views, newView(id, t))
	}

	sort.Slice(views, func(i, j int) bool {
		ai, aj := views[i].Ticket().LastActivity(), views[j].Ticket().LastActivity()
		if ai != aj {
			return ai > aj
		}
		return views[i].ID < views[j].ID
	})

	if filter.Limit > 0 && len(views) > filter.Limit {
		views = views[:filter.Limit]
	}
	return views, nil
}
