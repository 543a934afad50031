package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	model "github.com/zhouzirui/z-support/backend/internal/model/ticket"
)

// Store reads and writes the ticket document through a Backend. It holds no
// tickets in memory; callers load, mutate and save on every request.
type Store struct {
	backend Backend
	now     func() time.Time
	strict  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for new timestamps and synthesized ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithStrictLoad makes Load return *CorruptError instead of quarantining and starting empty.
func WithStrictLoad() Option {
	return func(s *Store) { s.strict = true }
}

// New creates a Store on top of backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// LoadRaw reads and classifies the persisted document. A missing document is
// an EmptyDocument; unparsable bytes are reported as *CorruptError.
func (s *Store) LoadRaw(ctx context.Context) (RawDocument, error) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		return EmptyDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ticket store: load: %w", err)
	}
	return Decode(data)
}

// Load returns the canonical tickets and writes them back so the stored
// document is always in canonical form afterwards.
func (s *Store) Load(ctx context.Context) (model.Tickets, error) {
	doc, err := s.LoadRaw(ctx)
	var corrupt *CorruptError
	switch {
	case errors.As(err, &corrupt):
		if s.strict {
			return nil, err
		}
		dest, qerr := s.backend.Quarantine(ctx, corrupt.Data, s.now())
		if qerr != nil {
			return nil, fmt.Errorf("ticket store: %w", qerr)
		}
		log.Printf("[store] unreadable ticket document moved to %s, starting from an empty store", dest)
		doc = EmptyDocument{}
	case err != nil:
		return nil, err
	}

	tickets := Normalize(doc, s.now())
	if err := s.Save(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Save overwrites the persisted document with tickets.
func (s *Store) Save(ctx context.Context, tickets model.Tickets) error {
	data, err := Encode(tickets)
	if err != nil {
		return fmt.Errorf("ticket store: save: %w", err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("ticket store: save: %w", err)
	}
	return nil
}

// Append adds a message stamped with the current time, creating the ticket
// when it does not exist. It does not check whether the ticket is closed.
func (s *Store) Append(tickets model.Tickets, id string, role model.Role, text string) model.Tickets {
	if tickets == nil {
		tickets = make(model.Tickets)
	}
	now := model.FormatTime(s.now())
	t, ok := tickets[id]
	if !ok {
		t = model.Ticket{Messages: []model.Message{}, CreatedAt: now}
	}
	t.Messages = append(t.Messages, model.Message{Role: role, Text: text, Time: now})
	tickets[id] = t
	return tickets
}

// Close marks the ticket closed. Unknown ids are ignored.
func (s *Store) Close(tickets model.Tickets, id string) model.Tickets {
	if t, ok := tickets[id]; ok {
		t.Closed = true
		tickets[id] = t
	}
	return tickets
}

// Encode renders tickets in the persisted format.
func Encode(tickets model.Tickets) ([]byte, error) {
	if tickets == nil {
		tickets = model.Tickets{}
	}
	for id, t := range tickets {
		if t.Messages == nil {
			t.Messages = []model.Message{}
			tickets[id] = t
		}
	}
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
