package ticket

import (
	"sort"
	"time"
)

// TimeLayout is the timestamp format written into messages and created_at.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Ticket captures one user's support conversation. The id lives in the enclosing map.
type Ticket struct {
	Messages  []Message `json:"messages"`
	Closed    bool      `json:"closed"`
	CreatedAt string    `json:"created_at"`
}

// LastActivity returns the time of the newest message, or created_at when there is none.
func (t Ticket) LastActivity() string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Time != "" {
			return t.Messages[i].Time
		}
	}
	return t.CreatedAt
}

// Recent returns at most n trailing messages.
func (t Ticket) Recent(n int) []Message {
	if n <= 0 || len(t.Messages) <= n {
		return t.Messages
	}
	return t.Messages[len(t.Messages)-n:]
}

// Tickets maps ticket id to ticket; it is persisted as a single document.
type Tickets map[string]Ticket

// IDs returns the ticket ids in lexical order.
func (ts Tickets) IDs() []string {
	ids := make([]string, 0, len(ts))
	for id := range ts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a copy whose message slices do not alias the receiver's.
func (ts Tickets) Clone() Tickets {
	out := make(Tickets, len(ts))
	for id, t := range ts {
		t.Messages = append([]Message(nil), t.Messages...)
		out[id] = t
	}
	return out
}
