package ticket

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// RawDocument is the decoded shape of a persisted ticket document before
// normalization. Exactly one of the concrete types below is produced by Decode.
type RawDocument interface {
	rawDocument()
}

// EmptyDocument stands for a missing, blank or null document.
type EmptyDocument struct{}

// FlatList is the oldest format: one message log without ticket boundaries.
type FlatList struct {
	Items []gjson.Result
}

// ScalarDocument is a document whose top-level value is a bare scalar.
type ScalarDocument struct {
	Value gjson.Result
}

// IDMap is a document keyed by ticket id. Entries keep document order.
type IDMap struct {
	Entries []IDEntry
}

// IDEntry pairs a ticket id with the raw value stored under it.
type IDEntry struct {
	ID     string
	Ticket RawTicket
}

func (EmptyDocument) rawDocument()  {}
func (FlatList) rawDocument()       {}
func (ScalarDocument) rawDocument() {}
func (IDMap) rawDocument()          {}

// RawTicket is the value found under one id of an IDMap.
type RawTicket interface {
	rawTicket()
}

// MessageList is an id mapped straight to a list of messages.
type MessageList struct {
	Items []gjson.Result
}

// TicketObject is an id mapped to an object carrying any of messages, closed
// or created_at.
type TicketObject struct {
	Messages  gjson.Result
	Closed    gjson.Result
	CreatedAt gjson.Result
}

// SubMap is an id mapped to an object of arbitrary keys whose values are messages.
type SubMap struct {
	Values []gjson.Result
}

// ScalarTicket is an id mapped to anything else.
type ScalarTicket struct {
	Value gjson.Result
}

func (MessageList) rawTicket()  {}
func (TicketObject) rawTicket() {}
func (SubMap) rawTicket()       {}
func (ScalarTicket) rawTicket() {}

// CorruptError reports a persisted document that could not be parsed.
type CorruptError struct {
	Data []byte
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ticket store: corrupt document (%d bytes)", len(e.Data))
}

// Decode classifies raw bytes into a RawDocument. Comments and trailing commas
// are tolerated. Invalid JSON yields a *CorruptError.
func Decode(data []byte) (RawDocument, error) {
	cleaned := jsonc.ToJSON(data)
	if isBlank(cleaned) {
		return EmptyDocument{}, nil
	}
	if !gjson.ValidBytes(cleaned) {
		return nil, &CorruptError{Data: data}
	}

	root := gjson.ParseBytes(cleaned)
	switch {
	case root.Type == gjson.Null:
		return EmptyDocument{}, nil
	case root.IsArray():
		return FlatList{Items: root.Array()}, nil
	case root.IsObject():
		if entries, ok := globalLog(root); ok {
			return FlatList{Items: entries}, nil
		}
		return decodeIDMap(root), nil
	default:
		return ScalarDocument{Value: root}, nil
	}
}

// globalLog detects the single-room shape {"messages": [...]}.
func globalLog(root gjson.Result) ([]gjson.Result, bool) {
	var (
		keys     int
		messages gjson.Result
	)
	root.ForEach(func(key, value gjson.Result) bool {
		keys++
		if key.String() == "messages" {
			messages = value
		}
		return true
	})
	if keys != 1 || !messages.IsArray() {
		return nil, false
	}
	return messages.Array(), true
}

func decodeIDMap(root gjson.Result) IDMap {
	var doc IDMap
	root.ForEach(func(key, value gjson.Result) bool {
		doc.Entries = append(doc.Entries, IDEntry{ID: key.String(), Ticket: classifyTicket(value)})
		return true
	})
	return doc
}

func classifyTicket(value gjson.Result) RawTicket {
	switch {
	case value.IsArray():
		return MessageList{Items: value.Array()}
	case value.IsObject():
		messages := value.Get("messages")
		closed := value.Get("closed")
		createdAt := value.Get("created_at")
		if messages.Exists() || closed.Exists() || createdAt.Exists() {
			return TicketObject{Messages: messages, Closed: closed, CreatedAt: createdAt}
		}
		var sub SubMap
		value.ForEach(func(_, v gjson.Result) bool {
			sub.Values = append(sub.Values, v)
			return true
		})
		return sub
	default:
		return ScalarTicket{Value: value}
	}
}

func isBlank(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
