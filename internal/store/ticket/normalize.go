package ticket

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	model "github.com/zhouzirui/z-support/backend/internal/model/ticket"
)

// Normalize coerces any decoded document into the canonical ticket map.
// It never fails: shapes it does not recognise are stringified into user messages.
func Normalize(doc RawDocument, now time.Time) model.Tickets {
	out := make(model.Tickets)
	stamp := model.FormatTime(now)

	switch d := doc.(type) {
	case EmptyDocument:
	case FlatList:
		if len(d.Items) == 0 {
			break
		}
		out[model.SynthesizedID(now)] = model.Ticket{
			Messages:  coerceMessages(d.Items),
			CreatedAt: stamp,
		}
	case ScalarDocument:
		out[model.SynthesizedID(now)] = model.Ticket{
			Messages:  []model.Message{coerceMessage(d.Value)},
			CreatedAt: stamp,
		}
	case IDMap:
		for _, e := range d.Entries {
			out[e.ID] = normalizeTicket(e.Ticket, stamp)
		}
	}
	return out
}

func normalizeTicket(raw RawTicket, stamp string) model.Ticket {
	switch r := raw.(type) {
	case MessageList:
		return model.Ticket{Messages: coerceMessages(r.Items), CreatedAt: stamp}
	case TicketObject:
		t := model.Ticket{
			Messages:  messagesOf(r.Messages),
			Closed:    truthy(r.Closed),
			CreatedAt: stamp,
		}
		if r.CreatedAt.Exists() && r.CreatedAt.Type != gjson.Null {
			t.CreatedAt = stringify(r.CreatedAt)
		}
		return t
	case SubMap:
		return model.Ticket{Messages: coerceMessages(r.Values), CreatedAt: stamp}
	case ScalarTicket:
		return model.Ticket{Messages: []model.Message{coerceMessage(r.Value)}, CreatedAt: stamp}
	}
	return model.Ticket{Messages: []model.Message{}, CreatedAt: stamp}
}

// messagesOf reads the value under a ticket's messages key.
func messagesOf(v gjson.Result) []model.Message {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return []model.Message{}
	case v.IsArray():
		return coerceMessages(v.Array())
	case v.IsObject():
		var values []gjson.Result
		v.ForEach(func(_, item gjson.Result) bool {
			values = append(values, item)
			return true
		})
		return coerceMessages(values)
	default:
		return []model.Message{coerceMessage(v)}
	}
}

func coerceMessages(items []gjson.Result) []model.Message {
	out := make([]model.Message, 0, len(items))
	for _, item := range items {
		out = append(out, coerceMessage(item))
	}
	return out
}

func coerceMessage(v gjson.Result) model.Message {
	if !v.IsObject() {
		return model.Message{Role: model.RoleUser, Text: stringify(v)}
	}
	return model.Message{
		Role: model.ParseRole(firstOf(v, "role", "sender").String()),
		Text: stringify(firstOr(v, v, "text", "message")),
		Time: stringify(firstOf(v, "time", "timestamp")),
	}
}

// firstOf returns the value of the first key present in obj.
func firstOf(obj gjson.Result, keys ...string) gjson.Result {
	return firstOr(obj, gjson.Result{}, keys...)
}

func firstOr(obj, fallback gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() {
			return v
		}
	}
	return fallback
}

// stringify renders any JSON value as message text.
func stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return v.Raw
	default:
		return string(pretty.Ugly([]byte(v.Raw)))
	}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		return s != "" && s != "false" && s != "0"
	case gjson.JSON:
		nonEmpty := false
		v.ForEach(func(_, _ gjson.Result) bool {
			nonEmpty = true
			return false
		})
		return nonEmpty
	}
	return false
}
