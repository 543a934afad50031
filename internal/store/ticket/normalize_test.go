package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	model "github.com/zhouzirui/z-support/backend/internal/model/ticket"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func normalizeString(t *testing.T, raw string) model.Tickets {
	t.Helper()
	doc, err := Decode([]byte(raw))
	require.NoError(t, err)
	return Normalize(doc, fixedNow)
}

func TestNormalizeFlatListOfStrings(t *testing.T) {
	tickets := normalizeString(t, `["hi there"]`)

	require.Len(t, tickets, 1)
	got, ok := tickets["TCKT-20250314092653"]
	require.True(t, ok, "expected synthesized ticket id, got %v", tickets.IDs())
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.Message{Role: model.RoleUser, Text: "hi there", Time: ""}, got.Messages[0])
	assert.False(t, got.Closed)
	assert.Equal(t, "2025-03-14 09:26:53", got.CreatedAt)
}

func TestNormalizeFlatListLegacySenderShape(t *testing.T) {
	tickets := normalizeString(t, `[
		{"sender": "user", "text": "printer is on fire", "timestamp": "2024-01-02 10:00:00"},
		{"sender": "admin", "text": "have you tried water", "timestamp": "2024-01-02 10:01:00"},
		42
	]`)

	got := tickets[model.SynthesizedID(fixedNow)]
	require.Len(t, got.Messages, 3)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "2024-01-02 10:00:00", got.Messages[0].Time)
	assert.Equal(t, model.RoleAdmin, got.Messages[1].Role)
	assert.Equal(t, "have you tried water", got.Messages[1].Text)
	assert.Equal(t, model.Message{Role: model.RoleUser, Text: "42"}, got.Messages[2])
}

func TestNormalizeEmptyFlatListHasNoTickets(t *testing.T) {
	assert.Empty(t, normalizeString(t, `[]`))
}

func TestNormalizeGlobalMessageLog(t *testing.T) {
	tickets := normalizeString(t, `{"messages": [{"role": "user", "text": "hello"}, {"role": "admin", "text": "hi"}]}`)

	require.Len(t, tickets, 1)
	got := tickets[model.SynthesizedID(fixedNow)]
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hi", got.Messages[1].Text)
	assert.Equal(t, model.RoleAdmin, got.Messages[1].Role)
}

func TestNormalizeIDToList(t *testing.T) {
	tickets := normalizeString(t, `{"T1": [{"role": "user", "text": "a"}, "b"]}`)

	got := tickets["T1"]
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "a", got.Messages[0].Text)
	assert.Equal(t, "b", got.Messages[1].Text)
	assert.False(t, got.Closed)
	assert.Equal(t, "2025-03-14 09:26:53", got.CreatedAt)
}

func TestNormalizeIDToTicketWithLegacyMessageKeys(t *testing.T) {
	tickets := normalizeString(t, `{"T2": {"messages": [{"role":"admin","message":"hello","timestamp":"t1"}], "closed": true}}`)

	got := tickets["T2"]
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Text)
	assert.Equal(t, "t1", got.Messages[0].Time)
	assert.Equal(t, model.RoleAdmin, got.Messages[0].Role)
	assert.True(t, got.Closed)
}

func TestNormalizePreservesCreatedAt(t *testing.T) {
	tickets := normalizeString(t, `{"T3": {"messages": [], "closed": false, "created_at": "2023-12-01 08:00:00"}}`)
	assert.Equal(t, "2023-12-01 08:00:00", tickets["T3"].CreatedAt)
	assert.NotNil(t, tickets["T3"].Messages)
}

func TestNormalizeClosedTruthiness(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`1`, true},
		{`0`, false},
		{`"yes"`, true},
		{`"false"`, false},
		{`""`, false},
		{`null`, false},
		{`[1]`, true},
		{`{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tickets := normalizeString(t, `{"T": {"messages": [], "closed": `+tt.raw+`}}`)
			assert.Equal(t, tt.want, tickets["T"].Closed)
		})
	}
}

func TestNormalizeSubMapKeepsInsertionOrder(t *testing.T) {
	tickets := normalizeString(t, `{"T4": {
		"zeta":  {"role": "user", "text": "first"},
		"alpha": {"role": "admin", "text": "second"},
		"mid":   "third"
	}}`)

	got := tickets["T4"]
	require.Len(t, got.Messages, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{
		got.Messages[0].Text, got.Messages[1].Text, got.Messages[2].Text,
	})
	assert.Equal(t, model.RoleAdmin, got.Messages[1].Role)
}

func TestNormalizeScalarValue(t *testing.T) {
	tickets := normalizeString(t, `{"T5": 3.5, "T6": null, "T7": "plain"}`)

	assert.Equal(t, []model.Message{{Role: model.RoleUser, Text: "3.5"}}, tickets["T5"].Messages)
	assert.Equal(t, []model.Message{{Role: model.RoleUser, Text: ""}}, tickets["T6"].Messages)
	assert.Equal(t, "plain", tickets["T7"].Messages[0].Text)
}

func TestNormalizeMessageCoercion(t *testing.T) {
	tickets := normalizeString(t, `{"T": [
		{"role": "robot", "text": "unknown role"},
		{"text": 12},
		{"note": "no text key"},
		{"role": "admin", "text": "both", "message": "ignored", "time": "t-new", "timestamp": "t-old"}
	]}`)

	msgs := tickets["T"].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "12", msgs[1].Text)
	assert.Equal(t, `{"note":"no text key"}`, msgs[2].Text)
	assert.Equal(t, model.Message{Role: model.RoleAdmin, Text: "both", Time: "t-new"}, msgs[3])
}

func TestNormalizeCanonicalIsFixedPoint(t *testing.T) {
	canonical := model.Tickets{
		"TCKT-20250101-ABC123": {
			Messages: []model.Message{
				{Role: model.RoleUser, Text: "hello", Time: "2025-01-01 10:00:00"},
				{Role: model.RoleAdmin, Text: "hi", Time: "2025-01-01 10:01:00"},
			},
			Closed:    true,
			CreatedAt: "2025-01-01 09:59:00",
		},
		"T-empty": {Messages: []model.Message{}, CreatedAt: "2025-01-02 00:00:00"},
	}
	first, err := Encode(canonical)
	require.NoError(t, err)

	doc, err := Decode(first)
	require.NoError(t, err)
	once := Normalize(doc, fixedNow.Add(time.Hour))
	second, err := Encode(once)
	require.NoError(t, err)

	doc, err = Decode(second)
	require.NoError(t, err)
	third, err := Encode(Normalize(doc, fixedNow.Add(2*time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, string(second), string(third))
}

func TestNormalizeAlwaysCanonical(t *testing.T) {
	inputs := []string{
		`["a", {"sender": "admin", "text": "b"}]`,
		`{"x": ["a"]}`,
		`{"x": {"messages": [{"text": "a"}], "closed": "1"}}`,
		`{"x": {"k1": {"text": "a"}, "k2": 5}}`,
		`{"x": true}`,
		`"just a string"`,
		`null`,
	}
	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			tickets := normalizeString(t, raw)
			data, err := Encode(tickets)
			require.NoError(t, err)

			// Every ticket decodes back as a TicketObject with a messages array.
			doc, err := Decode(data)
			require.NoError(t, err)
			if len(tickets) == 0 {
				return
			}
			idMap, ok := doc.(IDMap)
			require.True(t, ok, "expected IDMap, got %T", doc)
			for _, e := range idMap.Entries {
				obj, ok := e.Ticket.(TicketObject)
				require.True(t, ok)
				assert.True(t, obj.Messages.IsArray())
				assert.True(t, obj.CreatedAt.Exists())
				assert.True(t, obj.Closed.IsBool())
				obj.Messages.ForEach(func(_, m gjson.Result) bool {
					assert.True(t, m.Get("role").Exists())
					assert.True(t, m.Get("text").Exists())
					assert.True(t, m.Get("time").Exists())
					return true
				})
			}
		})
	}
}
