package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIDIsValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewID(now)
		assert.True(t, ValidID(id), "generated id %q should be valid", id)
		assert.Equal(t, "TCKT-20250601-", id[:14])
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"TCKT-20250601-AB12CD", true},
		{"TCKT-20250601-ab12cd", false},
		{"TCKT-2025061-AB12CD", false},
		{"TCKT-20250601-AB12C", false},
		{"TCKT-20250601083000", false},
		{"T1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidID(tt.id), tt.id)
	}
}

func TestSynthesizedID(t *testing.T) {
	id := SynthesizedID(time.Date(2025, 6, 1, 8, 30, 5, 0, time.UTC))
	assert.Equal(t, "TCKT-20250601083005", id)
	assert.True(t, IsSynthesized(id))
	assert.False(t, ValidID(id))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleUser, ParseRole("bot"))
	assert.Equal(t, RoleUser, ParseRole(""))
}
