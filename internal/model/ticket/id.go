package ticket

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// IDPrefix starts every ticket id.
	IDPrefix = "TCKT-"

	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLen      = 6
)

var (
	publicIDPattern    = regexp.MustCompile(`^TCKT-\d{8}-[A-Z0-9]{6}$`)
	synthesizedPattern = regexp.MustCompile(`^TCKT-\d{14}$`)
)

// SynthesizedID is the id given to a ticket built from legacy data without ticket boundaries.
func SynthesizedID(now time.Time) string {
	return IDPrefix + now.Format("20060102150405")
}

// NewID issues a user-facing ticket id: TCKT-YYYYMMDD-XXXXXX.
func NewID(now time.Time) string {
	raw := uuid.New()
	var b strings.Builder
	b.Grow(len(IDPrefix) + 8 + 1 + suffixLen)
	b.WriteString(IDPrefix)
	b.WriteString(now.Format("20060102"))
	b.WriteByte('-')
	for i := 0; i < suffixLen; i++ {
		b.WriteByte(suffixAlphabet[int(raw[i])%len(suffixAlphabet)])
	}
	return b.String()
}

// ValidID reports whether id follows the user-facing format.
func ValidID(id string) bool {
	return publicIDPattern.MatchString(id)
}

// IsSynthesized reports whether id was generated while migrating legacy data.
func IsSynthesized(id string) bool {
	return synthesizedPattern.MatchString(id)
}
