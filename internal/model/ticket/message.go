package ticket

// Role tags who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps any authority tag onto a known role; unknown values fall back to user.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Message is one utterance within a ticket, in its canonical persisted shape.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Time string `json:"time"`
}
