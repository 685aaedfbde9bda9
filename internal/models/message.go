package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// State tracks the lifecycle of a transcript message.
type State string

const (
	// StatePending marks an assistant placeholder awaiting a reply.
	StatePending State = "pending"
	// StateConfirmed marks a stored user message or a received reply.
	StateConfirmed State = "confirmed"
	// StateErrored marks a locally-synthesized failure notice.
	StateErrored State = "errored"
)

// Message is a single transcript entry. Ordering in the transcript is
// positional (oldest first); CreatedAt is display-only.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	State     State     `json:"state"`
}

// NewLocalID returns an id for a locally-originated message. The "local-"
// prefix keeps the scheme disjoint from server-assigned ids.
func NewLocalID() string {
	return "local-" + uuid.NewString()
}
