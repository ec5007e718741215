package domain

import (
	"strings"
	"time"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    Member    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewMessage struct {
	RoomID   string
	SenderID string
	Content  string
}

func (n NewMessage) Validate() error {
	if strings.TrimSpace(n.Content) == "" {
		return invalid("content", "content required")
	}
	return nil
}

// MessageFilter narrows message listings and searches.
// Results are newest first.
// Before alone keeps messages strictly older than it. With BeforeID the
// cursor is the (createdAt, id) pair of the last message seen, so messages
// sharing that timestamp are not skipped.
type MessageFilter struct {
	Query    string
	RoomID   string
	Before   *time.Time
	BeforeID string
	Limit    int
}

// EffectiveLimit returns Limit capped at MaxMessageLimit; a non-positive
// Limit means DefaultMessageLimit.
func (f MessageFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultMessageLimit
	case f.Limit > MaxMessageLimit:
		return MaxMessageLimit
	}
	return f.Limit
}
