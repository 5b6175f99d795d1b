// Package conversation stores ordered chat turns per scope and assembles the
// bounded window sent to the LLM provider.
package conversation

import (
	"context"
	"errors"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultRetention is the number of turns kept per scope when none is configured.
const DefaultRetention = 200

// SharedScope is the single scope used when callers share one conversation.
const SharedScope = "global"

var ErrInvalidScope = errors.New("conversation scope is required")

// Store persists turns. Each Append is atomic; callers must not assume that
// a Recent followed by an Append is.
type Store interface {
	Append(ctx context.Context, scope string, turn Turn) error
	Recent(ctx context.Context, scope string, limit int) ([]Turn, error)
	Forget(ctx context.Context, scope string) error
	Close() error
}
