package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

var (
	ErrEmptyConversation = errors.New("conversation has no messages")
	ErrNoSystemPrompt    = errors.New("first message must be the system prompt")
	ErrDanglingToolRef   = errors.New("tool message references unknown tool call")
)

// Conversation is the per-session chat transcript. Messages are append-only
// except for in-place replacement of the most recent entry when a forced
// re-query supersedes it. messages[0] is always the system instruction, set
// once at creation.
type Conversation struct {
	SessionID string              `json:"session_id"`
	Messages  []contractx.Message `json:"messages"`
	HasImage  bool                `json:"has_image"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func New(sessionID, systemPrompt string, now time.Time) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		Messages:  []contractx.Message{contractx.SystemMessage(systemPrompt)},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) Append(msg contractx.Message) {
	c.Messages = append(c.Messages, msg)
}

// ReplaceLast swaps the most recent message. Only the last entry may be
// replaced; the system prompt at index 0 is protected.
func (c *Conversation) ReplaceLast(msg contractx.Message) error {
	if len(c.Messages) < 2 {
		return ErrNoSystemPrompt
	}
	c.Messages[len(c.Messages)-1] = msg
	return nil
}

func (c *Conversation) Last() *contractx.Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// clone makes an independent copy, detaching the message slice and its nested
// slices so later mutations by the caller cannot reach a shared value.
func (c *Conversation) clone() *Conversation {
	out := *c
	out.Messages = make([]contractx.Message, len(c.Messages))
	for i, msg := range c.Messages {
		if len(msg.Parts) > 0 {
			msg.Parts = append([]contractx.ContentPart(nil), msg.Parts...)
		}
		if len(msg.ToolCalls) > 0 {
			calls := make([]contractx.ToolCall, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				call.Arguments = append(json.RawMessage(nil), call.Arguments...)
				calls[j] = call
			}
			msg.ToolCalls = calls
		}
		out.Messages[i] = msg
	}
	return &out
}

// Validate checks the transcript invariants: a system prompt at index 0 and
// every tool message referencing a tool-call id from the immediately
// preceding assistant message.
func (c *Conversation) Validate() error {
	if len(c.Messages) == 0 {
		return ErrEmptyConversation
	}
	if c.Messages[0].Role != contractx.RoleSystem {
		return ErrNoSystemPrompt
	}

	var pendingCalls map[string]struct{}
	for i, msg := range c.Messages {
		switch msg.Role {
		case contractx.RoleUser, contractx.RoleSystem:
			pendingCalls = nil
		case contractx.RoleAssistant:
			pendingCalls = nil
			if len(msg.ToolCalls) > 0 {
				pendingCalls = make(map[string]struct{}, len(msg.ToolCalls))
				for _, call := range msg.ToolCalls {
					pendingCalls[call.ID] = struct{}{}
				}
			}
		case contractx.RoleTool:
			if _, ok := pendingCalls[msg.ToolCallID]; !ok {
				return fmt.Errorf("%w: message=%d id=%s", ErrDanglingToolRef, i, msg.ToolCallID)
			}
		}
	}
	return nil
}
