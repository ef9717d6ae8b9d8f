package conversation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewSeedsSystemPrompt(t *testing.T) {
	t.Parallel()

	conv := New("s1", "you are helpful", testTime())
	if len(conv.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != contractx.RoleSystem || conv.Messages[0].Content != "you are helpful" {
		t.Fatalf("unexpected first message: %+v", conv.Messages[0])
	}
	if conv.HasImage {
		t.Fatal("new conversation must not be image-aware")
	}
	if !conv.CreatedAt.Equal(testTime()) || !conv.UpdatedAt.Equal(testTime()) {
		t.Fatalf("unexpected timestamps: %v / %v", conv.CreatedAt, conv.UpdatedAt)
	}
}

func TestReplaceLast(t *testing.T) {
	t.Parallel()

	conv := New("s1", "system", testTime())

	// only the system prompt present: nothing to replace
	if err := conv.ReplaceLast(contractx.UserMessage("hi")); !errors.Is(err, ErrNoSystemPrompt) {
		t.Fatalf("expected ErrNoSystemPrompt, got %v", err)
	}

	conv.Append(contractx.UserMessage("hi"))
	conv.Append(contractx.AssistantMessage("hello", nil))
	if err := conv.ReplaceLast(contractx.SystemMessage("nudge")); err != nil {
		t.Fatalf("ReplaceLast() error = %v", err)
	}
	if conv.Last().Content != "nudge" {
		t.Fatalf("last message not replaced: %+v", conv.Last())
	}
	if conv.Messages[0].Content != "system" {
		t.Fatal("system prompt must stay intact")
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("replace must not change length, got %d", len(conv.Messages))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	empty := &Conversation{SessionID: "s1"}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyConversation) {
		t.Fatalf("expected ErrEmptyConversation, got %v", err)
	}

	noSystem := &Conversation{
		SessionID: "s1",
		Messages:  []contractx.Message{contractx.UserMessage("hi")},
	}
	if err := noSystem.Validate(); !errors.Is(err, ErrNoSystemPrompt) {
		t.Fatalf("expected ErrNoSystemPrompt, got %v", err)
	}

	valid := New("s1", "system", testTime())
	valid.Append(contractx.UserMessage("search for laptops"))
	valid.Append(contractx.AssistantMessage("", []contractx.ToolCall{
		{ID: "call-1", Name: "search_products", Arguments: json.RawMessage(`{"query":"laptops"}`)},
	}))
	valid.Append(contractx.ToolMessage("call-1", "search_products", json.RawMessage(`{"count":0}`)))
	valid.Append(contractx.AssistantMessage("nothing found", nil))
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	dangling := New("s1", "system", testTime())
	dangling.Append(contractx.UserMessage("hi"))
	dangling.Append(contractx.AssistantMessage("", []contractx.ToolCall{
		{ID: "call-1", Name: "search_products"},
	}))
	dangling.Append(contractx.ToolMessage("call-9", "search_products", json.RawMessage(`{}`)))
	if err := dangling.Validate(); !errors.Is(err, ErrDanglingToolRef) {
		t.Fatalf("expected ErrDanglingToolRef, got %v", err)
	}

	// a user turn between the assistant and the tool result breaks the link
	interleaved := New("s1", "system", testTime())
	interleaved.Append(contractx.UserMessage("find laptops"))
	interleaved.Append(contractx.AssistantMessage("", []contractx.ToolCall{
		{ID: "call-1", Name: "search_products"},
	}))
	interleaved.Append(contractx.UserMessage("actually, never mind"))
	interleaved.Append(contractx.ToolMessage("call-1", "search_products", json.RawMessage(`{}`)))
	if err := interleaved.Validate(); !errors.Is(err, ErrDanglingToolRef) {
		t.Fatalf("expected ErrDanglingToolRef for interleaved user turn, got %v", err)
	}
}

func TestConversationRoundTrip(t *testing.T) {
	t.Parallel()

	conv := New("s1", "system", testTime())
	conv.Append(contractx.UserImageMessage("look at this", "data:image/jpeg;base64,aGk="))
	conv.HasImage = true
	conv.Append(contractx.AssistantMessage("", []contractx.ToolCall{
		{ID: "call-1", Name: "search_products", Arguments: json.RawMessage(`{"query":"laptop"}`)},
	}))
	conv.Append(contractx.ToolMessage("call-1", "search_products", json.RawMessage(`{"count":1}`)))

	raw, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Conversation
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if err := decoded.Validate(); err != nil {
		t.Fatalf("decoded conversation invalid: %v", err)
	}
	if !decoded.HasImage {
		t.Fatal("HasImage lost in round trip")
	}
	if len(decoded.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(decoded.Messages))
	}
	if decoded.Messages[1].Parts[1].ImageURL != "data:image/jpeg;base64,aGk=" {
		t.Fatalf("image part lost: %+v", decoded.Messages[1])
	}
}
