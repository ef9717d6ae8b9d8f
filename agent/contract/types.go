package contract

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

// ContentPart is one element of a composite user message (image turns).
type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// Message is a closed variant over the four chat roles. Exactly one shape is
// valid per role: system/assistant carry Content (assistant optionally
// ToolCalls), user carries Content or Parts, tool carries ToolCallID +
// ToolName + Content (the marshalled tool result).
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolName   string        `json:"tool_name,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// UserImageMessage builds the composite {text, image} user message used on
// the first image-bearing turn of a session.
func UserImageMessage(text, imageURL string) Message {
	return Message{
		Role: RoleUser,
		Parts: []ContentPart{
			{Type: PartText, Text: text},
			{Type: PartImage, ImageURL: imageURL},
		},
	}
}

func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolMessage(callID, toolName string, payload json.RawMessage) Message {
	return Message{
		Role:       RoleTool,
		Content:    string(payload),
		ToolCallID: callID,
		ToolName:   toolName,
	}
}

func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolSpec describes one callable tool to the completion endpoint.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Gated       bool           `json:"-"`
}

// ToolResult is the outcome of dispatching one tool call. Payload is always
// set (structured errors included) so a tool message can be appended for
// every call. Products carries the decoded product list when the tool is a
// product lookup, for suggestion capture.
type ToolResult struct {
	CallID   string
	Tool     string
	Payload  json.RawMessage
	Products []Product
}

// CompletionRequest is the contract with the completion endpoint. A non-empty
// ForcedTool switches the call to forced mode: the model must answer with a
// tool call for that tool. Tools may be nil on the final narration round.
type CompletionRequest struct {
	Messages   []Message
	Tools      []ToolSpec
	ForcedTool string
}

type ActionType string

const (
	ActionAddToCart ActionType = "add_to_cart"
	ActionCheckout  ActionType = "checkout"
)

// PendingAction is a side-effecting tool call intercepted before execution.
// It is returned to the caller inside the TurnResult and round-tripped back
// verbatim on confirmation; the executor treats it as the sole source of
// truth for the intent.
type PendingAction struct {
	ID        string            `json:"id"`
	Type      ActionType        `json:"action_type"`
	SessionID string            `json:"session_id"`
	AddToCart *AddToCartPayload `json:"add_to_cart,omitempty"`
	Checkout  *CheckoutPayload  `json:"checkout,omitempty"`
}

type AddToCartPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutPayload struct {
	Email      string `json:"email"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type TurnResult struct {
	ResponseText      string         `json:"response"`
	SuggestedProducts []Product      `json:"suggested_products,omitempty"`
	RequiresAction    bool           `json:"requires_action"`
	PendingAction     *PendingAction `json:"pending_action,omitempty"`
}

type ActionStatus string

const (
	ActionSuccess   ActionStatus = "success"
	ActionCancelled ActionStatus = "cancelled"
	ActionError     ActionStatus = "error"
)

type ActionResult struct {
	Status   ActionStatus     `json:"status"`
	Message  string           `json:"message,omitempty"`
	Cart     *Cart            `json:"cart,omitempty"`
	Checkout *CheckoutSession `json:"checkout,omitempty"`
}

/* ------------------------- collaborator records ------------------------- */

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	InStock     bool    `json:"in_stock"`
}

type ProductDetails struct {
	Product
	LongDescription string            `json:"long_description,omitempty"`
	Specifications  map[string]string `json:"specifications,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
}

type SearchFilters struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
}

type CartItem struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	ItemTotal float64 `json:"item_total"`
}

type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Shipping  float64    `json:"shipping"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
