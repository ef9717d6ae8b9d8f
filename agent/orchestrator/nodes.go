package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	convx "github.com/prasertk/shopassist/agent/conversation"
	toolx "github.com/prasertk/shopassist/agent/tool"
)

// turnState is the working state threaded through the turn graph.
type turnState struct {
	SessionID string
	Text      string
	ImageURL  string
	ImageTurn bool
	Now       time.Time

	Conv      *convx.Conversation
	Suggested []contractx.Product
	Pending   *contractx.PendingAction
	Response  string
}

func (o *Orchestrator) validateTurn(in TurnInput) (*turnState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	imageURL := normalizeImageURL(in.ImageData)
	if text == "" && imageURL == "" {
		return nil, ErrInvalidMessage
	}

	return &turnState{
		SessionID: sessionID,
		Text:      text,
		ImageURL:  imageURL,
		ImageTurn: imageURL != "",
		Now:       o.now(),
	}, nil
}

// normalizeImageURL accepts a data URL, an http(s) URL, or raw base64, which
// is wrapped as a JPEG data URL.
func normalizeImageURL(data string) string {
	data = strings.TrimSpace(data)
	if data == "" {
		return ""
	}
	if strings.HasPrefix(data, "data:") ||
		strings.HasPrefix(data, "http://") ||
		strings.HasPrefix(data, "https://") {
		return data
	}
	return "data:image/jpeg;base64," + data
}

func (o *Orchestrator) loadConversation(ctx context.Context, st *turnState) (*turnState, error) {
	conv, err := convx.GetOrCreate(ctx, o.store, st.SessionID, o.systemPrompt, st.Now)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	st.Conv = conv
	return st, nil
}

func (o *Orchestrator) appendUserMessage(st *turnState) (*turnState, error) {
	text := st.Text
	if text == "" {
		text = defaultImageInstruction
	}

	// Only the first image in a session is embedded as image content; later
	// images arrive as text-only turns against an already image-aware session.
	if st.ImageTurn && !st.Conv.HasImage {
		st.Conv.Append(contractx.UserImageMessage(text, st.ImageURL))
		st.Conv.HasImage = true
	} else {
		st.Conv.Append(contractx.UserMessage(text))
	}
	return st, nil
}

// reason asks the model what to do with the turn so far. When the turn
// carried an image and the model answered in plain text anyway, the reply is
// swapped for a system nudge and the model is re-invoked with search_products
// forced, so an image turn always ends in a product search.
func (o *Orchestrator) reason(ctx context.Context, st *turnState) (*turnState, error) {
	msg, err := o.llm.Complete(ctx, contractx.CompletionRequest{
		Messages: st.Conv.Messages,
		Tools:    o.registry.Specs(),
	})
	if err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}
	st.Conv.Append(msg)

	if !st.ImageTurn || msg.HasToolCalls() {
		return st, nil
	}

	if err := st.Conv.ReplaceLast(contractx.SystemMessage(o.imageNudge)); err != nil {
		return nil, fmt.Errorf("apply image nudge: %w", err)
	}
	forced, err := o.llm.Complete(ctx, contractx.CompletionRequest{
		Messages:   st.Conv.Messages,
		Tools:      o.registry.Specs(),
		ForcedTool: toolx.NameSearchProducts,
	})
	if err != nil {
		return nil, fmt.Errorf("forced image search: %w", err)
	}
	st.Conv.Append(forced)
	return st, nil
}

// runTools resolves every tool call of the last assistant message, in order.
// Gated tools never execute here: they record a pending action and answer the
// model with a waiting_for_confirmation payload instead.
func (o *Orchestrator) runTools(ctx context.Context, st *turnState) (*turnState, error) {
	last := st.Conv.Last()
	if last == nil || !last.HasToolCalls() {
		return nil, fmt.Errorf("%w: run_tools without tool calls", contractx.ErrProtocol)
	}

	for _, call := range last.ToolCalls {
		if o.registry.Gated(call.Name) {
			payload := o.gatePendingAction(ctx, st, call)
			st.Conv.Append(contractx.ToolMessage(call.ID, call.Name, payload))
			continue
		}

		result, err := o.registry.Dispatch(ctx, st.SessionID, call)
		if err != nil {
			return nil, err
		}

		switch call.Name {
		case toolx.NameSearchProducts, toolx.NameGetRelatedProducts:
			if result.Products != nil {
				st.Suggested = result.Products
			}
		case toolx.NameGetProductDetails:
			if len(result.Products) > 0 {
				st.Suggested = result.Products
			}
		}

		st.Conv.Append(contractx.ToolMessage(call.ID, call.Name, result.Payload))
	}
	return st, nil
}

// gatePendingAction resolves the display data for a gated call and records
// the pending action. When several gated calls land in one turn the last one
// wins; earlier ones still answered waiting_for_confirmation but their intent
// is superseded. Failures to resolve display data answer the model with an
// error payload and record nothing.
func (o *Orchestrator) gatePendingAction(ctx context.Context, st *turnState, call contractx.ToolCall) json.RawMessage {
	switch call.Name {
	case toolx.NameAddToCart:
		var args toolx.AddToCartArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return gateErrorPayload(fmt.Sprintf("invalid arguments: %v", err))
		}
		if strings.TrimSpace(args.ProductID) == "" {
			return gateErrorPayload("product_id is required")
		}
		quantity := args.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		details, err := o.catalog.Details(ctx, args.ProductID)
		if err != nil {
			log.Warn().Err(err).
				Str("session_id", st.SessionID).
				Str("product_id", args.ProductID).
				Msg("gated add_to_cart: product lookup failed")
			return gateErrorPayload(err.Error())
		}

		st.Pending = &contractx.PendingAction{
			ID:        uuid.NewString(),
			Type:      contractx.ActionAddToCart,
			SessionID: st.SessionID,
			AddToCart: &contractx.AddToCartPayload{
				ProductID: args.ProductID,
				Quantity:  quantity,
			},
		}
		return mustMarshal(map[string]any{
			"status":   "waiting_for_confirmation",
			"action":   string(contractx.ActionAddToCart),
			"product":  details,
			"quantity": quantity,
		})

	case toolx.NameCreateCheckout:
		var args toolx.CreateCheckoutArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return gateErrorPayload(fmt.Sprintf("invalid arguments: %v", err))
		}

		cart, err := o.cart.Get(ctx, st.SessionID)
		if err != nil {
			log.Warn().Err(err).
				Str("session_id", st.SessionID).
				Msg("gated create_checkout: cart lookup failed")
			return gateErrorPayload(err.Error())
		}
		if len(cart.Items) == 0 {
			return gateErrorPayload("cart is empty")
		}

		successURL := strings.TrimSpace(args.SuccessURL)
		if successURL == "" {
			successURL = o.successURL
		}
		cancelURL := strings.TrimSpace(args.CancelURL)
		if cancelURL == "" {
			cancelURL = o.cancelURL
		}

		st.Pending = &contractx.PendingAction{
			ID:        uuid.NewString(),
			Type:      contractx.ActionCheckout,
			SessionID: st.SessionID,
			Checkout: &contractx.CheckoutPayload{
				Email:      strings.TrimSpace(args.Email),
				SuccessURL: successURL,
				CancelURL:  cancelURL,
			},
		}
		return mustMarshal(map[string]any{
			"status": "waiting_for_confirmation",
			"action": string(contractx.ActionCheckout),
			"cart":   cart,
		})

	default:
		return gateErrorPayload(fmt.Sprintf("unknown gated tool: %s", call.Name))
	}
}

// narrate runs the final completion over the transcript including tool
// results. No tools are offered; the model must answer in text.
func (o *Orchestrator) narrate(ctx context.Context, st *turnState) (*turnState, error) {
	msg, err := o.llm.Complete(ctx, contractx.CompletionRequest{
		Messages: st.Conv.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}
	st.Conv.Append(msg)
	st.Response = strings.TrimSpace(msg.Content)
	return st, nil
}

func (o *Orchestrator) replyDirect(st *turnState) (*turnState, error) {
	last := st.Conv.Last()
	if last != nil && last.Role == contractx.RoleAssistant {
		st.Response = strings.TrimSpace(last.Content)
	}
	return st, nil
}

// finishTurn persists the transcript and assembles the turn result. Reached
// only on success: a failed turn leaves the stored conversation untouched.
func (o *Orchestrator) finishTurn(ctx context.Context, st *turnState) (contractx.TurnResult, error) {
	if st.Response == "" {
		st.Response = defaultReply
	}

	st.Conv.Touch(o.now())
	if err := o.store.Save(ctx, st.Conv); err != nil {
		return contractx.TurnResult{}, fmt.Errorf("save conversation: %w", err)
	}

	return contractx.TurnResult{
		ResponseText:      st.Response,
		SuggestedProducts: st.Suggested,
		RequiresAction:    st.Pending != nil,
		PendingAction:     st.Pending,
	}, nil
}

func gateErrorPayload(msg string) json.RawMessage {
	return mustMarshal(map[string]string{"error": msg})
}

func mustMarshal(v any) json.RawMessage {
	payload, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"error":"internal"}`)
	}
	return payload
}
