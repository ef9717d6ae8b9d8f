package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	convx "github.com/prasertk/shopassist/agent/conversation"
	executorx "github.com/prasertk/shopassist/agent/executor"
	promptx "github.com/prasertk/shopassist/agent/prompt"
	toolx "github.com/prasertk/shopassist/agent/tool"
)

var (
	ErrInvalidSession = fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	ErrInvalidMessage = fmt.Errorf("%w: message text or image is required", contractx.ErrValidation)
)

const (
	// Fallback reply when the model produced an empty final message.
	defaultReply = "I'll help you find what you're looking for."
	// Degraded reply when the completion upstream failed mid-turn.
	degradedReply = "I encountered an error processing your request."
	// Substituted instruction for an image-only turn with no text.
	defaultImageInstruction = "analyze this image and find similar products"
)

type Config struct {
	// SystemPrompt overrides the embedded prompt when non-empty.
	SystemPrompt string
	// Default redirect URLs for checkout sessions when the model omits them.
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

// TurnInput is one inbound user turn. ImageData is an optional image payload:
// a data URL, an http(s) URL, or raw base64 (treated as JPEG).
type TurnInput struct {
	SessionID string
	Text      string
	ImageData string
}

// Orchestrator drives the turn state machine: it owns the conversation
// lifecycle, the tool-calling protocol with the completion endpoint, and the
// confirmation gate for side-effecting tools.
type Orchestrator struct {
	store    convx.Store
	llm      contractx.CompletionClient
	registry *toolx.Registry
	catalog  contractx.ProductCatalog
	cart     contractx.CartService
	exec     *executorx.Executor

	graphRunner compose.Runnable[TurnInput, contractx.TurnResult]

	systemPrompt string
	imageNudge   string
	successURL   string
	cancelURL    string

	now func() time.Time
}

func New(
	store convx.Store,
	llm contractx.CompletionClient,
	registry *toolx.Registry,
	catalog contractx.ProductCatalog,
	cart contractx.CartService,
	payment contractx.PaymentGateway,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if llm == nil {
		return nil, errors.New("completion client is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if catalog == nil {
		return nil, errors.New("product catalog is required")
	}
	if cart == nil {
		return nil, errors.New("cart service is required")
	}
	if payment == nil {
		return nil, errors.New("payment gateway is required")
	}

	prompts := promptx.LoadPromptSet()
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = prompts.System
	}

	o := &Orchestrator{
		store:        store,
		llm:          llm,
		registry:     registry,
		catalog:      catalog,
		cart:         cart,
		exec:         executorx.New(cart, payment),
		systemPrompt: systemPrompt,
		imageNudge:   prompts.ImageNudge,
		successURL:   strings.TrimSpace(cfg.CheckoutSuccessURL),
		cancelURL:    strings.TrimSpace(cfg.CheckoutCancelURL),
		now:          time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// ProcessTurn runs one full turn. Upstream completion failures do not fail
// the call; they degrade it to a fixed apology with no suggestions and no
// pending action, and the turn's partial transcript is not persisted.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (contractx.TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, in)
	if err != nil {
		if errors.Is(err, contractx.ErrUpstream) {
			log.Error().Err(err).Str("session_id", in.SessionID).Msg("turn degraded: completion upstream failed")
			return contractx.TurnResult{ResponseText: degradedReply}, nil
		}
		return contractx.TurnResult{}, err
	}
	return out, nil
}

// ConfirmAction resolves a gated action, bypassing the completion endpoint.
func (o *Orchestrator) ConfirmAction(ctx context.Context, pending contractx.PendingAction, confirmed bool) contractx.ActionResult {
	return o.exec.Execute(ctx, pending, confirmed)
}
