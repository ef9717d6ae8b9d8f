package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

// Executor performs a previously gated action once the user has confirmed it.
// The PendingAction round-tripped by the caller is the sole source of truth
// for the intent; only the live cart is re-read for checkout. Collaborator
// failures never propagate as errors, they surface in the ActionResult.
type Executor struct {
	cart    contractx.CartService
	payment contractx.PaymentGateway
}

func New(cart contractx.CartService, payment contractx.PaymentGateway) *Executor {
	return &Executor{cart: cart, payment: payment}
}

func (e *Executor) Execute(ctx context.Context, pending contractx.PendingAction, confirmed bool) contractx.ActionResult {
	if !confirmed {
		return contractx.ActionResult{
			Status:  contractx.ActionCancelled,
			Message: "Action cancelled.",
		}
	}

	switch pending.Type {
	case contractx.ActionAddToCart:
		return e.addToCart(ctx, pending)
	case contractx.ActionCheckout:
		return e.checkout(ctx, pending)
	default:
		return errorResult(fmt.Sprintf("unsupported action type: %s", pending.Type))
	}
}

func (e *Executor) addToCart(ctx context.Context, pending contractx.PendingAction) contractx.ActionResult {
	if strings.TrimSpace(pending.SessionID) == "" {
		return errorResult("session id is required")
	}
	if pending.AddToCart == nil || strings.TrimSpace(pending.AddToCart.ProductID) == "" {
		return errorResult("product id is required")
	}

	quantity := pending.AddToCart.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	cart, err := e.cart.Add(ctx, pending.SessionID, pending.AddToCart.ProductID, quantity)
	if err != nil {
		log.Warn().Err(err).
			Str("session_id", pending.SessionID).
			Str("product_id", pending.AddToCart.ProductID).
			Msg("add to cart failed")
		return errorResult(err.Error())
	}

	return contractx.ActionResult{
		Status:  contractx.ActionSuccess,
		Message: "Item added to cart.",
		Cart:    cart,
	}
}

func (e *Executor) checkout(ctx context.Context, pending contractx.PendingAction) contractx.ActionResult {
	if strings.TrimSpace(pending.SessionID) == "" {
		return errorResult("session id is required")
	}
	if pending.Checkout == nil {
		return errorResult("checkout payload is required")
	}
	if strings.TrimSpace(pending.Checkout.Email) == "" {
		return errorResult("email is required")
	}
	if strings.TrimSpace(pending.Checkout.SuccessURL) == "" || strings.TrimSpace(pending.Checkout.CancelURL) == "" {
		return errorResult("success and cancel URLs are required")
	}

	cart, err := e.cart.Get(ctx, pending.SessionID)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(cart.Items) == 0 {
		return errorResult("cart is empty")
	}

	session, err := e.payment.CreateCheckoutSession(ctx, cart,
		pending.Checkout.Email, pending.Checkout.SuccessURL, pending.Checkout.CancelURL)
	if err != nil {
		log.Warn().Err(err).
			Str("session_id", pending.SessionID).
			Msg("create checkout session failed")
		return errorResult(err.Error())
	}

	return contractx.ActionResult{
		Status:   contractx.ActionSuccess,
		Message:  "Checkout initiated successfully. Redirecting to payment page...",
		Checkout: session,
	}
}

func errorResult(msg string) contractx.ActionResult {
	return contractx.ActionResult{
		Status:  contractx.ActionError,
		Message: msg,
	}
}
