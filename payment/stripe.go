// Package payment provides the checkout gateway backends.
package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

// Config carries the Stripe credentials, loaded with the STRIPE env prefix.
type Config struct {
	APIKey string `envconfig:"API_KEY"`
}

// StripeGateway creates hosted Stripe Checkout sessions for a cart. Amounts
// are converted to cents; tax and shipping ride along as extra line items so
// the hosted page totals match the cart.
type StripeGateway struct {
	api *client.API
}

var _ contractx.PaymentGateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg Config) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: stripe api key is required", contractx.ErrValidation)
	}

	api := &client.API{}
	api.Init(key, nil)
	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) CreateCheckoutSession(
	ctx context.Context,
	cart *contractx.Cart,
	email, successURL, cancelURL string,
) (*contractx.CheckoutSession, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", contractx.ErrValidation)
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(cart.Items)+2)
	for _, item := range cart.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(toCents(item.Product.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(item.Product.Name),
					Description: stripe.String(item.Product.Description),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}
	if cart.Tax > 0 {
		lineItems = append(lineItems, extraLineItem("Tax", cart.Tax))
	}
	if cart.Shipping > 0 {
		lineItems = append(lineItems, extraLineItem("Shipping", cart.Shipping))
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(email),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
		LineItems:          lineItems,
	}
	params.AddMetadata("session_id", cart.SessionID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}

	return &contractx.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, checkoutID string) (bool, error) {
	sess, err := g.api.CheckoutSessions.Get(checkoutID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return false, fmt.Errorf("get stripe checkout session: %w", err)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

func extraLineItem(name string, amount float64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(toCents(amount)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(1),
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
