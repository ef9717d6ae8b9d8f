package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

// MockGateway stands in when no Stripe key is configured. Sessions are held
// in memory and every created session verifies as paid.
type MockGateway struct {
	mu       sync.Mutex
	sessions map[string]string
}

var _ contractx.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{sessions: make(map[string]string)}
}

func (g *MockGateway) CreateCheckoutSession(
	_ context.Context,
	cart *contractx.Cart,
	email, successURL, cancelURL string,
) (*contractx.CheckoutSession, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", contractx.ErrValidation)
	}

	id := "cs_mock_" + uuid.NewString()

	g.mu.Lock()
	g.sessions[id] = cart.SessionID
	g.mu.Unlock()

	return &contractx.CheckoutSession{
		ID:  id,
		URL: "https://checkout.example.com/pay/" + id,
	}, nil
}

func (g *MockGateway) VerifyPayment(_ context.Context, checkoutID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.sessions[checkoutID]; !ok {
		return false, fmt.Errorf("%w: checkout session %s", contractx.ErrNotFound, checkoutID)
	}
	return true, nil
}
