package contract

import "context"

// CompletionClient is the boundary to the LLM completion endpoint. One call
// returns exactly one assistant message carrying content, tool calls, or both.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (Message, error)
}

type ProductCatalog interface {
	Search(ctx context.Context, query string, filters *SearchFilters) ([]Product, error)
	Details(ctx context.Context, productID string) (*ProductDetails, error)
	Related(ctx context.Context, productID string, limit int) ([]Product, error)
}

type CartService interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Add(ctx context.Context, sessionID, productID string, quantity int) (*Cart, error)
	Remove(ctx context.Context, sessionID, productID string) (*Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*Cart, error)
	Clear(ctx context.Context, sessionID string) (*Cart, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, cart *Cart, email, successURL, cancelURL string) (*CheckoutSession, error)
	VerifyPayment(ctx context.Context, checkoutID string) (bool, error)
}
