package tool

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

const (
	NameSearchProducts     = "search_products"
	NameGetProductDetails  = "get_product_details"
	NameGetRelatedProducts = "get_related_products"
	NameGetCart            = "get_cart"
	NameAddToCart          = "add_to_cart"
	NameCreateCheckout     = "create_checkout"
)

const defaultRelatedLimit = 3

type SearchArgs struct {
	Query   string                   `json:"query" jsonschema:"description=Search query text"`
	Filters *contractx.SearchFilters `json:"filters,omitempty" jsonschema:"description=Optional filters such as price range and category"`
}

type ProductDetailsArgs struct {
	ProductID string `json:"product_id" jsonschema:"description=Unique product identifier"`
}

type RelatedProductsArgs struct {
	ProductID string `json:"product_id" jsonschema:"description=Product identifier"`
	Limit     int    `json:"limit,omitempty" jsonschema:"description=Maximum number of related products to return"`
}

type GetCartArgs struct{}

type AddToCartArgs struct {
	ProductID string `json:"product_id" jsonschema:"description=Product to add"`
	Quantity  int    `json:"quantity,omitempty" jsonschema:"description=Quantity to add (defaults to 1)"`
}

type CreateCheckoutArgs struct {
	Email      string `json:"email" jsonschema:"description=Customer email address"`
	SuccessURL string `json:"success_url,omitempty" jsonschema:"description=Redirect URL after successful payment"`
	CancelURL  string `json:"cancel_url,omitempty" jsonschema:"description=Redirect URL if payment is cancelled"`
}

type handler func(ctx context.Context, sessionID string, args json.RawMessage) (any, []contractx.Product, error)

// Registry declares the callable tools and dispatches read-only calls to the
// collaborators. Gated tools are declared here but never executed through
// Dispatch; the orchestrator intercepts them first.
type Registry struct {
	catalog  contractx.ProductCatalog
	cart     contractx.CartService
	specs    []contractx.ToolSpec
	handlers map[string]handler
}

func NewRegistry(catalog contractx.ProductCatalog, cart contractx.CartService) *Registry {
	r := &Registry{
		catalog: catalog,
		cart:    cart,
		specs: []contractx.ToolSpec{
			{
				Name:        NameSearchProducts,
				Description: "Search for products based on query and filters",
				Parameters:  schemaFor(&SearchArgs{}),
			},
			{
				Name:        NameGetProductDetails,
				Description: "Get detailed information about a specific product",
				Parameters:  schemaFor(&ProductDetailsArgs{}),
			},
			{
				Name:        NameGetRelatedProducts,
				Description: "Get products related to a specific product",
				Parameters:  schemaFor(&RelatedProductsArgs{}),
			},
			{
				Name:        NameGetCart,
				Description: "Get the current contents of the user's shopping cart",
				Parameters:  schemaFor(&GetCartArgs{}),
			},
			{
				Name:        NameAddToCart,
				Description: "Add a product to the user's shopping cart; requires user confirmation before executing",
				Parameters:  schemaFor(&AddToCartArgs{}),
				Gated:       true,
			},
			{
				Name:        NameCreateCheckout,
				Description: "Start the checkout process for the current cart; requires user confirmation before executing",
				Parameters:  schemaFor(&CreateCheckoutArgs{}),
				Gated:       true,
			},
		},
	}
	r.handlers = map[string]handler{
		NameSearchProducts:     r.searchProducts,
		NameGetProductDetails:  r.getProductDetails,
		NameGetRelatedProducts: r.getRelatedProducts,
		NameGetCart:            r.getCart,
	}
	return r
}

// Specs lists every tool, gated ones included, for the completion endpoint.
func (r *Registry) Specs() []contractx.ToolSpec {
	out := make([]contractx.ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Gated(name string) bool {
	for _, spec := range r.specs {
		if spec.Name == name {
			return spec.Gated
		}
	}
	return false
}

// Dispatch executes one read-only tool call. Unknown tools, malformed
// arguments, and collaborator failures all come back as structured error
// payloads so the model can react; only a gated name is a hard error.
func (r *Registry) Dispatch(ctx context.Context, sessionID string, call contractx.ToolCall) (contractx.ToolResult, error) {
	if r.Gated(call.Name) {
		return contractx.ToolResult{}, fmt.Errorf("%w: gated tool %q must not be dispatched", contractx.ErrProtocol, call.Name)
	}

	result := contractx.ToolResult{CallID: call.ID, Tool: call.Name}

	h, ok := r.handlers[call.Name]
	if !ok {
		result.Payload = errorPayload(fmt.Sprintf("%s: %s", contractx.ErrUnknownTool, call.Name))
		return result, nil
	}

	out, products, err := h(ctx, sessionID, call.Arguments)
	if err != nil {
		result.Payload = errorPayload(err.Error())
		return result, nil
	}

	payload, err := json.Marshal(out)
	if err != nil {
		result.Payload = errorPayload(fmt.Sprintf("encode result: %v", err))
		return result, nil
	}
	result.Payload = payload
	result.Products = products
	return result, nil
}

func (r *Registry) searchProducts(ctx context.Context, _ string, raw json.RawMessage) (any, []contractx.Product, error) {
	var args SearchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, nil, err
	}
	products, err := r.catalog.Search(ctx, args.Query, args.Filters)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{
		"count":    len(products),
		"products": products,
	}, products, nil
}

func (r *Registry) getProductDetails(ctx context.Context, _ string, raw json.RawMessage) (any, []contractx.Product, error) {
	var args ProductDetailsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, nil, err
	}
	details, err := r.catalog.Details(ctx, args.ProductID)
	if err != nil {
		return nil, nil, err
	}
	return details, []contractx.Product{details.Product}, nil
}

func (r *Registry) getRelatedProducts(ctx context.Context, _ string, raw json.RawMessage) (any, []contractx.Product, error) {
	var args RelatedProductsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, nil, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	products, err := r.catalog.Related(ctx, args.ProductID, limit)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{
		"count":    len(products),
		"products": products,
	}, products, nil
}

func (r *Registry) getCart(ctx context.Context, sessionID string, _ json.RawMessage) (any, []contractx.Product, error) {
	cart, err := r.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return cart, nil, nil
}

func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

func errorPayload(msg string) json.RawMessage {
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return json.RawMessage(`{"error":"internal"}`)
	}
	return payload
}
