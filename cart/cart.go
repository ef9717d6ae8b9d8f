// Package cart provides the in-memory per-session shopping cart backend.
package cart

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

const (
	taxRate      = 0.10
	flatShipping = 5.99
)

// Memory keeps one cart per session, guarded by a single mutex. Product data
// is resolved through the catalog at add time and snapshotted into the item.
type Memory struct {
	mu      sync.Mutex
	catalog contractx.ProductCatalog
	carts   map[string]*contractx.Cart
	now     func() time.Time
}

var _ contractx.CartService = (*Memory)(nil)

func NewMemory(catalog contractx.ProductCatalog) *Memory {
	return &Memory{
		catalog: catalog,
		carts:   make(map[string]*contractx.Cart),
		now:     time.Now,
	}
}

// Get returns the session's cart, creating an empty one on first access.
func (m *Memory) Get(_ context.Context, sessionID string) (*contractx.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(m.getLocked(sessionID)), nil
}

// Add puts quantity units of the product into the cart, merging with an
// existing line for the same product.
func (m *Memory) Add(ctx context.Context, sessionID, productID string, quantity int) (*contractx.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", contractx.ErrValidation)
	}

	details, err := m.catalog.Details(ctx, productID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.getLocked(sessionID)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, contractx.CartItem{
			Product:  details.Product,
			Quantity: quantity,
		})
	}

	m.recalcLocked(cart)
	return m.snapshot(cart), nil
}

func (m *Memory) Remove(_ context.Context, sessionID, productID string) (*contractx.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.getLocked(sessionID)
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}

	m.recalcLocked(cart)
	return m.snapshot(cart), nil
}

// UpdateQuantity sets the line quantity for the product. Zero or negative
// removes the line; a positive quantity for an absent product adds it.
func (m *Memory) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*contractx.Cart, error) {
	if quantity <= 0 {
		return m.Remove(ctx, sessionID, productID)
	}

	m.mu.Lock()
	cart := m.getLocked(sessionID)
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items[i].Quantity = quantity
			m.recalcLocked(cart)
			snap := m.snapshot(cart)
			m.mu.Unlock()
			return snap, nil
		}
	}
	m.mu.Unlock()

	return m.Add(ctx, sessionID, productID, quantity)
}

func (m *Memory) Clear(_ context.Context, sessionID string) (*contractx.Cart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.getLocked(sessionID)
	cart.Items = cart.Items[:0]
	m.recalcLocked(cart)
	return m.snapshot(cart), nil
}

func (m *Memory) getLocked(sessionID string) *contractx.Cart {
	cart, ok := m.carts[sessionID]
	if !ok {
		now := m.now().UTC()
		cart = &contractx.Cart{
			SessionID: sessionID,
			Items:     []contractx.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.carts[sessionID] = cart
	}
	return cart
}

// recalcLocked rebuilds the derived money fields. Shipping is a flat fee and
// tax a flat rate on the subtotal; an empty cart totals zero everywhere.
func (m *Memory) recalcLocked(cart *contractx.Cart) {
	subtotal := 0.0
	for i := range cart.Items {
		cart.Items[i].ItemTotal = round2(cart.Items[i].Product.Price * float64(cart.Items[i].Quantity))
		subtotal += cart.Items[i].ItemTotal
	}

	cart.Subtotal = round2(subtotal)
	if len(cart.Items) == 0 {
		cart.Tax = 0
		cart.Shipping = 0
		cart.Total = 0
	} else {
		cart.Tax = round2(subtotal * taxRate)
		cart.Shipping = flatShipping
		cart.Total = round2(cart.Subtotal + cart.Tax + cart.Shipping)
	}
	cart.UpdatedAt = m.now().UTC()
}

func (m *Memory) snapshot(cart *contractx.Cart) *contractx.Cart {
	out := *cart
	out.Items = make([]contractx.CartItem, len(cart.Items))
	copy(out.Items, cart.Items)
	return &out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
