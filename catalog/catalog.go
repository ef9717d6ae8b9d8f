// Package catalog provides the in-memory product catalog backend.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

// Mock is a fixed in-memory catalog. All lookups are case-insensitive
// substring matches over name, description, category, brand, and tags.
type Mock struct {
	products []contractx.ProductDetails
	byID     map[string]*contractx.ProductDetails
}

var _ contractx.ProductCatalog = (*Mock)(nil)

func NewMock() *Mock {
	m := &Mock{products: seedProducts()}
	m.byID = make(map[string]*contractx.ProductDetails, len(m.products))
	for i := range m.products {
		m.byID[m.products[i].ID] = &m.products[i]
	}
	return m
}

func (m *Mock) Search(_ context.Context, query string, filters *contractx.SearchFilters) ([]contractx.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]contractx.Product, 0, len(m.products))
	for i := range m.products {
		p := &m.products[i]
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		if !matchesFilters(&p.Product, filters) {
			continue
		}
		out = append(out, p.Product)
	}
	return out, nil
}

func (m *Mock) Details(_ context.Context, productID string) (*contractx.ProductDetails, error) {
	p, ok := m.byID[strings.TrimSpace(productID)]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", contractx.ErrNotFound, productID)
	}
	details := *p
	return &details, nil
}

// Related returns other products from the same category, highest rated first.
func (m *Mock) Related(_ context.Context, productID string, limit int) ([]contractx.Product, error) {
	base, ok := m.byID[strings.TrimSpace(productID)]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", contractx.ErrNotFound, productID)
	}
	if limit <= 0 {
		limit = 3
	}

	related := make([]contractx.Product, 0, limit)
	for i := range m.products {
		p := &m.products[i]
		if p.ID == base.ID {
			continue
		}
		if !strings.EqualFold(p.Category, base.Category) {
			continue
		}
		related = append(related, p.Product)
	}
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Rating > related[j].Rating
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func matchesQuery(p *contractx.ProductDetails, query string) bool {
	for _, field := range []string{p.Name, p.Description, p.Category, p.Brand} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func matchesFilters(p *contractx.Product, filters *contractx.SearchFilters) bool {
	if filters == nil {
		return true
	}
	if filters.MinPrice != nil && p.Price < *filters.MinPrice {
		return false
	}
	if filters.MaxPrice != nil && p.Price > *filters.MaxPrice {
		return false
	}
	if filters.Category != "" && !strings.EqualFold(p.Category, filters.Category) {
		return false
	}
	if filters.Brand != "" && !strings.EqualFold(p.Brand, filters.Brand) {
		return false
	}
	return true
}

func seedProducts() []contractx.ProductDetails {
	return []contractx.ProductDetails{
		{
			Product: contractx.Product{
				ID:          "p1001",
				Name:        "Budget Gaming Laptop",
				Description: "Affordable gaming laptop with dedicated graphics and a fast refresh display.",
				Price:       799.99,
				ImageURL:    "https://example.com/images/p1001.jpg",
				Category:    "laptops",
				Brand:       "TechX",
				Rating:      4.2,
				InStock:     true,
			},
			LongDescription: "A capable entry-level gaming laptop. Runs modern titles at medium settings and doubles as a solid everyday machine.",
			Specifications: map[string]string{
				"cpu":     "6-core 3.3GHz",
				"gpu":     "dedicated 6GB",
				"ram":     "16GB",
				"storage": "512GB SSD",
				"display": "15.6-inch 144Hz",
			},
			Tags: []string{"gaming", "laptop", "budget"},
		},
		{
			Product: contractx.Product{
				ID:          "p1002",
				Name:        "Ultra-thin Professional Laptop",
				Description: "Lightweight professional laptop with all-day battery life and a sharp display.",
				Price:       1299.99,
				ImageURL:    "https://example.com/images/p1002.jpg",
				Category:    "laptops",
				Brand:       "Macrosoft",
				Rating:      4.7,
				InStock:     true,
			},
			LongDescription: "Premium build at under 1.2kg. Ideal for travel and office work, with a color-accurate display for creative tasks.",
			Specifications: map[string]string{
				"cpu":     "8-core 2.8GHz",
				"ram":     "16GB",
				"storage": "1TB SSD",
				"display": "14-inch 2.8K",
				"weight":  "1.18kg",
			},
			Tags: []string{"laptop", "professional", "ultrabook"},
		},
		{
			Product: contractx.Product{
				ID:          "p1003",
				Name:        "Smart 4K Television",
				Description: "55-inch 4K smart TV with HDR and built-in streaming apps.",
				Price:       549.99,
				ImageURL:    "https://example.com/images/p1003.jpg",
				Category:    "televisions",
				Brand:       "VisionPlus",
				Rating:      4.4,
				InStock:     true,
			},
			LongDescription: "Crisp 4K picture with wide color gamut HDR. Voice remote and the major streaming services out of the box.",
			Specifications: map[string]string{
				"size":       "55-inch",
				"resolution": "3840x2160",
				"hdr":        "HDR10+",
				"ports":      "4x HDMI, 2x USB",
			},
			Tags: []string{"tv", "4k", "smart"},
		},
		{
			Product: contractx.Product{
				ID:          "p1004",
				Name:        "Wireless Noise Cancelling Headphones",
				Description: "Over-ear wireless headphones with active noise cancellation and 30-hour battery.",
				Price:       249.99,
				ImageURL:    "https://example.com/images/p1004.jpg",
				Category:    "audio",
				Brand:       "SoundMaster",
				Rating:      4.6,
				InStock:     true,
			},
			LongDescription: "Class-leading noise cancellation with a comfortable over-ear fit. Multipoint Bluetooth and quick charge support.",
			Specifications: map[string]string{
				"battery":   "30 hours",
				"bluetooth": "5.3",
				"anc":       "adaptive",
				"weight":    "254g",
			},
			Tags: []string{"headphones", "wireless", "noise-cancelling"},
		},
		{
			Product: contractx.Product{
				ID:          "p1005",
				Name:        "High-Performance Smartphone",
				Description: "Flagship smartphone with a pro-grade camera system and fast charging.",
				Price:       899.99,
				ImageURL:    "https://example.com/images/p1005.jpg",
				Category:    "smartphones",
				Brand:       "Pear",
				Rating:      4.5,
				InStock:     true,
			},
			LongDescription: "Flagship performance with a triple camera, 120Hz OLED display, and 50W wired charging.",
			Specifications: map[string]string{
				"display": "6.5-inch 120Hz OLED",
				"camera":  "50MP triple",
				"battery": "4800mAh",
				"storage": "256GB",
			},
			Tags: []string{"smartphone", "camera", "flagship"},
		},
	}
}
