package catalog

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

func TestSearchByKeyword(t *testing.T) {
	t.Parallel()

	m := NewMock()

	products, err := m.Search(context.Background(), "laptop", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 laptops, got %d", len(products))
	}
	for _, p := range products {
		if p.Category != "laptops" {
			t.Fatalf("unexpected category: %+v", p)
		}
	}
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	t.Parallel()

	m := NewMock()

	products, err := m.Search(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 5 {
		t.Fatalf("expected full catalog, got %d", len(products))
	}
}

func TestSearchNoMatchReturnsEmptySlice(t *testing.T) {
	t.Parallel()

	m := NewMock()

	products, err := m.Search(context.Background(), "submarine", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", products)
	}
}

func TestSearchFilters(t *testing.T) {
	t.Parallel()

	m := NewMock()
	maxPrice := 900.0

	products, err := m.Search(context.Background(), "laptop", &contractx.SearchFilters{MaxPrice: &maxPrice})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1001" {
		t.Fatalf("expected only the budget laptop, got %+v", products)
	}

	products, err = m.Search(context.Background(), "", &contractx.SearchFilters{Brand: "pear"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1005" {
		t.Fatalf("brand filter failed: %+v", products)
	}

	minPrice := 500.0
	products, err = m.Search(context.Background(), "", &contractx.SearchFilters{
		MinPrice: &minPrice,
		Category: "laptops",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("combined filters failed: %+v", products)
	}
}

func TestSearchByTag(t *testing.T) {
	t.Parallel()

	m := NewMock()

	products, err := m.Search(context.Background(), "noise-cancelling", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1004" {
		t.Fatalf("tag search failed: %+v", products)
	}
}

func TestDetails(t *testing.T) {
	t.Parallel()

	m := NewMock()

	details, err := m.Details(context.Background(), "p1002")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if details.Name != "Ultra-thin Professional Laptop" {
		t.Fatalf("unexpected product: %+v", details.Product)
	}
	if details.Specifications["ram"] != "16GB" {
		t.Fatalf("specifications missing: %+v", details.Specifications)
	}

	if _, err := m.Details(context.Background(), "p9999"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRelated(t *testing.T) {
	t.Parallel()

	m := NewMock()

	related, err := m.Related(context.Background(), "p1001", 3)
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}
	if len(related) != 1 || related[0].ID != "p1002" {
		t.Fatalf("expected the other laptop, got %+v", related)
	}

	if _, err := m.Related(context.Background(), "p9999", 3); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
