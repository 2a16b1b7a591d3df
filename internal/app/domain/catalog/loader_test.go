package catalog

import "testing"

func TestParseDocument(t *testing.T) {
	doc := []byte(`{
		"uai-essential-physical": {"name": "Essential (Physical)", "price": {"value": 15000, "currency": "USD"}},
		"uai-standard-physical": {"name": "Standard (Physical)", "price": {"value": 75000}}
	}`)

	products, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	idx := NewIndex(products)
	p, ok := idx.Product("uai-essential-physical")
	if !ok {
		t.Fatalf("indexed product missing")
	}
	if p.Name != "Essential (Physical)" || p.Price.Value != 15000 || p.Price.Currency != "USD" {
		t.Fatalf("unexpected product: %#v", p)
	}

	// Missing currency defaults to USD.
	p, _ = idx.Product("uai-standard-physical")
	if p.Price.Currency != "USD" {
		t.Fatalf("expected default currency, got %q", p.Price.Currency)
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	if _, err := ParseDocument([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
	if _, err := ParseDocument([]byte(`{"p": {"price": {"value": 100}}}`)); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := ParseDocument([]byte(`{"p": {"name": "x", "price": {"value": 0}}}`)); err == nil {
		t.Fatalf("expected error for non-positive price")
	}
}
