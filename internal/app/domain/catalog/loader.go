package catalog

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// ParseDocument parses a catalog document of the shape the storefront
// template serves to the page:
//
//	{"uai-essential-physical": {"name": "...", "price": {"value": 15000, "currency": "USD"}}}
//
// Entries without a name or with a non-positive price value are rejected.
func ParseDocument(data []byte) ([]Product, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("catalog document is not valid JSON")
	}

	var products []Product
	var parseErr error
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		name := value.Get("name").String()
		priceValue := value.Get("price.value").Int()
		currency := value.Get("price.currency").String()

		if name == "" {
			parseErr = fmt.Errorf("product %s: name is required", id)
			return false
		}
		if priceValue <= 0 {
			parseErr = fmt.Errorf("product %s: price.value must be positive", id)
			return false
		}
		if currency == "" {
			currency = "USD"
		}

		products = append(products, Product{
			ID:   id,
			Name: name,
			Price: Price{
				Value:    priceValue,
				Currency: currency,
			},
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return products, nil
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseDocument(data)
}
