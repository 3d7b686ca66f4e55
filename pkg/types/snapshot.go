package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ProductSnapshot freezes the product attributes a line item was sold
// under. Later edits to the catalog must not change what the customer
// sees on an existing order.
type ProductSnapshot struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	Title       string `json:"title"`
	VariantName string `json:"variant_name,omitempty"`
	SKU         string `json:"sku,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	TaxRateBps  int64  `json:"tax_rate_bps"`
}

func (s ProductSnapshot) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal product snapshot: %w", err)
	}
	return string(raw), nil
}

func (s *ProductSnapshot) Scan(src any) error {
	if src == nil {
		*s = ProductSnapshot{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan product snapshot: unsupported type %T", src)
	}
	return json.Unmarshal(raw, s)
}
