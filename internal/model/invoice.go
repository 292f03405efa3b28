package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SupplierType identifies the supplier whose file format produced an invoice.
type SupplierType string

const (
	SupplierDigiKey SupplierType = "DigiKey"
	SupplierMouser  SupplierType = "Mouser"
)

// supplierTypes lists every known supplier, in display order.
var supplierTypes = []SupplierType{SupplierDigiKey, SupplierMouser}

// ParseSupplierType resolves a supplier name case-insensitively.
func ParseSupplierType(s string) (SupplierType, error) {
	for _, st := range supplierTypes {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown supplier type %q", s)
}

// Valid reports whether st is a known supplier.
func (st SupplierType) Valid() bool {
	_, err := ParseSupplierType(string(st))
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (st SupplierType) MarshalText() ([]byte, error) {
	if !st.Valid() {
		return nil, fmt.Errorf("unknown supplier type %q", string(st))
	}
	return []byte(st), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (st *SupplierType) UnmarshalText(b []byte) error {
	v, err := ParseSupplierType(string(b))
	if err != nil {
		return err
	}
	*st = v
	return nil
}

// LineItem is one purchased line on a supplier invoice. It is not modified after parsing.
type LineItem struct {
	Quantity               uint            `json:"quantity"`
	PartNumber             string          `json:"partNumber"`
	ManufacturerPartNumber string          `json:"manufacturerPartNumber"`
	Description            string          `json:"description"`
	CustomerReference      string          `json:"customerReference"`
	UnitPrice              decimal.Decimal `json:"unitPrice"`
	Backorder              uint            `json:"backorder"`
}

// ExtendedPrice returns UnitPrice × Quantity.
func (li LineItem) ExtendedPrice() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Invoice is every line item of one supplier order, keyed by order number.
type Invoice struct {
	ID           string       `json:"id"`
	OrderNumber  uint64       `json:"orderNumber"`
	SupplierType SupplierType `json:"supplierType"`
	LineItems    []LineItem   `json:"lineItems"`

	// Path locates the archived source file, if archiving is enabled.
	Path string `json:"path,omitempty"`
}

// GetID implements Identifiable.
func (inv Invoice) GetID() string { return inv.ID }

// Subtotal is the sum of the line items' extended prices.
// It is recomputed on every call and never stored.
func (inv Invoice) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range inv.LineItems {
		total = total.Add(li.ExtendedPrice())
	}
	return total
}

// MarshalJSON adds the derived subtotal to the encoded invoice.
// A subtotal present in decoded input is ignored.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	type plain Invoice
	items := inv.LineItems
	if items == nil {
		items = []LineItem{}
	}
	p := plain(inv)
	p.LineItems = items
	return json.Marshal(struct {
		plain
		Subtotal decimal.Decimal `json:"subtotal"`
	}{p, inv.Subtotal()})
}
