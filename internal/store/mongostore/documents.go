package mongostore

import (
	"fmt"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BSON has no unsigned 64-bit type. Order numbers are stored as the int64
// with the same bit pattern, which keeps the unique index one-to-one.
func orderKey(n uint64) int64     { return int64(n) }
func orderFromKey(k int64) uint64 { return uint64(k) }

type lineItemDoc struct {
	Quantity               int64                `bson:"quantity"`
	PartNumber             string               `bson:"part_number"`
	ManufacturerPartNumber string               `bson:"manufacturer_part_number,omitempty"`
	Description            string               `bson:"description,omitempty"`
	CustomerReference      string               `bson:"customer_reference,omitempty"`
	UnitPrice              primitive.Decimal128 `bson:"unit_price"`
	Backorder              int64                `bson:"backorder"`
}

type invoiceDoc struct {
	ID           string        `bson:"_id"`
	OrderNumber  int64         `bson:"order_number"`
	SupplierType string        `bson:"supplier_type"`
	LineItems    []lineItemDoc `bson:"line_items"`
	Path         string        `bson:"path,omitempty"`
}

type partNumberDoc struct {
	ID          string `bson:"_id"`
	OwnerID     string `bson:"owner_id"`
	Category    int32  `bson:"category"`
	SubCategory int32  `bson:"subcategory"`
	Sequence    int64  `bson:"sequence"`
}

type userDoc struct {
	ID          string   `bson:"_id"`
	Name        string   `bson:"name"`
	Parts       []string `bson:"parts"`
	Invoices    []string `bson:"invoices"`
	Bins        []string `bson:"bins"`
	PartNumbers []string `bson:"part_numbers"`
}

type partDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	PartNumber  string `bson:"part_number,omitempty"`
	Description string `bson:"description,omitempty"`
	Quantity    int64  `bson:"quantity"`
	BinID       string `bson:"bin_id,omitempty"`
}

type binDoc struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Location string `bson:"location,omitempty"`
}

func toInvoiceDoc(inv model.Invoice) (invoiceDoc, error) {
	items := make([]lineItemDoc, len(inv.LineItems))
	for i, li := range inv.LineItems {
		price, err := primitive.ParseDecimal128(li.UnitPrice.String())
		if err != nil {
			return invoiceDoc{}, fmt.Errorf("line %d unit price %s: %w", i, li.UnitPrice, err)
		}
		items[i] = lineItemDoc{
			Quantity:               int64(li.Quantity),
			PartNumber:             li.PartNumber,
			ManufacturerPartNumber: li.ManufacturerPartNumber,
			Description:            li.Description,
			CustomerReference:      li.CustomerReference,
			UnitPrice:              price,
			Backorder:              int64(li.Backorder),
		}
	}

	return invoiceDoc{
		ID:           inv.ID,
		OrderNumber:  orderKey(inv.OrderNumber),
		SupplierType: string(inv.SupplierType),
		LineItems:    items,
		Path:         inv.Path,
	}, nil
}

func (d invoiceDoc) model() (model.Invoice, error) {
	supplier, err := model.ParseSupplierType(d.SupplierType)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", d.ID, err)
	}

	items := make([]model.LineItem, len(d.LineItems))
	for i, li := range d.LineItems {
		price, err := decimal.NewFromString(li.UnitPrice.String())
		if err != nil {
			return model.Invoice{}, fmt.Errorf("invoice %s line %d unit price: %w", d.ID, i, err)
		}
		items[i] = model.LineItem{
			Quantity:               uint(li.Quantity),
			PartNumber:             li.PartNumber,
			ManufacturerPartNumber: li.ManufacturerPartNumber,
			Description:            li.Description,
			CustomerReference:      li.CustomerReference,
			UnitPrice:              price,
			Backorder:              uint(li.Backorder),
		}
	}

	return model.Invoice{
		ID:           d.ID,
		OrderNumber:  orderFromKey(d.OrderNumber),
		SupplierType: supplier,
		LineItems:    items,
		Path:         d.Path,
	}, nil
}

func toPartNumberDoc(pn model.PartNumber) partNumberDoc {
	return partNumberDoc{
		ID:          pn.ID,
		OwnerID:     pn.OwnerID,
		Category:    int32(pn.Category),
		SubCategory: int32(pn.SubCategory),
		Sequence:    int64(pn.Sequence),
	}
}

func (d partNumberDoc) model() model.PartNumber {
	return model.PartNumber{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Category:    uint8(d.Category),
		SubCategory: uint8(d.SubCategory),
		Sequence:    uint32(d.Sequence),
	}
}

func toUserDoc(u model.User) userDoc {
	return userDoc{
		ID:          u.ID,
		Name:        u.Name,
		Parts:       nonNil(u.Parts),
		Invoices:    nonNil(u.Invoices),
		Bins:        nonNil(u.Bins),
		PartNumbers: nonNil(u.PartNumbers),
	}
}

func (d userDoc) model() model.User {
	return model.User{
		ID:          d.ID,
		Name:        d.Name,
		Parts:       d.Parts,
		Invoices:    d.Invoices,
		Bins:        d.Bins,
		PartNumbers: d.PartNumbers,
	}
}

func toPartDoc(p model.Part) partDoc {
	return partDoc{
		ID:          p.ID,
		Name:        p.Name,
		PartNumber:  p.PartNumber,
		Description: p.Description,
		Quantity:    int64(p.Quantity),
		BinID:       p.BinID,
	}
}

func (d partDoc) model() model.Part {
	return model.Part{
		ID:          d.ID,
		Name:        d.Name,
		PartNumber:  d.PartNumber,
		Description: d.Description,
		Quantity:    uint(d.Quantity),
		BinID:       d.BinID,
	}
}

func toBinDoc(b model.Bin) binDoc { return binDoc(b) }

func (d binDoc) model() model.Bin { return model.Bin(d) }

// nonNil keeps empty lists as [] in BSON so $push style readers never see null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
