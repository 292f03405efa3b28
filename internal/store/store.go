// Package store defines the persistence contract used by the core service and
// an in-memory implementation of it.
//
// Backends live in subpackages: mongostore (MongoDB) and pgstore (PostgreSQL).
// All backends enforce the same two unique indexes, which are what make
// re-import and part number allocation safe under concurrency:
//
//   - invoices:     order_number
//   - part numbers: (owner_id, category, subcategory, sequence)
//
// Lookups of a single record return ErrNotFound when it is absent. GetMany
// returns the records that exist, in the order of the requested ids, and
// silently skips ids that do not resolve.
package store

import (
	"context"
	"errors"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

var (
	// ErrNotFound means no record matched.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey means a unique index rejected the write.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotAcknowledged means the backend did not confirm the write.
	ErrNotAcknowledged = errors.New("write not acknowledged")
)

// WriteResult reports what an update did.
type WriteResult struct {
	Acknowledged bool
	Matched      int64
	Modified     int64
}

// InvoiceStore persists invoices keyed by id with a unique order number.
type InvoiceStore interface {
	Get(ctx context.Context, id string) (model.Invoice, error)
	GetMany(ctx context.Context, ids []string) ([]model.Invoice, error)
	FindByOrderNumber(ctx context.Context, orderNumber uint64) (model.Invoice, error)

	// Insert fails with ErrDuplicateKey if the id or order number exists.
	Insert(ctx context.Context, inv model.Invoice) error

	// Replace overwrites the invoice with inv.ID in full.
	Replace(ctx context.Context, inv model.Invoice) (WriteResult, error)
}

// PartNumberStore persists allocated part numbers.
type PartNumberStore interface {
	Get(ctx context.Context, id string) (model.PartNumber, error)
	GetMany(ctx context.Context, ids []string) ([]model.PartNumber, error)

	// Insert fails with ErrDuplicateKey if (owner, category, subcategory,
	// sequence) is taken.
	Insert(ctx context.Context, pn model.PartNumber) error

	// MaxSequence returns the highest sequence stored for the scope, or 0.
	MaxSequence(ctx context.Context, ownerID string, category, subCategory uint8) (uint32, error)
}

// UserStore persists users and their reference lists.
type UserStore interface {
	Get(ctx context.Context, id string) (model.User, error)
	Insert(ctx context.Context, u model.User) error

	// SetReferences overwrites one reference list. field is a
	// model.Selector key; no other field is written. The write only applies
	// while the stored list still equals expected, otherwise Matched is 0.
	SetReferences(ctx context.Context, userID, field string, expected, refs []string) (WriteResult, error)
}

// PartStore persists parts.
type PartStore interface {
	GetMany(ctx context.Context, ids []string) ([]model.Part, error)
	Insert(ctx context.Context, p model.Part) error
}

// BinStore persists bins.
type BinStore interface {
	GetMany(ctx context.Context, ids []string) ([]model.Bin, error)
	Insert(ctx context.Context, b model.Bin) error
}

// Store groups the per-entity stores of one backend.
type Store interface {
	Invoices() InvoiceStore
	PartNumbers() PartNumberStore
	Users() UserStore
	Parts() PartStore
	Bins() BinStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// OrderByIDs arranges records to follow ids, dropping ids with no record.
// A repeated id yields the record once per occurrence.
func OrderByIDs[T model.Identifiable](ids []string, records []T) []T {
	byID := make(map[string]T, len(records))
	for _, r := range records {
		byID[r.GetID()] = r
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// KnownReferenceField reports whether field is a user reference list key.
// Backends check it before building a query from the field name.
func KnownReferenceField(field string) bool {
	for _, s := range model.Selectors() {
		if s.Key() == field {
			return true
		}
	}
	return false
}
