package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

// Reconcile upserts inv by order number. An existing invoice keeps its id and
// is replaced in full; otherwise inv is inserted under a new id. The stored
// invoice is returned.
//
// A replace that is not acknowledged or matches nothing, and an insert that
// loses to a concurrent insert of the same order number, both fail with
// ConcurrencyConflictError. Neither is retried.
func (s *Service) Reconcile(ctx context.Context, inv model.Invoice) (model.Invoice, error) {
	invoices := s.store.Invoices()

	existing, err := invoices.FindByOrderNumber(ctx, inv.OrderNumber)
	switch {
	case err == nil:
		inv.ID = existing.ID

		res, err := invoices.Replace(ctx, inv)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return model.Invoice{}, &ConcurrencyConflictError{Op: "replace invoice", ID: inv.ID, Err: err}
			}
			return model.Invoice{}, fmt.Errorf("replace invoice %d: %w", inv.OrderNumber, err)
		}
		if !res.Acknowledged {
			return model.Invoice{}, &ConcurrencyConflictError{Op: "replace invoice", ID: inv.ID, Err: store.ErrNotAcknowledged}
		}
		if res.Matched == 0 {
			return model.Invoice{}, &ConcurrencyConflictError{Op: "replace invoice", ID: inv.ID, Err: errors.New("invoice removed during replace")}
		}
		return inv, nil

	case errors.Is(err, store.ErrNotFound):
		inv.ID = s.newID()

		if err := invoices.Insert(ctx, inv); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return model.Invoice{}, &ConcurrencyConflictError{
					Op:  "insert invoice",
					ID:  fmt.Sprint(inv.OrderNumber),
					Err: err,
				}
			}
			return model.Invoice{}, fmt.Errorf("insert invoice %d: %w", inv.OrderNumber, err)
		}
		return inv, nil

	default:
		return model.Invoice{}, fmt.Errorf("find invoice %d: %w", inv.OrderNumber, err)
	}
}

// GetInvoiceByOrderNumber returns the stored invoice for an order.
func (s *Service) GetInvoiceByOrderNumber(ctx context.Context, orderNumber uint64) (model.Invoice, error) {
	inv, err := s.store.Invoices().FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return model.Invoice{}, notFound(err, "invoice", fmt.Sprint(orderNumber))
	}
	return inv, nil
}
