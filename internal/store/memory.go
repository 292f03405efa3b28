package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

// Memory is a Store held in process memory. It enforces the same unique
// indexes as the database backends and is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	invoices    map[string]model.Invoice
	orderIndex  map[uint64]string
	partNumbers map[string]model.PartNumber
	scopeIndex  map[scopeKey]string
	users       map[string]model.User
	parts       map[string]model.Part
	bins        map[string]model.Bin
}

type scopeKey struct {
	owner       string
	category    uint8
	subCategory uint8
	sequence    uint32
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		invoices:    make(map[string]model.Invoice),
		orderIndex:  make(map[uint64]string),
		partNumbers: make(map[string]model.PartNumber),
		scopeIndex:  make(map[scopeKey]string),
		users:       make(map[string]model.User),
		parts:       make(map[string]model.Part),
		bins:        make(map[string]model.Bin),
	}
}

func (m *Memory) Invoices() InvoiceStore       { return memInvoices{m} }
func (m *Memory) PartNumbers() PartNumberStore { return memPartNumbers{m} }
func (m *Memory) Users() UserStore             { return memUsers{m} }
func (m *Memory) Parts() PartStore             { return memParts{m} }
func (m *Memory) Bins() BinStore               { return memBins{m} }

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close(context.Context) error { return nil }

// getMany looks up ids in src under the read lock held by the caller.
func getMany[T model.Identifiable](src map[string]T, ids []string) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := src[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	inv.LineItems = slices.Clone(inv.LineItems)
	return inv
}

func cloneUser(u model.User) model.User {
	u.Parts = slices.Clone(u.Parts)
	u.Invoices = slices.Clone(u.Invoices)
	u.Bins = slices.Clone(u.Bins)
	u.PartNumbers = slices.Clone(u.PartNumbers)
	return u
}

// --- invoices ---

type memInvoices struct{ m *Memory }

func (s memInvoices) Get(_ context.Context, id string) (model.Invoice, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	inv, ok := s.m.invoices[id]
	if !ok {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	return cloneInvoice(inv), nil
}

func (s memInvoices) GetMany(_ context.Context, ids []string) ([]model.Invoice, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	out := getMany(s.m.invoices, ids)
	for i := range out {
		out[i] = cloneInvoice(out[i])
	}
	return out, nil
}

func (s memInvoices) FindByOrderNumber(_ context.Context, orderNumber uint64) (model.Invoice, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	id, ok := s.m.orderIndex[orderNumber]
	if !ok {
		return model.Invoice{}, fmt.Errorf("invoice for order %d: %w", orderNumber, ErrNotFound)
	}
	return cloneInvoice(s.m.invoices[id]), nil
}

func (s memInvoices) Insert(_ context.Context, inv model.Invoice) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, exists := s.m.invoices[inv.ID]; exists {
		return fmt.Errorf("invoice id %s: %w", inv.ID, ErrDuplicateKey)
	}
	if _, exists := s.m.orderIndex[inv.OrderNumber]; exists {
		return fmt.Errorf("invoice order %d: %w", inv.OrderNumber, ErrDuplicateKey)
	}

	s.m.invoices[inv.ID] = cloneInvoice(inv)
	s.m.orderIndex[inv.OrderNumber] = inv.ID
	return nil
}

func (s memInvoices) Replace(_ context.Context, inv model.Invoice) (WriteResult, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	old, ok := s.m.invoices[inv.ID]
	if !ok {
		return WriteResult{Acknowledged: true}, nil
	}
	if owner, taken := s.m.orderIndex[inv.OrderNumber]; taken && owner != inv.ID {
		return WriteResult{}, fmt.Errorf("invoice order %d: %w", inv.OrderNumber, ErrDuplicateKey)
	}

	delete(s.m.orderIndex, old.OrderNumber)
	s.m.invoices[inv.ID] = cloneInvoice(inv)
	s.m.orderIndex[inv.OrderNumber] = inv.ID
	return WriteResult{Acknowledged: true, Matched: 1, Modified: 1}, nil
}

// --- part numbers ---

type memPartNumbers struct{ m *Memory }

func (s memPartNumbers) Get(_ context.Context, id string) (model.PartNumber, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	pn, ok := s.m.partNumbers[id]
	if !ok {
		return model.PartNumber{}, fmt.Errorf("part number %s: %w", id, ErrNotFound)
	}
	return pn, nil
}

func (s memPartNumbers) GetMany(_ context.Context, ids []string) ([]model.PartNumber, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return getMany(s.m.partNumbers, ids), nil
}

func (s memPartNumbers) Insert(_ context.Context, pn model.PartNumber) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := scopeKey{pn.OwnerID, pn.Category, pn.SubCategory, pn.Sequence}
	if _, exists := s.m.partNumbers[pn.ID]; exists {
		return fmt.Errorf("part number id %s: %w", pn.ID, ErrDuplicateKey)
	}
	if _, exists := s.m.scopeIndex[key]; exists {
		return fmt.Errorf("part number %s for owner %s: %w", pn, pn.OwnerID, ErrDuplicateKey)
	}

	s.m.partNumbers[pn.ID] = pn
	s.m.scopeIndex[key] = pn.ID
	return nil
}

func (s memPartNumbers) MaxSequence(_ context.Context, ownerID string, category, subCategory uint8) (uint32, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var highest uint32
	for key := range s.m.scopeIndex {
		if key.owner == ownerID && key.category == category && key.subCategory == subCategory && key.sequence > highest {
			highest = key.sequence
		}
	}
	return highest, nil
}

// --- users ---

type memUsers struct{ m *Memory }

func (s memUsers) Get(_ context.Context, id string) (model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	u, ok := s.m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s memUsers) Insert(_ context.Context, u model.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, exists := s.m.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, ErrDuplicateKey)
	}
	s.m.users[u.ID] = cloneUser(u)
	return nil
}

func (s memUsers) SetReferences(_ context.Context, userID, field string, expected, refs []string) (WriteResult, error) {
	sel, err := model.ParseSelector(field)
	if err != nil || sel.Key() != field {
		return WriteResult{}, fmt.Errorf("unknown reference field %q", field)
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	u, ok := s.m.users[userID]
	if !ok {
		return WriteResult{Acknowledged: true}, nil
	}

	current, _ := sel.Refs(&u)
	if !slices.Equal(current, expected) {
		return WriteResult{Acknowledged: true}, nil
	}
	if slices.Equal(current, refs) {
		return WriteResult{Acknowledged: true, Matched: 1}, nil
	}

	_ = sel.SetRefs(&u, slices.Clone(refs))
	s.m.users[userID] = u
	return WriteResult{Acknowledged: true, Matched: 1, Modified: 1}, nil
}

// --- parts and bins ---

type memParts struct{ m *Memory }

func (s memParts) GetMany(_ context.Context, ids []string) ([]model.Part, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return getMany(s.m.parts, ids), nil
}

func (s memParts) Insert(_ context.Context, p model.Part) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, exists := s.m.parts[p.ID]; exists {
		return fmt.Errorf("part %s: %w", p.ID, ErrDuplicateKey)
	}
	s.m.parts[p.ID] = p
	return nil
}

type memBins struct{ m *Memory }

func (s memBins) GetMany(_ context.Context, ids []string) ([]model.Bin, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return getMany(s.m.bins, ids), nil
}

func (s memBins) Insert(_ context.Context, b model.Bin) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, exists := s.m.bins[b.ID]; exists {
		return fmt.Errorf("bin %s: %w", b.ID, ErrDuplicateKey)
	}
	s.m.bins[b.ID] = b
	return nil
}
