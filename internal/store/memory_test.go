package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_InvoiceOrderNumberIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Invoices()

	require.NoError(t, s.Insert(ctx, model.Invoice{ID: "a", OrderNumber: 7}))
	err := s.Insert(ctx, model.Invoice{ID: "b", OrderNumber: 7})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	err = s.Insert(ctx, model.Invoice{ID: "a", OrderNumber: 8})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := s.FindByOrderNumber(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = s.FindByOrderNumber(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_InvoiceReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Invoices()

	require.NoError(t, s.Insert(ctx, model.Invoice{
		ID: "a", OrderNumber: 7, SupplierType: model.SupplierDigiKey,
		LineItems: []model.LineItem{{Quantity: 1, PartNumber: "OLD"}},
	}))

	res, err := s.Replace(ctx, model.Invoice{
		ID: "a", OrderNumber: 7, SupplierType: model.SupplierDigiKey,
		LineItems: []model.LineItem{
			{Quantity: 3, PartNumber: "NEW", UnitPrice: decimal.RequireFromString("0.10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{Acknowledged: true, Matched: 1, Modified: 1}, res)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "NEW", got.LineItems[0].PartNumber)

	res, err = s.Replace(ctx, model.Invoice{ID: "missing", OrderNumber: 9})
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Invoices().Insert(ctx, model.Invoice{
		ID: "a", OrderNumber: 1, LineItems: []model.LineItem{{PartNumber: "X"}},
	}))
	got, _ := m.Invoices().Get(ctx, "a")
	got.LineItems[0].PartNumber = "mutated"

	again, _ := m.Invoices().Get(ctx, "a")
	assert.Equal(t, "X", again.LineItems[0].PartNumber)

	require.NoError(t, m.Users().Insert(ctx, model.User{ID: "u", Parts: []string{"p1"}}))
	u, _ := m.Users().Get(ctx, "u")
	u.Parts[0] = "mutated"

	u2, _ := m.Users().Get(ctx, "u")
	assert.Equal(t, []string{"p1"}, u2.Parts)
}

func TestMemory_GetManyFollowsRequestOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Bins()

	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, s.Insert(ctx, model.Bin{ID: id}))
	}

	got, err := s.GetMany(ctx, []string{"b3", "gone", "b1", "b3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "b1", "b3"}, model.IDs(got))
}

func TestMemory_PartNumberScopeIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().PartNumbers()

	pn := model.PartNumber{ID: "1", OwnerID: "u", Category: 1, SubCategory: 1, Sequence: 1}
	require.NoError(t, s.Insert(ctx, pn))

	dup := pn
	dup.ID = "2"
	assert.ErrorIs(t, s.Insert(ctx, dup), ErrDuplicateKey)

	other := dup
	other.OwnerID = "v"
	assert.NoError(t, s.Insert(ctx, other), "another owner may hold the same number")
}

func TestMemory_MaxSequence(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().PartNumbers()

	seq, err := s.MaxSequence(ctx, "u", 1, 1)
	require.NoError(t, err)
	assert.Zero(t, seq)

	for i, n := range []uint32{3, 9, 4} {
		require.NoError(t, s.Insert(ctx, model.PartNumber{
			ID: fmt.Sprint(i), OwnerID: "u", Category: 1, SubCategory: 1, Sequence: n,
		}))
	}
	require.NoError(t, s.Insert(ctx, model.PartNumber{ID: "x", OwnerID: "u", Category: 1, SubCategory: 2, Sequence: 50}))
	require.NoError(t, s.Insert(ctx, model.PartNumber{ID: "y", OwnerID: "v", Category: 1, SubCategory: 1, Sequence: 70}))

	seq, err = s.MaxSequence(ctx, "u", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), seq)
}

func TestMemory_SetReferencesWritesOneField(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Users()

	require.NoError(t, s.Insert(ctx, model.User{
		ID: "u", Name: "Ada",
		Parts: []string{"p1"}, Invoices: []string{"i1"}, Bins: []string{"b1"},
	}))

	res, err := s.SetReferences(ctx, "u", "part_numbers", nil, []string{"n1", "n2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Modified)

	u, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, u.PartNumbers)
	assert.Equal(t, []string{"p1"}, u.Parts)
	assert.Equal(t, []string{"i1"}, u.Invoices)
	assert.Equal(t, []string{"b1"}, u.Bins)
	assert.Equal(t, "Ada", u.Name)

	res, err = s.SetReferences(ctx, "u", "part_numbers", []string{"n1", "n2"}, []string{"n1", "n2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Zero(t, res.Modified, "unchanged list")

	res, err = s.SetReferences(ctx, "nobody", "parts", nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Zero(t, res.Matched)

	_, err = s.SetReferences(ctx, "u", "name", nil, []string{"x"})
	assert.Error(t, err)
}

func TestMemory_SetReferencesRejectsStaleList(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Users()

	require.NoError(t, s.Insert(ctx, model.User{ID: "u", Bins: []string{"b1"}}))

	res, err := s.SetReferences(ctx, "u", "bins", []string{"b1"}, []string{"b1", "b2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Modified)

	// A writer that read the list before b2 was added loses.
	res, err = s.SetReferences(ctx, "u", "bins", []string{"b1"}, []string{"b1", "b3"})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Zero(t, res.Matched)

	u, _ := s.Get(ctx, "u")
	assert.Equal(t, []string{"b1", "b2"}, u.Bins)
}

func TestMemory_ConcurrentPartNumberInserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().PartNumbers()

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(ctx, model.PartNumber{
				ID: fmt.Sprint(i), OwnerID: "u", Category: 2, SubCategory: 3, Sequence: 1,
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestKnownReferenceField(t *testing.T) {
	for _, f := range []string{"parts", "invoices", "bins", "part_numbers"} {
		assert.True(t, KnownReferenceField(f), f)
	}
	for _, f := range []string{"partnumbers", "name", "_id", ""} {
		assert.False(t, KnownReferenceField(f), f)
	}
}

func TestOrderByIDs(t *testing.T) {
	recs := []model.Part{{ID: "b"}, {ID: "a"}}
	got := OrderByIDs([]string{"a", "x", "b"}, recs)
	assert.Equal(t, []string{"a", "b"}, model.IDs(got))
}
