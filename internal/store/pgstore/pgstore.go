package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/JonMunkholm/PartsHole/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store is a store.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) Invoices() store.InvoiceStore       { return invoices{s.pool} }
func (s *Store) PartNumbers() store.PartNumberStore { return partNumbers{s.pool} }
func (s *Store) Users() store.UserStore             { return users{s.pool} }
func (s *Store) Parts() store.PartStore             { return parts{s.pool} }
func (s *Store) Bins() store.BinStore               { return bins{s.pool} }

// isUniqueViolation reports whether err is a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
	default:
		return err
	}
}

// BIGINT has no unsigned form; the bit pattern is kept.
func orderKey(n uint64) int64     { return int64(n) }
func orderFromKey(k int64) uint64 { return uint64(k) }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// --- invoices ---

type invoices struct{ pool *pgxpool.Pool }

const invoiceColumns = `id, order_number, supplier_type, path`

func scanInvoice(row pgx.Row) (model.Invoice, error) {
	var (
		inv      model.Invoice
		order    int64
		supplier string
	)
	if err := row.Scan(&inv.ID, &order, &supplier, &inv.Path); err != nil {
		return model.Invoice{}, mapErr(err)
	}

	st, err := model.ParseSupplierType(supplier)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	inv.OrderNumber = orderFromKey(order)
	inv.SupplierType = st
	return inv, nil
}

// loadLineItems fills LineItems for every invoice in invs.
func loadLineItems(ctx context.Context, q Querier, invs []model.Invoice) error {
	if len(invs) == 0 {
		return nil
	}

	byID := make(map[string]*model.Invoice, len(invs))
	ids := make([]string, len(invs))
	for i := range invs {
		invs[i].LineItems = []model.LineItem{}
		byID[invs[i].ID] = &invs[i]
		ids[i] = invs[i].ID
	}

	rows, err := q.Query(ctx, `
		SELECT invoice_id, quantity, part_number, manufacturer_part_number,
		       description, customer_reference, unit_price, backorder
		FROM invoice_line_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position`, ids)
	if err != nil {
		return fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			invoiceID      string
			qty, backorder int64
			price          decimal.Decimal
			li             model.LineItem
		)
		if err := rows.Scan(&invoiceID, &qty, &li.PartNumber, &li.ManufacturerPartNumber,
			&li.Description, &li.CustomerReference, &price, &backorder); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		li.Quantity = uint(qty)
		li.Backorder = uint(backorder)
		li.UnitPrice = price

		if inv, ok := byID[invoiceID]; ok {
			inv.LineItems = append(inv.LineItems, li)
		}
	}
	return rows.Err()
}

func insertLineItems(ctx context.Context, q Querier, inv model.Invoice) error {
	if len(inv.LineItems) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, li := range inv.LineItems {
		batch.Queue(`
			INSERT INTO invoice_line_items (invoice_id, position, quantity, part_number,
				manufacturer_part_number, description, customer_reference, unit_price, backorder)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			inv.ID, i, int64(li.Quantity), li.PartNumber, li.ManufacturerPartNumber,
			li.Description, li.CustomerReference, li.UnitPrice, int64(li.Backorder))
	}

	br := q.SendBatch(ctx, batch)
	for range inv.LineItems {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert line item: %w", err)
		}
	}
	return br.Close()
}

func (s invoices) Get(ctx context.Context, id string) (model.Invoice, error) {
	return s.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (s invoices) FindByOrderNumber(ctx context.Context, orderNumber uint64) (model.Invoice, error) {
	return s.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_number = $1`, orderKey(orderNumber))
}

func (s invoices) getOne(ctx context.Context, query string, arg any) (model.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return model.Invoice{}, err
	}
	invs := []model.Invoice{inv}
	if err := loadLineItems(ctx, s.pool, invs); err != nil {
		return model.Invoice{}, err
	}
	return invs[0], nil
}

func (s invoices) GetMany(ctx context.Context, ids []string) ([]model.Invoice, error) {
	if len(ids) == 0 {
		return []model.Invoice{}, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	var invs []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invs = append(invs, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadLineItems(ctx, s.pool, invs); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, invs), nil
}

func (s invoices) Insert(ctx context.Context, inv model.Invoice) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoices (id, order_number, supplier_type, path)
			VALUES ($1, $2, $3, $4)`,
			inv.ID, orderKey(inv.OrderNumber), string(inv.SupplierType), inv.Path)
		if err != nil {
			return err
		}
		return insertLineItems(ctx, tx, inv)
	})
	return mapErr(err)
}

// Replace rewrites the header and swaps the line items in one transaction.
func (s invoices) Replace(ctx context.Context, inv model.Invoice) (store.WriteResult, error) {
	var matched int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE invoices SET order_number = $2, supplier_type = $3, path = $4
			WHERE id = $1`,
			inv.ID, orderKey(inv.OrderNumber), string(inv.SupplierType), inv.Path)
		if err != nil {
			return err
		}
		matched = tag.RowsAffected()
		if matched == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLineItems(ctx, tx, inv)
	})
	if err != nil {
		return store.WriteResult{}, mapErr(err)
	}
	return store.WriteResult{Acknowledged: true, Matched: matched, Modified: matched}, nil
}

// --- part numbers ---

type partNumbers struct{ pool *pgxpool.Pool }

func scanPartNumber(row pgx.Row) (model.PartNumber, error) {
	var (
		pn       model.PartNumber
		cat, sub int16
		seq      int64
	)
	if err := row.Scan(&pn.ID, &pn.OwnerID, &cat, &sub, &seq); err != nil {
		return model.PartNumber{}, mapErr(err)
	}
	pn.Category = uint8(cat)
	pn.SubCategory = uint8(sub)
	pn.Sequence = uint32(seq)
	return pn, nil
}

func (s partNumbers) Get(ctx context.Context, id string) (model.PartNumber, error) {
	return scanPartNumber(s.pool.QueryRow(ctx, `
		SELECT id, owner_id, category, subcategory, sequence
		FROM part_numbers WHERE id = $1`, id))
}

func (s partNumbers) GetMany(ctx context.Context, ids []string) ([]model.PartNumber, error) {
	if len(ids) == 0 {
		return []model.PartNumber{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, category, subcategory, sequence
		FROM part_numbers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query part numbers: %w", err)
	}
	defer rows.Close()

	var out []model.PartNumber
	for rows.Next() {
		pn, err := scanPartNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, out), nil
}

func (s partNumbers) Insert(ctx context.Context, pn model.PartNumber) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO part_numbers (id, owner_id, category, subcategory, sequence)
		VALUES ($1, $2, $3, $4, $5)`,
		pn.ID, pn.OwnerID, int16(pn.Category), int16(pn.SubCategory), int64(pn.Sequence))
	return mapErr(err)
}

func (s partNumbers) MaxSequence(ctx context.Context, ownerID string, category, subCategory uint8) (uint32, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence), 0) FROM part_numbers
		WHERE owner_id = $1 AND category = $2 AND subcategory = $3`,
		ownerID, int16(category), int16(subCategory)).Scan(&seq)
	if err != nil {
		return 0, mapErr(err)
	}
	return uint32(seq), nil
}

// --- users ---

type users struct{ pool *pgxpool.Pool }

func (s users) Get(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, parts, invoices, bins, part_numbers
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Parts, &u.Invoices, &u.Bins, &u.PartNumbers)
	if err != nil {
		return model.User{}, mapErr(err)
	}
	return u, nil
}

func (s users) Insert(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, parts, invoices, bins, part_numbers)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, nonNil(u.Parts), nonNil(u.Invoices), nonNil(u.Bins), nonNil(u.PartNumbers))
	return mapErr(err)
}

// setReferencesSQL builds the single-column update for field.
func setReferencesSQL(field string) (string, error) {
	if !store.KnownReferenceField(field) {
		return "", fmt.Errorf("unknown reference field %q", field)
	}
	col := pgx.Identifier{field}.Sanitize()
	return `UPDATE users SET ` + col + ` = $2 WHERE id = $1 AND ` + col + ` = $3`, nil
}

func (s users) SetReferences(ctx context.Context, userID, field string, expected, refs []string) (store.WriteResult, error) {
	query, err := setReferencesSQL(field)
	if err != nil {
		return store.WriteResult{}, err
	}

	tag, err := s.pool.Exec(ctx, query, userID, nonNil(refs), nonNil(expected))
	if err != nil {
		return store.WriteResult{}, mapErr(err)
	}
	n := tag.RowsAffected()
	return store.WriteResult{Acknowledged: true, Matched: n, Modified: n}, nil
}

// --- parts and bins ---

type parts struct{ pool *pgxpool.Pool }

func (s parts) GetMany(ctx context.Context, ids []string) ([]model.Part, error) {
	if len(ids) == 0 {
		return []model.Part{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, part_number, description, quantity, bin_id
		FROM parts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var out []model.Part
	for rows.Next() {
		var (
			p   model.Part
			qty int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.PartNumber, &p.Description, &qty, &p.BinID); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		p.Quantity = uint(qty)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, out), nil
}

func (s parts) Insert(ctx context.Context, p model.Part) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO parts (id, name, part_number, description, quantity, bin_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.PartNumber, p.Description, int64(p.Quantity), p.BinID)
	return mapErr(err)
}

type bins struct{ pool *pgxpool.Pool }

func (s bins) GetMany(ctx context.Context, ids []string) ([]model.Bin, error) {
	if len(ids) == 0 {
		return []model.Bin{}, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id, name, location FROM bins WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query bins: %w", err)
	}
	defer rows.Close()

	var out []model.Bin
	for rows.Next() {
		var b model.Bin
		if err := rows.Scan(&b.ID, &b.Name, &b.Location); err != nil {
			return nil, fmt.Errorf("scan bin: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, out), nil
}

func (s bins) Insert(ctx context.Context, b model.Bin) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO bins (id, name, location) VALUES ($1, $2, $3)`, b.ID, b.Name, b.Location)
	return mapErr(err)
}
