package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

// digiKeyColumns maps DigiKey CSV headers (matched case-insensitively) to fields.
var digiKeyColumns = []column{
	{Header: "QUANTITY", Required: true, Set: setQuantity(func(li *model.LineItem) *uint { return &li.Quantity })},
	{Header: "PART NUMBER", Required: true, Set: setText(func(li *model.LineItem) *string { return &li.PartNumber })},
	{Header: "MANUFACTURER PART NUMBER", Set: setText(func(li *model.LineItem) *string { return &li.ManufacturerPartNumber })},
	{Header: "DESCRIPTION", Set: setText(func(li *model.LineItem) *string { return &li.Description })},
	{Header: "CUSTOMER REFERENCE", Set: setText(func(li *model.LineItem) *string { return &li.CustomerReference })},
	{Header: "BACKORDER", Set: setQuantity(func(li *model.LineItem) *uint { return &li.Backorder })},
	{Header: "UNIT PRICE", Required: true, Set: setPrice},
}

// IsTotalsRow reports whether a DigiKey record is the report's subtotal line:
// exactly 9 fields with field 7 equal to "subtotal" in any case.
func IsTotalsRow(record []string) bool {
	return len(record) == 9 && strings.ToLower(record[7]) == "subtotal"
}

// DigiKey parses DigiKey order CSV exports.
type DigiKey struct{}

// Supplier implements Adapter.
func (DigiKey) Supplier() model.SupplierType { return model.SupplierDigiKey }

// Parse implements Adapter.
func (DigiKey) Parse(ctx context.Context, r io.Reader, opts Options) (ParseResult, error) {
	var result ParseResult

	reader := csv.NewReader(WrapForParsing(r, opts.MaxBytes))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return result, fmt.Errorf("%w: empty file", ErrUnreadable)
	}
	if err != nil {
		return result, fmt.Errorf("%w: read header: %w", ErrUnreadable, err)
	}

	cols, err := bindColumns(digiKeyColumns, MakeHeaderIndex(header))
	if err != nil {
		return result, err
	}

	for rowNum := 1; ; rowNum++ {
		if rowNum%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, ErrFileTooLarge) {
				return result, err
			}
			var csvErr *csv.ParseError
			if !errors.As(err, &csvErr) {
				return result, fmt.Errorf("%w: %w", ErrUnreadable, err)
			}
			perr := ParseError{Line: csvErr.Line, Message: csvErr.Err.Error()}
			if !opts.IgnoreLineErrors {
				return result, perr
			}
			result.Errors = append(result.Errors, perr)
			continue
		}

		if IsTotalsRow(record) || isBlankRow(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		item, rowErrs := mapRow(line, record, cols)
		if len(rowErrs) > 0 {
			if !opts.IgnoreLineErrors {
				return result, rowErrs[0]
			}
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}
