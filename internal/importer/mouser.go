package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/xuri/excelize/v2"
)

// mouserColumns maps Mouser spreadsheet headers to fields. Mouser exports have
// no backorder column.
var mouserColumns = []column{
	{Header: "Order Qty.", Required: true, Set: setQuantity(func(li *model.LineItem) *uint { return &li.Quantity })},
	{Header: "Mouser #:", Required: true, Set: setText(func(li *model.LineItem) *string { return &li.PartNumber })},
	{Header: "Mfr. #:", Set: setText(func(li *model.LineItem) *string { return &li.ManufacturerPartNumber })},
	{Header: "Desc.:", Set: setText(func(li *model.LineItem) *string { return &li.Description })},
	{Header: "Customer #", Set: setText(func(li *model.LineItem) *string { return &li.CustomerReference })},
	{Header: "Price (USD)", Required: true, Set: setPrice},
}

// Mouser parses Mouser order spreadsheets (first sheet, header on the first
// non-empty row).
type Mouser struct{}

// Supplier implements Adapter.
func (Mouser) Supplier() model.SupplierType { return model.SupplierMouser }

// Parse implements Adapter.
func (Mouser) Parse(ctx context.Context, r io.Reader, opts Options) (ParseResult, error) {
	var result ParseResult

	f, err := excelize.OpenReader(NewCountingReader(r, opts.MaxBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return result, err
		}
		return result, fmt.Errorf("%w: open workbook: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return result, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return result, fmt.Errorf("%w: read sheet %q: %w", ErrUnreadable, sheet, err)
	}

	headerAt := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return result, fmt.Errorf("%w: empty file", ErrUnreadable)
	}

	cols, err := bindColumns(mouserColumns, MakeHeaderIndex(rows[headerAt]))
	if err != nil {
		return result, err
	}

	for i := headerAt + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		// Spreadsheet rows are 1-based.
		item, rowErrs := mapRow(i+1, row, cols)
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
