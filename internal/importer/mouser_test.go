package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows to the first sheet of a new workbook and returns its bytes.
func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var mouserHeader = []any{"Order Qty.", "Mouser #:", "Mfr. #:", "Desc.:", "Customer #", "Price (USD)", "Ext.: (USD)"}

func TestMouser_Parse(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		mouserHeader,
		{10, "595-NE555P", "NE555P", "Timers 555 Timer", "U1", "$0.48", "$4.80"},
		{"25", "603-CFR-25JB-52-10K", "CFR-25JB-52-10K", "Carbon Film Resistors", "", 0.1, 2.5},
	})

	result, err := Mouser{}.Parse(context.Background(), buf, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, uint(10), first.Quantity)
	assert.Equal(t, "595-NE555P", first.PartNumber)
	assert.Equal(t, "NE555P", first.ManufacturerPartNumber)
	assert.Equal(t, "Timers 555 Timer", first.Description)
	assert.Equal(t, "U1", first.CustomerReference)
	assert.True(t, decimal.RequireFromString("0.48").Equal(first.UnitPrice))
	assert.Zero(t, first.Backorder)

	second := result.Items[1]
	assert.Equal(t, uint(25), second.Quantity)
	assert.True(t, decimal.RequireFromString("0.1").Equal(second.UnitPrice))
}

func TestMouser_HeaderAfterBlankRows(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{},
		{},
		mouserHeader,
		{1, "P-1", "", "", "", "1.00"},
	})

	result, err := Mouser{}.Parse(context.Background(), buf, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "P-1", result.Items[0].PartNumber)
}

func TestMouser_PropertyErrorsAreCollected(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		mouserHeader,
		{"many", "P-1", "", "", "", "1.00"},
		{2, "P-2", "", "", "", "1.00"},
		{"", "", "", "Merchandise Total", "", "2.00"},
	})

	result, err := Mouser{}.Parse(context.Background(), buf, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "P-2", result.Items[0].PartNumber)

	require.NotEmpty(t, result.Errors)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Equal(t, "Order Qty.", result.Errors[0].Column)
}

func TestMouser_StrictMode(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		mouserHeader,
		{"many", "P-1", "", "", "", "1.00"},
	})

	_, err := Mouser{}.Parse(context.Background(), buf, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestMouser_MissingColumns(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"Qty", "Part"},
		{1, "x"},
	})

	_, err := Mouser{}.Parse(context.Background(), buf, DefaultOptions())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMouser_NotAWorkbook(t *testing.T) {
	_, err := Mouser{}.Parse(context.Background(), strings.NewReader("not,a,workbook\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestMouser_LargeSheet(t *testing.T) {
	rows := [][]any{mouserHeader}
	for i := 1; i <= 500; i++ {
		rows = append(rows, []any{i, fmt.Sprintf("P-%d", i), "", "", "", "0.01"})
	}

	result, err := Mouser{}.Parse(context.Background(), buildWorkbook(t, rows), DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, result.Items, 500)
}
