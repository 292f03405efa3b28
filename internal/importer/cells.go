package importer

// cells.go maps raw cell text onto LineItem fields.
//
// Supplier exports are messy: prices carry currency symbols and thousands
// separators, spreadsheets sometimes store quantities as "10.0", and cells
// exported from Excel may be wrapped as ="value". Each adapter describes its
// columns as a []column table; mapRow applies that table to one row.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/shopspring/decimal"
)

// HeaderIndex maps lower-cased header names to column positions.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a case-insensitive index of a header row.
// When a header repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell trims whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// numericRegex matches a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// cleanNumber strips currency symbols, thousands separators and accounting
// parentheses. "(1,234.50)" becomes "-1234.50".
func cleanNumber(s string) string {
	s = CleanCell(s)
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if neg {
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(s)
	if neg && s != "" {
		s = "-" + s
	}
	return s
}

// ParsePrice parses a unit price. Empty input is zero.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if !numericRegex.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	return d, nil
}

// ParseQuantity parses a non-negative whole quantity. Empty input is zero.
// Spreadsheet values like "10.0" are accepted; "2.5" is not.
func ParseQuantity(s string) (uint, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 10, 0); err == nil {
		return uint(n), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !numericRegex.MatchString(s) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("quantity must be a whole non-negative number, got %q", s)
	}
	return uint(d.IntPart()), nil
}

// column binds one header to a LineItem field.
type column struct {
	Header   string
	Required bool
	Set      func(li *model.LineItem, raw string) error
}

func setText(f func(*model.LineItem) *string) func(*model.LineItem, string) error {
	return func(li *model.LineItem, raw string) error {
		*f(li) = CleanCell(raw)
		return nil
	}
}

func setQuantity(f func(*model.LineItem) *uint) func(*model.LineItem, string) error {
	return func(li *model.LineItem, raw string) error {
		n, err := ParseQuantity(raw)
		if err != nil {
			return err
		}
		*f(li) = n
		return nil
	}
}

func setPrice(li *model.LineItem, raw string) error {
	d, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	li.UnitPrice = d
	return nil
}

// boundColumn is a column resolved against a header row.
type boundColumn struct {
	column
	pos int
}

// bindColumns resolves cols against idx. A missing required column fails;
// a missing optional column is skipped.
func bindColumns(cols []column, idx HeaderIndex) ([]boundColumn, error) {
	var missing []string
	bound := make([]boundColumn, 0, len(cols))

	for _, c := range cols {
		pos, ok := idx[strings.ToLower(c.Header)]
		if !ok {
			if c.Required {
				missing = append(missing, c.Header)
			}
			continue
		}
		bound = append(bound, boundColumn{column: c, pos: pos})
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return bound, nil
}

// mapRow applies bound columns to a row. Every failing cell is reported; the
// item is only usable when the returned slice is empty.
func mapRow(line int, row []string, cols []boundColumn) (model.LineItem, []ParseError) {
	var li model.LineItem
	var errs []ParseError

	for _, c := range cols {
		raw := ""
		if c.pos < len(row) {
			raw = row[c.pos]
		}
		if c.Required && CleanCell(raw) == "" {
			errs = append(errs, ParseError{Line: line, Column: c.Header, Message: "required field is empty"})
			continue
		}
		if err := c.Set(&li, raw); err != nil {
			errs = append(errs, ParseError{Line: line, Column: c.Header, Value: raw, Message: err.Error()})
		}
	}

	return li, errs
}

// isBlankRow reports whether every cell is empty after cleanup.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
