// Package importer turns supplier invoice files into line items.
//
// Each supported supplier format has an [Adapter]. Adapters are selected by
// file extension through a small registry, and the order number is taken from
// the file name:
//
//	123456.csv   -> DigiKey adapter, order 123456
//	778899.xlsx  -> Mouser adapter,  order 778899
//
// Adapters never fail on a single bad row. Row problems are returned as
// [ParseError] values next to the items that did parse; an adapter only returns
// an error when the file as a whole cannot be read.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

var (
	// ErrUnsupportedFormat means no adapter is registered for the file extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingColumn means a required header is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnreadable means the file could not be opened or decoded as its format.
	ErrUnreadable = errors.New("unreadable file")
)

// ParseError describes one row that could not be mapped to a line item.
type ParseError struct {
	Line    int    `json:"line"`             // 1-based line or spreadsheet row
	Column  string `json:"column,omitempty"` // header name, if known
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseResult is the output of one adapter run.
type ParseResult struct {
	Items  []model.LineItem
	Errors []ParseError
}

// Options tune adapter strictness.
type Options struct {
	// IgnoreLineErrors keeps parsing after a bad row. When false the first row
	// error fails the whole file.
	IgnoreLineErrors bool

	// MaxBytes limits the raw file size. Zero means no limit.
	MaxBytes int64
}

// DefaultOptions ignores row errors and sets no size limit.
func DefaultOptions() Options {
	return Options{IgnoreLineErrors: true}
}

// Adapter parses one supplier's invoice export.
type Adapter interface {
	Supplier() model.SupplierType
	Parse(ctx context.Context, r io.Reader, opts Options) (ParseResult, error)
}

var (
	adapters   = make(map[string]Adapter)
	adaptersMu sync.RWMutex
)

// Register binds an adapter to a file extension such as ".csv".
// Panics if the extension is already bound.
func Register(ext string, a Adapter) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()

	ext = strings.ToLower(ext)
	if _, exists := adapters[ext]; exists {
		panic(fmt.Sprintf("adapter already registered for %s", ext))
	}
	adapters[ext] = a
}

// AdapterFor selects the adapter for fileName by extension, case-insensitively.
func AdapterFor(fileName string) (Adapter, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	adaptersMu.RLock()
	defer adaptersMu.RUnlock()

	a, ok := adapters[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return a, nil
}

// Extensions returns the registered extensions, sorted.
func Extensions() []string {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()

	exts := make([]string, 0, len(adapters))
	for ext := range adapters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether fileName has a registered extension.
func Supported(fileName string) bool {
	_, err := AdapterFor(fileName)
	return err == nil
}

func init() {
	Register(".csv", DigiKey{})
	Register(".xlsx", Mouser{})
	Register(".xls", Mouser{})
}
