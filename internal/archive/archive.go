// Package archive keeps a copy of every imported raw invoice file.
//
// The location returned by an Archiver is stored on the invoice so the
// original file can be retrieved later.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

// Archiver stores raw bytes under key and returns where they ended up.
type Archiver interface {
	Store(ctx context.Context, key string, r io.Reader, contentType string) (location string, err error)
}

// Key returns the archive key for an invoice file:
// invoices/<supplier>/<orderNumber><ext>.
func Key(supplier model.SupplierType, orderNumber uint64, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("invoices/%s/%d%s", strings.ToLower(string(supplier)), orderNumber, ext)
}

// ContentType guesses a MIME type from the file extension.
func ContentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}

// Nop discards files and reports no location.
type Nop struct{}

func (Nop) Store(_ context.Context, _ string, r io.Reader, _ string) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "", err
}
