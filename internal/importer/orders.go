package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/model"
)

// ErrInvalidOrderNumber means the file name is not an unsigned integer.
var ErrInvalidOrderNumber = errors.New("invalid order number")

// OrderNumberFromFileName extracts the order number encoded in a file name.
// The base name without its extension must be an unsigned decimal integer.
func OrderNumberFromFileName(fileName string) (uint64, error) {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	n, err := strconv.ParseUint(strings.TrimSpace(stem), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidOrderNumber, stem)
	}
	return n, nil
}

// Assemble builds an invoice from parsed line items. The items are copied so
// later changes to the caller's slice do not leak into the invoice.
func Assemble(orderNumber uint64, supplier model.SupplierType, items []model.LineItem) model.Invoice {
	copied := make([]model.LineItem, len(items))
	copy(copied, items)

	return model.Invoice{
		OrderNumber:  orderNumber,
		SupplierType: supplier,
		LineItems:    copied,
	}
}
