package model

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Bounds for the fixed-width fields of "CCSS-NNNN".
const (
	MaxCategory    = 99
	MaxSubCategory = 99
	MaxSequence    = 9999
)

// PartNumber is a structured identifier: category, subcategory and a sequence
// that starts at 1 within each (owner, category, subcategory) scope.
type PartNumber struct {
	ID          string `json:"id,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
	Category    uint8  `json:"category"`
	SubCategory uint8  `json:"subCategory"`
	Sequence    uint32 `json:"sequence"`
}

// GetID implements Identifiable.
func (p PartNumber) GetID() string { return p.ID }

// Composite returns category·10⁶ + subcategory·10⁴ + sequence.
// Equality and ordering are defined on this value only.
func (p PartNumber) Composite() uint64 {
	return uint64(p.Category)*1_000_000 + uint64(p.SubCategory)*10_000 + uint64(p.Sequence)
}

// Compare returns -1, 0 or +1 ordering p before, equal to or after o.
func (p PartNumber) Compare(o PartNumber) int {
	return cmp.Compare(p.Composite(), o.Composite())
}

// Less reports whether p sorts before o.
func (p PartNumber) Less(o PartNumber) bool { return p.Compare(o) < 0 }

// Equal reports whether p and o have the same composite value.
// Ids and owners are not compared.
func (p PartNumber) Equal(o PartNumber) bool { return p.Composite() == o.Composite() }

// InScope reports whether p belongs to the given category/subcategory.
func (p PartNumber) InScope(category, subCategory uint8) bool {
	return p.Category == category && p.SubCategory == subCategory
}

// String returns the canonical "CCSS-NNNN" form.
func (p PartNumber) String() string { return FormatPartNumber(p) }

// FormatPartNumber renders p as zero-padded "CCSS-NNNN".
func FormatPartNumber(p PartNumber) string {
	return fmt.Sprintf("%02d%02d-%04d", p.Category, p.SubCategory, p.Sequence)
}

// ParsePartNumber decodes a "CCSS-NNNN" string.
//
// Parsing is loose. The input is split on "-"; unless there are exactly two
// segments the zero PartNumber is returned. The first two digits of the first
// segment are the category and the next two the subcategory; the second segment
// is the sequence. Any sub-field that fails to parse stays zero.
func ParsePartNumber(s string) PartNumber {
	var pn PartNumber

	segments := strings.Split(strings.TrimSpace(s), "-")
	if len(segments) != 2 {
		return pn
	}

	head := segments[0]
	if len(head) >= 2 {
		if v, err := strconv.ParseUint(head[:2], 10, 8); err == nil {
			pn.Category = uint8(v)
		}
	}
	if len(head) >= 4 {
		if v, err := strconv.ParseUint(head[2:4], 10, 8); err == nil {
			pn.SubCategory = uint8(v)
		}
	}
	if v, err := strconv.ParseUint(segments[1], 10, 32); err == nil {
		pn.Sequence = uint32(v)
	}

	return pn
}

// SortPartNumbers sorts in place by ascending composite value.
func SortPartNumbers(pns []PartNumber) {
	slices.SortStableFunc(pns, PartNumber.Compare)
}

// NextSequence returns one more than the highest sequence in pns that falls in
// the given scope, or 1 when the scope is empty.
func NextSequence(pns []PartNumber, category, subCategory uint8) uint32 {
	var highest uint32
	for _, pn := range pns {
		if pn.InScope(category, subCategory) && pn.Sequence > highest {
			highest = pn.Sequence
		}
	}
	return highest + 1
}
