// Package model defines the canonical records shared by every layer of PartsHole:
// invoices and their line items, part numbers, users and the minimal part/bin
// records that users reference.
//
// The package is pure. Nothing here performs I/O; persistence lives in the store
// packages and orchestration lives in core.
//
// # Part numbers
//
// A [PartNumber] is ordered and compared by its composite value
//
//	category·10⁶ + subcategory·10⁴ + sequence
//
// in ascending order. The string form is "CCSS-NNNN", for example "0101-0007".
// [ParsePartNumber] is intentionally loose: sub-fields that fail to parse are left
// at zero instead of failing the whole parse.
//
// # Reference selectors
//
// A [User] holds four reference lists. Operations pick one of them with a
// [Selector]; the mapping from selector to list lives in a single table so a new
// list kind is one new row.
package model
