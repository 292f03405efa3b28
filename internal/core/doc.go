// Package core provides the business logic for invoice import and part number
// allocation.
//
// This package holds all domain logic independent of any transport. It is
// used by the HTTP handlers, the CLI and tests without modification. All
// operations hang off [Service], which wraps a [store.Store], an
// [archive.Archiver] and an [ImportLimiter].
//
// # Invoice Import
//
// A file name carries two facts: the extension picks the supplier adapter and
// the base name is the order number.
//
//	123456.csv   -> DigiKey, order 123456
//	778899.xlsx  -> Mouser,  order 778899
//
// [Service.ImportFile] runs one file through adapter select, parse, assemble,
// archive and reconcile. [Service.ImportFiles] runs many files concurrently
// and reports per-file failures next to the invoices that succeeded; one bad
// file never blocks the others.
//
// Reconciliation is an upsert on order number. Re-importing a file replaces
// the stored invoice in full and keeps its id.
//
// # Part Numbers
//
// [Service.AllocatePartNumber] issues "CCSS-NNNN" numbers where NNNN counts
// from 1 within each (user, category, subcategory). The stores enforce a unique
// index on that scope, and a lost race is retried against fresh data.
//
// # User References
//
// Users hold four id lists (parts, invoices, bins, part numbers).
// [Service.AppendReference] and [Service.RemoveReference] update exactly one of
// them, selected by a [model.Selector], with a conditional write that fails
// with [ConcurrencyConflictError] if another request changed the list first.
//
// # Inbox Sweep
//
// [Service.SweepInbox] imports every invoice file dropped into a directory and
// sorts them into processed/ and failed/. [Service.StartInboxScheduler] runs it
// on a cron schedule.
//
// # Error Handling
//
// Failures are typed: [ValidationError], [NotFoundError], [FileRejectedError],
// [ConcurrencyConflictError] and [AggregateError]. [HTTPStatus] maps them to
// status codes and [MapError] to user-friendly messages with a support code:
//
//   - BATCH001: Some files in a batch failed
//   - VAL001-VAL004: Validation errors (order number, category, selector)
//   - NF001-NF003: Missing records and references
//   - FILE001-FILE006: File errors (size, format, columns, rows)
//   - CONC001: Concurrent modification
//   - DB001-DB007, UPL002-UPL005, RATE001: Pattern-matched driver errors
package core
