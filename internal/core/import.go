package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/PartsHole/internal/archive"
	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/logging"
	"github.com/JonMunkholm/PartsHole/internal/model"
	"golang.org/x/sync/errgroup"
)

// FileInput is one invoice file to import. The order number and the adapter
// are both derived from Name.
type FileInput struct {
	Name string
	Open func() (io.ReadCloser, error)
	Size int64
}

// BytesInput wraps in-memory file contents as a FileInput.
func BytesInput(name string, data []byte) FileInput {
	return FileInput{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ImportResult is the outcome of one imported file.
type ImportResult struct {
	Invoice     model.Invoice         `json:"invoice"`
	ParseErrors []importer.ParseError `json:"parseErrors,omitempty"`
}

// FileFailure records why one file of a batch was not imported.
type FileFailure struct {
	Index int
	Name  string
	Err   error
}

func (f FileFailure) Error() string { return fmt.Sprintf("%s: %v", f.Name, f.Err) }

func (f FileFailure) Unwrap() error { return f.Err }

// BatchResult is the outcome of ImportFiles. Invoices and Failures are both in
// input order. Skipped lists the indexes never started because ctx was done.
type BatchResult struct {
	Invoices    []model.Invoice
	ParseErrors map[int][]importer.ParseError
	Failures    []FileFailure
	Skipped     []int
}

// Err returns an AggregateError holding every failure, or nil.
func (r BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return &AggregateError{Errors: errs}
}

// Partial reports whether some files succeeded and some failed.
func (r BatchResult) Partial() bool {
	return len(r.Invoices) > 0 && len(r.Failures) > 0
}

// ImportFile imports a single file while holding an import slot.
func (s *Service) ImportFile(ctx context.Context, in FileInput) (ImportResult, error) {
	var result ImportResult
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.importOne(ctx, in)
		return err
	})
	return result, err
}

// ImportFiles imports files concurrently. Files are independent: a failed
// file is reported in Failures and never affects the others.
func (s *Service) ImportFiles(ctx context.Context, files []FileInput) BatchResult {
	type slot struct {
		result  ImportResult
		err     error
		skipped bool
	}
	slots := make([]slot, len(files))

	log := logging.WithFields(ctx, "files", len(files))
	log.Info("batch import started")
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(s.limiter.MaxConcurrent())

	for i, f := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				slots[i].skipped = true
				return nil
			}
			slots[i].result, slots[i].err = s.ImportFile(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	var out BatchResult
	for i, sl := range slots {
		switch {
		case sl.skipped:
			out.Skipped = append(out.Skipped, i)
		case sl.err != nil:
			out.Failures = append(out.Failures, FileFailure{Index: i, Name: files[i].Name, Err: sl.err})
			log.Warn("file import failed", "file", files[i].Name, "error", sl.err)
		default:
			out.Invoices = append(out.Invoices, sl.result.Invoice)
			if len(sl.result.ParseErrors) > 0 {
				if out.ParseErrors == nil {
					out.ParseErrors = make(map[int][]importer.ParseError)
				}
				out.ParseErrors[i] = sl.result.ParseErrors
			}
		}
	}

	log.Info("batch import finished",
		"imported", len(out.Invoices),
		"failed", len(out.Failures),
		"skipped", len(out.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// importOne runs select adapter, parse, assemble, archive and reconcile for
// one file. Errors that concern the file itself come back as FileRejectedError.
func (s *Service) importOne(ctx context.Context, in FileInput) (ImportResult, error) {
	if s.opts.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ImportTimeout)
		defer cancel()
	}

	name := filepath.Base(in.Name)
	log := logging.WithFields(ctx, "file", name)

	adapter, err := importer.AdapterFor(name)
	if err != nil {
		return ImportResult{}, &FileRejectedError{File: name, Err: err}
	}

	orderNumber, err := importer.OrderNumberFromFileName(name)
	if err != nil {
		return ImportResult{}, &FileRejectedError{File: name, Err: &ValidationError{
			Field:   "order_number",
			Value:   name,
			Message: "file name must be the numeric order number",
		}}
	}
	log = log.With("order_number", orderNumber, "supplier", adapter.Supplier())

	data, err := s.readInput(in)
	if err != nil {
		return ImportResult{}, &FileRejectedError{File: name, Err: err}
	}

	parsed, err := adapter.Parse(ctx, bytes.NewReader(data), s.opts.Parse)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ImportResult{}, err
		}
		return ImportResult{}, &FileRejectedError{File: name, Err: err}
	}

	inv := importer.Assemble(orderNumber, adapter.Supplier(), parsed.Items)

	location, err := s.archiver.Store(ctx, archive.Key(inv.SupplierType, orderNumber, name),
		bytes.NewReader(data), archive.ContentType(name))
	if err != nil {
		return ImportResult{}, &FileRejectedError{File: name, Err: fmt.Errorf("archive: %w", err)}
	}
	inv.Path = location

	saved, err := s.Reconcile(ctx, inv)
	if err != nil {
		return ImportResult{}, err
	}

	log.Info("invoice imported",
		"invoice_id", saved.ID,
		"line_items", len(saved.LineItems),
		"row_errors", len(parsed.Errors),
		"subtotal", saved.Subtotal().String(),
	)
	return ImportResult{Invoice: saved, ParseErrors: parsed.Errors}, nil
}

// readInput loads the whole file, enforcing the configured size limit. The
// bytes are needed twice: once to parse and once to archive.
func (s *Service) readInput(in FileInput) ([]byte, error) {
	if in.Open == nil {
		return nil, ErrNoFile
	}
	limit := s.opts.Parse.MaxBytes
	if limit > 0 && in.Size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", importer.ErrFileTooLarge, in.Size, limit)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", importer.ErrUnreadable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(importer.NewCountingReader(rc, limit))
	if err != nil {
		if errors.Is(err, importer.ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read: %w", importer.ErrUnreadable, err)
	}
	return data, nil
}
