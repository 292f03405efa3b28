package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/logging"
	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart form is kept in memory; the rest
// spills to temp files.
const multipartMemory = 32 << 20

// ImportResponse is the body of a single-file import.
type ImportResponse struct {
	Invoice     model.Invoice         `json:"invoice"`
	ParseErrors []importer.ParseError `json:"parseErrors,omitempty"`
}

// BatchResponse is the body of a multi-file import.
type BatchResponse struct {
	Invoices    []model.Invoice               `json:"invoices"`
	ParseErrors map[int][]importer.ParseError `json:"parseErrors,omitempty"`
	Failures    []FileError                   `json:"failures,omitempty"`
	Skipped     []int                         `json:"skipped,omitempty"`
}

// handleImportInvoice imports the multipart "file" field.
func (s *Server) handleImportInvoice(w http.ResponseWriter, r *http.Request) {
	files, cleanup, err := s.parseFiles(w, r, "file")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()

	if len(files) != 1 {
		s.respondError(w, r, &core.ValidationError{Field: "file", Message: "exactly one file is required"})
		return
	}

	result, err := s.service.ImportFile(r.Context(), files[0])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "ImportInvoice",
		ImportResponse{Invoice: result.Invoice, ParseErrors: result.ParseErrors},
		fmt.Sprintf("imported order %d", result.Invoice.OrderNumber))
}

// handleImportBatch imports every multipart "files" field. Partial success
// answers 207 with the failures listed next to the imported invoices.
func (s *Server) handleImportBatch(w http.ResponseWriter, r *http.Request) {
	files, cleanup, err := s.parseFiles(w, r, "files")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()

	if len(files) == 0 {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	if max := s.cfg.Upload.MaxFiles; max > 0 && len(files) > max {
		s.respondError(w, r, &core.ValidationError{
			Field:   "files",
			Value:   strconv.Itoa(len(files)),
			Message: fmt.Sprintf("at most %d files per request", max),
		})
		return
	}

	batch := s.service.ImportFiles(r.Context(), files)

	if len(batch.Invoices) == 0 && len(batch.Failures) > 0 {
		s.respondError(w, r, batch.Err())
		return
	}
	if len(batch.Invoices) == 0 && len(batch.Skipped) > 0 {
		s.respondError(w, r, r.Context().Err())
		return
	}

	body := BatchResponse{
		Invoices:    batch.Invoices,
		ParseErrors: batch.ParseErrors,
		Skipped:     batch.Skipped,
	}
	for _, f := range batch.Failures {
		body.Failures = append(body.Failures, fileError(f))
	}

	status := http.StatusOK
	if len(batch.Failures) > 0 || len(batch.Skipped) > 0 {
		status = http.StatusMultiStatus
	}

	logging.FromContext(r.Context()).Info("batch import request finished",
		"imported", len(batch.Invoices), "failed", len(batch.Failures))

	respond(w, status, "ImportInvoices", body,
		fmt.Sprintf("imported %d of %d files", len(batch.Invoices), len(files)))
}

// handleGetInvoice returns the invoice for an order number.
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "orderNumber")
	orderNumber, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.respondError(w, r, &core.ValidationError{Field: "order_number", Value: raw, Message: "must be a positive integer"})
		return
	}

	inv, err := s.service.GetInvoiceByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "GetInvoice", inv, "")
}

// parseFiles reads the multipart form and turns the named file fields into
// FileInputs. The returned cleanup removes spilled temp files.
func (s *Server) parseFiles(w http.ResponseWriter, r *http.Request, field string) ([]core.FileInput, func(), error) {
	noop := func() {}

	maxBody := s.cfg.Upload.MaxFileSize * int64(max(s.cfg.Upload.MaxFiles, 1))
	r.Body = http.MaxBytesReader(w, r.Body, maxBody+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, &core.FileRejectedError{File: field, Err: fmt.Errorf("%w: request body exceeds %d bytes", importer.ErrFileTooLarge, tooLarge.Limit)}
		}
		return nil, noop, &core.ValidationError{Field: field, Message: "invalid multipart form"}
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		cleanup()
		return nil, noop, core.ErrNoFile
	}

	files := make([]core.FileInput, len(headers))
	for i, h := range headers {
		files[i] = formFile(h)
	}
	return files, cleanup, nil
}

func formFile(h *multipart.FileHeader) core.FileInput {
	return core.FileInput{
		Name: h.Filename,
		Size: h.Size,
		Open: func() (io.ReadCloser, error) { return h.Open() },
	}
}
