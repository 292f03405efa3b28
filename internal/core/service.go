package core

import (
	"time"

	"github.com/JonMunkholm/PartsHole/internal/archive"
	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/store"
	"github.com/google/uuid"
)

// DefaultAllocateMaxRetries bounds allocation attempts after losing a race.
const DefaultAllocateMaxRetries = 5

// Options tune a Service. Zero values select defaults.
type Options struct {
	// Parse controls adapter strictness and the per-file size limit.
	Parse importer.Options

	// AllocateMaxRetries is how many times allocation retries after a
	// duplicate key from a concurrent allocation.
	AllocateMaxRetries int

	// ImportTimeout bounds a single file import. Zero means no limit.
	ImportTimeout time.Duration
}

// Service runs invoice imports, part number allocation and user reference
// bookkeeping on top of a store.
type Service struct {
	store    store.Store
	archiver archive.Archiver
	limiter  *ImportLimiter
	opts     Options

	newID func() string
}

// NewService wires a service. A nil archiver disables archiving and a nil
// limiter gets the default limits.
func NewService(st store.Store, archiver archive.Archiver, limiter *ImportLimiter, opts Options) *Service {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	if limiter == nil {
		limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	if opts.AllocateMaxRetries <= 0 {
		opts.AllocateMaxRetries = DefaultAllocateMaxRetries
	}

	return &Service{
		store:    st,
		archiver: archiver,
		limiter:  limiter,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// Limiter returns the import limiter, for health checks and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Store returns the underlying store.
func (s *Service) Store() store.Store {
	return s.store
}
