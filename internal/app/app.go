// Package app wires configuration into a running core.Service: it opens the
// configured store and archiver and builds the import limiter.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/archive"
	"github.com/JonMunkholm/PartsHole/internal/config"
	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/store"
	"github.com/JonMunkholm/PartsHole/internal/store/mongostore"
	"github.com/JonMunkholm/PartsHole/internal/store/pgstore"
)

// App holds the service and the resources that must be released on exit.
type App struct {
	Service *core.Service
	Store   store.Store
}

// New opens the store and archiver named by cfg and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := OpenStore(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	arch, err := OpenArchiver(ctx, &cfg.Archive)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	limiter := core.NewImportLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	svc := core.NewService(st, arch, limiter, ServiceOptions(cfg))

	return &App{Service: svc, Store: st}, nil
}

// ServiceOptions maps cfg onto core.Options.
func ServiceOptions(cfg *config.Config) core.Options {
	return core.Options{
		Parse: importer.Options{
			IgnoreLineErrors: cfg.Upload.IgnoreLineErrors,
			MaxBytes:         cfg.Upload.MaxFileSize,
		},
		AllocateMaxRetries: cfg.Allocation.MaxRetries,
		ImportTimeout:      cfg.Upload.Timeout,
	}
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

// OpenStore connects the configured store driver.
func OpenStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.StoreMemory, "":
		slog.Warn("using in-memory store; data is lost on exit")
		return store.NewMemory(), nil

	case config.StoreMongo:
		connectCtx, cancel := connectContext(ctx, cfg)
		defer cancel()

		st, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, mongostore.Collections{
			Invoices:    cfg.InvoicesCollection,
			PartNumbers: cfg.PartNumbersCollection,
			Users:       cfg.UsersCollection,
			Parts:       cfg.PartsCollection,
			Bins:        cfg.BinsCollection,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to mongo", "database", cfg.MongoDatabase)
		return st, nil

	case config.StorePostgres:
		connectCtx, cancel := connectContext(ctx, cfg)
		defer cancel()

		pool, err := pgstore.NewPool(connectCtx, cfg.URL, pgstore.PoolConfig{
			MaxConns:        int32(cfg.MaxConns),
			MinConns:        int32(cfg.MinConns),
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		st := pgstore.New(pool)
		if err := st.Migrate(connectCtx); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("connected to postgres", "max_conns", cfg.MaxConns)
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func connectContext(ctx context.Context, cfg *config.StoreConfig) (context.Context, context.CancelFunc) {
	if cfg.ConnectTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.ConnectTimeout)
}

// OpenArchiver builds the configured archiver. ArchiveNone yields a no-op.
func OpenArchiver(ctx context.Context, cfg *config.ArchiveConfig) (archive.Archiver, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.ArchiveNone, "":
		return archive.Nop{}, nil

	case config.ArchiveDir:
		a, err := archive.NewDirArchiver(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("archive dir: %w", err)
		}
		slog.Info("archiving invoices to directory", "dir", cfg.Dir)
		return a, nil

	case config.ArchiveS3:
		a, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("archive s3: %w", err)
		}
		slog.Info("archiving invoices to s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return a, nil

	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
