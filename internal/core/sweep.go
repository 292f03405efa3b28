package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/logging"
)

// Inbox subdirectories that receive swept files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// SweepResult lists the files moved by one sweep, by base name.
type SweepResult struct {
	Processed []string
	Failed    []string
	Skipped   []string
}

// SweepInbox imports every invoice file directly inside dir. Imported files
// move to dir/processed; rejected files move to dir/failed next to a
// <name>.error.txt holding the reason. Files that were not imported because
// ctx ended or no import slot came free stay where they are for the next
// sweep.
func (s *Service) SweepInbox(ctx context.Context, dir string) (SweepResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return SweepResult{}, fmt.Errorf("read inbox: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && importer.Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	var result SweepResult
	if len(names) == 0 {
		return result, nil
	}

	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return result, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}

	files := make([]FileInput, len(names))
	for i, name := range names {
		files[i] = fileInput(filepath.Join(dir, name))
	}

	batch := s.ImportFiles(ctx, files)

	failed := make(map[int]error, len(batch.Failures))
	for _, f := range batch.Failures {
		failed[f.Index] = f.Err
	}
	skipped := make(map[int]bool, len(batch.Skipped))
	for _, i := range batch.Skipped {
		skipped[i] = true
	}

	var moveErrs []error
	for i, name := range names {
		src := filepath.Join(dir, name)
		switch {
		case skipped[i]:
			result.Skipped = append(result.Skipped, name)
		case interrupted(ctx, failed[i]):
			logging.WithFields(ctx, "file", name).Info("import interrupted, leaving file for next sweep", "error", failed[i])
			result.Skipped = append(result.Skipped, name)
		case failed[i] != nil:
			if err := moveFailed(dir, name, failed[i]); err != nil {
				moveErrs = append(moveErrs, err)
				continue
			}
			result.Failed = append(result.Failed, name)
		default:
			if err := os.Rename(src, filepath.Join(dir, ProcessedDir, name)); err != nil {
				moveErrs = append(moveErrs, fmt.Errorf("move %s: %w", name, err))
				continue
			}
			result.Processed = append(result.Processed, name)
		}
	}

	return result, errors.Join(moveErrs...)
}

// interrupted reports whether err says nothing about the file itself: no
// import slot was free, or the sweep's own context ended mid-import.
func interrupted(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooManyImports) {
		return true
	}
	return ctx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func moveFailed(dir, name string, cause error) error {
	dst := filepath.Join(dir, FailedDir, name)
	if err := os.Rename(filepath.Join(dir, name), dst); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}

	report := fmt.Sprintf("%s\n%s\n", FormatUserError(cause), cause)
	if err := os.WriteFile(dst+".error.txt", []byte(report), 0o644); err != nil {
		return fmt.Errorf("write error report for %s: %w", name, err)
	}
	return nil
}

// fileInput opens path lazily so only files that get a slot are opened.
func fileInput(path string) FileInput {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return FileInput{
		Name: filepath.Base(path),
		Size: size,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// PathInput returns a FileInput that reads path from disk.
func PathInput(path string) FileInput {
	return fileInput(path)
}

// runSweepJob performs one sweep and logs the outcome.
func (s *Service) runSweepJob(ctx context.Context, dir string) {
	log := logging.WithFields(ctx, "inbox", dir)
	log.Debug("inbox sweep started")
	start := time.Now()

	res, err := s.SweepInbox(ctx, dir)
	if err != nil {
		log.Error("inbox sweep failed", "error", err)
	}
	if n := len(res.Processed) + len(res.Failed) + len(res.Skipped); n == 0 && err == nil {
		log.Debug("inbox empty")
		return
	}

	log.Info("inbox sweep completed",
		"processed", len(res.Processed),
		"failed", len(res.Failed),
		"skipped", len(res.Skipped),
		"files", strings.Join(append(res.Processed, res.Failed...), ","),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
