package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSweepInbox(t *testing.T) {
	svc, mem := newTestService(t, Options{Parse: importer.DefaultOptions()})
	dir := t.TempDir()

	writeFile(t, dir, "123456.csv", digiKeyInvoice)
	writeFile(t, dir, "abc.csv", digiKeyInvoice)
	writeFile(t, dir, "notes.txt", "ignored")

	res, err := svc.SweepInbox(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"123456.csv"}, res.Processed)
	assert.Equal(t, []string{"abc.csv"}, res.Failed)
	assert.Empty(t, res.Skipped)

	assert.FileExists(t, filepath.Join(dir, ProcessedDir, "123456.csv"))
	assert.FileExists(t, filepath.Join(dir, FailedDir, "abc.csv"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"), "unsupported files stay put")
	assert.NoFileExists(t, filepath.Join(dir, "123456.csv"))

	report, err := os.ReadFile(filepath.Join(dir, FailedDir, "abc.csv.error.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "VAL002")

	_, err = mem.Invoices().FindByOrderNumber(context.Background(), 123456)
	assert.NoError(t, err)
}

func TestSweepInbox_Empty(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir := t.TempDir()

	res, err := svc.SweepInbox(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, res.Processed)
	assert.NoDirExists(t, filepath.Join(dir, ProcessedDir), "nothing created for an empty inbox")
}

func TestSweepInbox_CancelledLeavesFiles(t *testing.T) {
	svc, _ := newTestService(t, Options{Parse: importer.DefaultOptions()})
	dir := t.TempDir()
	writeFile(t, dir, "1.csv", digiKeyInvoice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.SweepInbox(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.csv"}, res.Skipped)
	assert.FileExists(t, filepath.Join(dir, "1.csv"))
}

func TestSweepInbox_InterruptedWhileWaitingLeavesFiles(t *testing.T) {
	tests := []struct {
		name    string
		maxWait time.Duration
		timeout time.Duration
	}{
		{name: "sweep context ends while waiting for a slot", maxWait: time.Minute, timeout: 50 * time.Millisecond},
		{name: "limiter gives up waiting", maxWait: 20 * time.Millisecond, timeout: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewImportLimiter(1, tt.maxWait)
			svc := NewService(store.NewMemory(), nil, limiter, Options{Parse: importer.DefaultOptions()})
			dir := t.TempDir()
			writeFile(t, dir, "1.csv", digiKeyInvoice)

			require.True(t, limiter.TryAcquire())
			defer limiter.Release()

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			res, err := svc.SweepInbox(ctx, dir)
			require.NoError(t, err)
			assert.Equal(t, []string{"1.csv"}, res.Skipped)
			assert.Empty(t, res.Failed)
			assert.Empty(t, res.Processed)

			assert.FileExists(t, filepath.Join(dir, "1.csv"))
			assert.NoFileExists(t, filepath.Join(dir, FailedDir, "1.csv"))
			assert.NoFileExists(t, filepath.Join(dir, FailedDir, "1.csv.error.txt"))
		})
	}
}

func TestInterrupted(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, interrupted(live, nil))
	assert.True(t, interrupted(live, ErrTooManyImports))
	assert.True(t, interrupted(done, context.Canceled))
	assert.True(t, interrupted(done, &FileRejectedError{File: "1.csv", Err: context.DeadlineExceeded}))
	assert.False(t, interrupted(live, context.DeadlineExceeded), "a per-file timeout is the file's failure")
	assert.False(t, interrupted(done, &ValidationError{Field: "order_number"}))
}

func TestSweepInbox_MissingDir(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.SweepInbox(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestStartInboxScheduler(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.StartInboxScheduler(context.Background(), InboxConfig{})
	assert.Error(t, err, "dir required")

	_, err = svc.StartInboxScheduler(context.Background(), InboxConfig{Dir: t.TempDir(), Schedule: "not a schedule"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := svc.StartInboxScheduler(ctx, InboxConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
}
