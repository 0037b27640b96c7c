package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, opts Options) (*Watcher, *Tracker, context.CancelFunc, chan error) {
	t.Helper()

	tracker := NewTracker()
	w, err := New(dir, tracker, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	return w, tracker, cancel, errCh
}

func waitReady(t *testing.T, w *Watcher, timeout time.Duration) FileReady {
	t.Helper()
	select {
	case fr, ok := <-w.Ready():
		require.True(t, ok, "ready channel closed before delivering a file")
		return fr
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a ready file")
		return FileReady{}
	}
}

func fastOptions() Options {
	return Options{Settle: SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  30 * time.Millisecond,
		Timeout:      5 * time.Second,
	}}
}

func TestWatcher_DetectsNewPDF(t *testing.T) {
	dir := t.TempDir()
	w, _, cancel, errCh := startWatcher(t, dir, fastOptions())
	defer cancel()

	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 content"), 0644))

	fr := waitReady(t, w, 5*time.Second)
	assert.Equal(t, path, fr.Path)
	assert.Equal(t, int64(len("%PDF-1.4 content")), fr.Size)
	assert.NotEmpty(t, fr.JobID)
	assert.False(t, fr.DetectedAt.IsZero())
	assert.False(t, fr.ReadyAt.Before(fr.DetectedAt))

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatcher_IgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()
	w, tracker, cancel, _ := startWatcher(t, dir, fastOptions())
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain text"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), []byte("%PDF-1.4"), 0644))

	// Only the PDF comes out, even though the text file landed first.
	fr := waitReady(t, w, 5*time.Second)
	assert.Equal(t, "scan.pdf", filepath.Base(fr.Path))

	_, tracked := tracker.Get(filepath.Join(dir, "notes.txt"))
	assert.False(t, tracked)
}

func TestWatcher_CaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	w, _, cancel, _ := startWatcher(t, dir, fastOptions())
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "SCAN.PDF"), []byte("%PDF-1.4"), 0644))

	fr := waitReady(t, w, 5*time.Second)
	assert.Equal(t, "SCAN.PDF", filepath.Base(fr.Path))
}

func TestWatcher_VanishedFileSkippedSilently(t *testing.T) {
	dir := t.TempDir()
	w, tracker, cancel, _ := startWatcher(t, dir, Options{Settle: SettleOptions{
		PollInterval: 10 * time.Millisecond,
		QuietPeriod:  150 * time.Millisecond,
		Timeout:      5 * time.Second,
	}})
	defer cancel()

	path := filepath.Join(dir, "fleeting.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	select {
	case fr := <-w.Ready():
		t.Fatalf("vanished file should not be reported, got %s", fr.Path)
	case <-time.After(400 * time.Millisecond):
	}
	assert.Equal(t, 0, tracker.Len())
}

func TestWatcher_ScanExistingOnStartup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backlog.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 waiting"), 0644))

	opts := fastOptions()
	opts.ScanExisting = true
	w, _, cancel, _ := startWatcher(t, dir, opts)
	defer cancel()

	fr := waitReady(t, w, 5*time.Second)
	assert.Equal(t, path, fr.Path)
}

func TestWatcher_ReadyClosesAfterCancel(t *testing.T) {
	dir := t.TempDir()
	w, _, cancel, errCh := startWatcher(t, dir, fastOptions())

	cancel()
	assert.NoError(t, <-errCh)

	_, ok := <-w.Ready()
	assert.False(t, ok)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), NewTracker(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch")
}

func TestNew_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := New(file, NewTracker(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("/in/scan.pdf"))
	assert.True(t, IsPDF("/in/SCAN.PDF"))
	assert.True(t, IsPDF("/in/mixed.Pdf"))
	assert.False(t, IsPDF("/in/scan.pdf.part"))
	assert.False(t, IsPDF("/in/notes.txt"))
	assert.False(t, IsPDF("/in/pdf"))
}
