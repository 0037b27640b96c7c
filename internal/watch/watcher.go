package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// FileReady announces a PDF whose contents have settled.
type FileReady struct {
	Path       string
	Size       int64
	JobID      string
	DetectedAt time.Time
	ReadyAt    time.Time
}

// Options configures a Watcher.
type Options struct {
	Settle SettleOptions

	// ScanExisting also picks up PDFs already sitting in the directory when
	// the watcher starts, so files dropped during downtime are not lost.
	ScanExisting bool
}

// Watcher observes one directory (non-recursive) for incoming PDFs and
// reports each at most once on Ready after it settles.
type Watcher struct {
	dir     string
	opts    Options
	tracker *Tracker
	fw      *fsnotify.Watcher
	ready   chan FileReady
	wg      sync.WaitGroup
}

// New creates a watcher for dir, which must be an existing directory.
func New(dir string, tracker *Tracker, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &WatchError{Message: fmt.Sprintf("cannot watch %s", dir), Cause: err}
	}
	if !info.IsDir() {
		return nil, &WatchError{Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Message: "failed to initialize filesystem notifications", Cause: err}
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, &WatchError{Message: fmt.Sprintf("failed to watch %s", dir), Cause: err}
	}

	return &Watcher{
		dir:     dir,
		opts:    opts,
		tracker: tracker,
		fw:      fw,
		ready:   make(chan FileReady, 16),
	}, nil
}

// Ready delivers settled files. The channel closes when Run returns.
func (w *Watcher) Ready() <-chan FileReady {
	return w.ready
}

// Run processes filesystem events until ctx ends or the notification layer
// fails. A notification failure is returned as an error; a context end
// returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.fw.Close()
		w.wg.Wait()
		close(w.ready)
	}()

	if w.opts.ScanExisting {
		if err := w.scanExisting(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			return &WatchError{Message: "filesystem notification failure", Cause: err}
		}
	}
}

// handleEvent reacts to creations only. Files moved into the directory also
// surface as Create events; writes to a file we already track are the settle
// loop's business, not ours.
func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) {
		return
	}
	w.track(ctx, ev.Name)
}

func (w *Watcher) track(ctx context.Context, path string) {
	if !IsPDF(path) {
		return
	}

	tf, fresh := w.tracker.Register(path, uuid.New().String())
	if !fresh {
		return
	}
	log.Printf("detected %s (job %s)", filepath.Base(path), tf.JobID)

	w.wg.Add(1)
	go w.settle(ctx, tf)
}

// settle waits for the file to stop changing and publishes it on ready.
func (w *Watcher) settle(ctx context.Context, tf TrackedFile) {
	defer w.wg.Done()

	if err := w.tracker.Transition(tf.Path, StateStabilizing); err != nil {
		return
	}

	info, err := Settle(ctx, tf.Path, w.opts.Settle)
	switch {
	case errors.Is(err, ErrVanished):
		// A file that disappears mid-settle was never ours to process.
		w.tracker.Drop(tf.Path)
		return
	case ctx.Err() != nil:
		w.tracker.Drop(tf.Path)
		return
	case err != nil:
		log.Printf("giving up on %s: %v", filepath.Base(tf.Path), err)
		_ = w.tracker.Transition(tf.Path, StateFailed)
		return
	}

	if err := w.tracker.Transition(tf.Path, StateReady); err != nil {
		return
	}

	fr := FileReady{
		Path:       tf.Path,
		Size:       info.Size(),
		JobID:      tf.JobID,
		DetectedAt: tf.DetectedAt,
		ReadyAt:    time.Now(),
	}
	select {
	case w.ready <- fr:
	case <-ctx.Done():
		w.tracker.Drop(tf.Path)
	}
}

func (w *Watcher) scanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return &WatchError{Message: fmt.Sprintf("failed to scan %s", w.dir), Cause: err}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// IsPDF reports whether path names a PDF file, by extension, case-insensitive.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
