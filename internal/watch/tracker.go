package watch

import (
	"fmt"
	"sync"
	"time"
)

// State tracks a file through its processing lifecycle.
type State string

const (
	StateDetected    State = "detected"
	StateStabilizing State = "stabilizing"
	StateReady       State = "ready"
	StateExtracting  State = "extracting"
	StateWritten     State = "written"
	StateFailed      State = "failed"
)

// legalTransitions lists the successors of each non-terminal state.
var legalTransitions = map[State][]State{
	StateDetected:    {StateStabilizing, StateFailed},
	StateStabilizing: {StateReady, StateFailed},
	StateReady:       {StateExtracting, StateFailed},
	StateExtracting:  {StateWritten, StateFailed},
}

// TrackedFile is one path moving through the pipeline.
type TrackedFile struct {
	Path       string
	JobID      string
	State      State
	DetectedAt time.Time
	ReadyAt    time.Time
	UpdatedAt  time.Time
}

// Tracker guards the single-flight guarantee: a path is owned by at most one
// job at a time. Terminal transitions forget the path, so a fresh lifecycle
// starts only when the file is deleted and created again.
type Tracker struct {
	mu    sync.Mutex
	files map[string]*TrackedFile
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{files: make(map[string]*TrackedFile)}
}

// Register begins tracking path. The second return is false when the path is
// already tracked; callers must then leave the file alone.
func (t *Tracker) Register(path, jobID string) (TrackedFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return TrackedFile{}, false
	}

	now := time.Now()
	tf := &TrackedFile{
		Path:       path,
		JobID:      jobID,
		State:      StateDetected,
		DetectedAt: now,
		UpdatedAt:  now,
	}
	t.files[path] = tf
	return *tf, true
}

// Transition moves path to next, enforcing the lifecycle order.
func (t *Tracker) Transition(path string, next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tf, exists := t.files[path]
	if !exists {
		return fmt.Errorf("not tracking %s", path)
	}
	if !transitionAllowed(tf.State, next) {
		return fmt.Errorf("invalid transition %s -> %s for %s", tf.State, next, path)
	}

	tf.State = next
	tf.UpdatedAt = time.Now()
	if next == StateReady {
		tf.ReadyAt = tf.UpdatedAt
	}
	if next == StateWritten || next == StateFailed {
		delete(t.files, path)
	}
	return nil
}

// Drop forgets path without recording an outcome, for files that vanished.
func (t *Tracker) Drop(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, path)
}

// Get returns a copy of the tracked entry for path.
func (t *Tracker) Get(path string) (TrackedFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tf, exists := t.files[path]
	if !exists {
		return TrackedFile{}, false
	}
	return *tf, true
}

// Len returns the number of files currently in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

func transitionAllowed(from, to State) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
