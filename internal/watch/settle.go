package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Readiness sampling defaults.
const (
	DefaultPollInterval  = 1 * time.Second
	DefaultQuietPeriod   = 2 * time.Second
	DefaultSettleTimeout = 10 * time.Minute
)

var (
	// ErrVanished means the file disappeared between samples.
	ErrVanished = errors.New("file vanished before settling")
	// ErrNeverSettled means the file kept changing until the deadline.
	ErrNeverSettled = errors.New("file did not stabilize before deadline")
)

// SettleOptions tunes readiness detection. Zero fields use the defaults.
type SettleOptions struct {
	PollInterval time.Duration
	QuietPeriod  time.Duration
	Timeout      time.Duration
}

func (o SettleOptions) withDefaults() SettleOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = DefaultQuietPeriod
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultSettleTimeout
	}
	return o
}

// Settle blocks until the file at path stops changing: identical size and
// mtime across consecutive samples, a non-zero size, and no change for the
// quiet period. It returns the final stat. A file still being written keeps
// the loop alive until Timeout, reported as ErrNeverSettled.
func Settle(ctx context.Context, path string, opts SettleOptions) (os.FileInfo, error) {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.Timeout)

	var lastSize int64 = -1
	var lastMod time.Time
	var stableSince time.Time

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrVanished
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		size, mod := info.Size(), info.ModTime()
		switch {
		case size == 0:
			// Created but not yet written; the quiet clock starts once
			// content lands.
			stableSince = time.Time{}
			lastSize, lastMod = size, mod
		case size == lastSize && mod.Equal(lastMod):
			if stableSince.IsZero() {
				stableSince = time.Now()
			}
			if time.Since(stableSince) >= opts.QuietPeriod {
				return info, nil
			}
		default:
			stableSince = time.Time{}
			lastSize, lastMod = size, mod
		}

		if time.Now().After(deadline) {
			return nil, ErrNeverSettled
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
