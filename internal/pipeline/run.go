// Package pipeline provides the high-level orchestration for the watch and
// extract loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/andrei/ocrwatch/internal/artifact"
	"github.com/andrei/ocrwatch/internal/config"
	"github.com/andrei/ocrwatch/internal/observability"
	"github.com/andrei/ocrwatch/internal/ocr"
	"github.com/andrei/ocrwatch/internal/render"
	"github.com/andrei/ocrwatch/internal/watch"
)

// Coordinator owns the watch-extract-write loop: one watcher feeding a
// bounded pool of extraction workers, with per-file failure isolation.
type Coordinator struct {
	cfg     *config.Config
	client  ocr.Client
	writer  *artifact.Writer
	printer *observability.Printer
	tracker *watch.Tracker
}

// New assembles a coordinator from already-constructed parts. The printer may
// be nil to disable verbose summaries.
func New(cfg *config.Config, client ocr.Client, writer *artifact.Writer, printer *observability.Printer) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		client:  client,
		writer:  writer,
		printer: printer,
		tracker: watch.NewTracker(),
	}
}

// Run watches the input directory until ctx ends or the watcher fails.
// Extractions already running when shutdown begins get the configured grace
// period to finish.
func (c *Coordinator) Run(ctx context.Context) error {
	if removed, err := c.writer.SweepTemp(); err != nil {
		log.Printf("warning: temp file sweep failed: %v", err)
	} else if removed > 0 {
		log.Printf("removed %d stale temp files from %s", removed, c.cfg.OutputDir)
	}

	watcher, err := watch.New(c.cfg.InputDir, c.tracker, watch.Options{
		Settle: watch.SettleOptions{
			PollInterval: c.cfg.PollInterval(),
			QuietPeriod:  c.cfg.QuietPeriod(),
			Timeout:      c.cfg.SettleTimeout(),
		},
		ScanExisting: true,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		// Jobs run on a context detached from shutdown so in-flight work can
		// finish; the grace timer bounds how long that lasts.
		jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(gctx))
		defer cancelJobs()

		workers := c.cfg.Workers
		if workers < 1 {
			workers = 1
		}

		var jobs errgroup.Group
		jobs.SetLimit(workers)

		for fr := range watcher.Ready() {
			fr := fr // per-iteration copy; required while go.mod is below 1.22
			jobs.Go(func() error {
				c.process(jobCtx, fr)
				return nil
			})
		}

		timer := time.AfterFunc(c.cfg.ShutdownGrace(), cancelJobs)
		defer timer.Stop()
		return jobs.Wait()
	})

	return g.Wait()
}

// process runs one settled file through extraction and writing. Failures are
// logged and recorded on the tracker; nothing here stops the loop.
func (c *Coordinator) process(ctx context.Context, fr watch.FileReady) {
	name := filepath.Base(fr.Path)

	if err := c.tracker.Transition(fr.Path, watch.StateExtracting); err != nil {
		return
	}

	res, written, err := c.runJob(ctx, fr)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted between ready and extraction; nothing to report.
			c.tracker.Drop(fr.Path)
			return
		}
		_ = c.tracker.Transition(fr.Path, watch.StateFailed)
		log.Printf("failed %s (job %s): %v", name, fr.JobID, err)
		return
	}

	_ = c.tracker.Transition(fr.Path, watch.StateWritten)
	log.Printf("wrote %s and %s (job %s, %d pages, %.1fs)",
		filepath.Base(written.TextPath), filepath.Base(written.JSONPath),
		fr.JobID, res.PageCount, res.Timing.ExtractionSeconds)

	if c.cfg.Verbose && c.printer != nil {
		c.printer.PrintExtraction(res, written)
	}
}

// runJob reads, extracts, and persists one document.
func (c *Coordinator) runJob(ctx context.Context, fr watch.FileReady) (*artifact.Result, *artifact.Written, error) {
	data, err := os.ReadFile(fr.Path)
	if err != nil {
		return nil, nil, err
	}

	info, err := render.Preflight(data)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	doc, err := c.client.Extract(ctx, ocr.Request{
		PDF:       data,
		Filename:  filepath.Base(fr.Path),
		PageCount: info.PageCount,
		Languages: c.cfg.Languages,
	})
	if err != nil {
		return nil, nil, err
	}

	res := &artifact.Result{
		JobID:        fr.JobID,
		InputPath:    fr.Path,
		SourceSHA256: artifact.SourceDigest(data),
		PageCount:    info.PageCount,
		Document:     doc,
		Timing:       artifact.NewTiming(fr.DetectedAt, fr.ReadyAt, time.Since(start), time.Since(fr.DetectedAt)),
	}

	written, err := c.writer.Write(res)
	if err != nil {
		return nil, nil, err
	}
	return res, written, nil
}

// ProcessFile extracts a single document immediately, without watching or
// readiness polling. It backs the one-shot command.
func (c *Coordinator) ProcessFile(ctx context.Context, path string) (*artifact.Written, error) {
	if !watch.IsPDF(path) {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}

	now := time.Now()
	fr := watch.FileReady{
		Path:       path,
		JobID:      uuid.New().String(),
		DetectedAt: now,
		ReadyAt:    now,
	}

	res, written, err := c.runJob(ctx, fr)
	if err != nil {
		return nil, err
	}

	if c.cfg.Verbose && c.printer != nil {
		c.printer.PrintExtraction(res, written)
	}
	return written, nil
}
