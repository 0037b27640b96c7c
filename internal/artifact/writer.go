// Package artifact persists extraction results: the plain text of a document
// and a structured JSON record, written atomically so readers polling the
// output directory never observe partial files.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrei/ocrwatch/internal/ocr"
	"github.com/andrei/ocrwatch/internal/schemas"
)

// Collision policies for output names that already exist.
const (
	// CollisionOverwrite replaces existing artifacts for the same stem.
	CollisionOverwrite = "overwrite"
	// CollisionSuffix keeps existing artifacts and writes under stem-1, stem-2, ...
	CollisionSuffix = "suffix"
)

// tempPattern names in-progress writes so a startup sweep can find leftovers.
const tempPattern = ".ocrwatch-*.tmp"

// Timing records when the pipeline saw and finished one file.
type Timing struct {
	DetectedAt        string  `json:"detected_at"` // RFC3339 format
	ReadyAt           string  `json:"ready_at"`    // RFC3339 format
	ExtractionSeconds float64 `json:"extraction_seconds"`
	TotalSeconds      float64 `json:"total_seconds"`
}

// NewTiming builds the timing block from pipeline timestamps.
func NewTiming(detectedAt, readyAt time.Time, extraction, total time.Duration) Timing {
	return Timing{
		DetectedAt:        detectedAt.UTC().Format(time.RFC3339),
		ReadyAt:           readyAt.UTC().Format(time.RFC3339),
		ExtractionSeconds: roundSeconds(extraction),
		TotalSeconds:      roundSeconds(total),
	}
}

// roundSeconds keeps millisecond precision in the JSON output.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// Result carries everything needed to persist one completed extraction.
type Result struct {
	JobID        string
	InputPath    string
	SourceSHA256 string // Hex digest of the original PDF bytes
	PageCount    int
	Document     *ocr.Document
	Timing       Timing
}

// Artifact is the JSON payload written next to the plain text output.
type Artifact struct {
	JobID        string     `json:"job_id"`
	SourceFile   string     `json:"source_file"`
	SourceSHA256 string     `json:"source_sha256,omitempty"`
	Provider     string     `json:"provider"`
	PageCount    int        `json:"page_count"`
	Languages    []string   `json:"languages,omitempty"`
	Confidence   float64    `json:"confidence,omitempty"`
	Text         string     `json:"text"`
	Pages        []ocr.Page `json:"pages,omitempty"`
	Timing       Timing     `json:"timing"`
	CreatedAt    string     `json:"created_at"` // RFC3339 format
}

// Written reports where the artifacts for one document landed.
type Written struct {
	Stem     string
	TextPath string
	JSONPath string
}

// Writer persists text and JSON artifacts into a single output directory.
type Writer struct {
	outputDir string
	policy    string
}

// NewWriter creates the output directory if needed and returns a writer
// applying the given collision policy.
func NewWriter(outputDir, policy string) (*Writer, error) {
	if outputDir == "" {
		return nil, &WriteError{Message: "output directory is required"}
	}
	if policy != CollisionOverwrite && policy != CollisionSuffix {
		return nil, &WriteError{Message: fmt.Sprintf("unknown collision policy %q", policy)}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &WriteError{Message: "failed to create output directory", Path: outputDir, Cause: err}
	}
	return &Writer{outputDir: outputDir, policy: policy}, nil
}

// Write persists the plain text and JSON artifacts for one extraction.
// The JSON payload is validated against the artifact schema before anything
// touches disk, so a marshaling bug cannot produce a malformed record.
func (w *Writer) Write(res *Result) (*Written, error) {
	if res == nil || res.Document == nil {
		return nil, &WriteError{Message: "no extraction result to write"}
	}

	stem, err := w.resolveStem(Stem(res.InputPath))
	if err != nil {
		return nil, &WriteError{Message: "failed to resolve output name", Cause: err}
	}

	jsonBytes, err := json.MarshalIndent(w.buildArtifact(res), "", "  ")
	if err != nil {
		return nil, &WriteError{Message: "failed to marshal artifact", Cause: err}
	}
	if err := schemas.ValidateArtifact(jsonBytes); err != nil {
		return nil, &WriteError{Message: "artifact failed schema validation", Cause: err}
	}

	textPath := filepath.Join(w.outputDir, stem+".txt")
	jsonPath := filepath.Join(w.outputDir, stem+".json")

	if err := w.writeAtomic(textPath, []byte(res.Document.Text)); err != nil {
		return nil, &WriteError{Message: "failed to write text artifact", Path: textPath, Cause: err}
	}
	if err := w.writeAtomic(jsonPath, jsonBytes); err != nil {
		return nil, &WriteError{Message: "failed to write JSON artifact", Path: jsonPath, Cause: err}
	}

	return &Written{Stem: stem, TextPath: textPath, JSONPath: jsonPath}, nil
}

func (w *Writer) buildArtifact(res *Result) *Artifact {
	doc := res.Document

	// Backends without per-page detail report no count; the artifact still
	// needs one.
	pageCount := res.PageCount
	if pageCount < 1 {
		pageCount = doc.PageCount()
	}
	if pageCount < 1 {
		pageCount = 1
	}

	return &Artifact{
		JobID:        res.JobID,
		SourceFile:   filepath.Base(res.InputPath),
		SourceSHA256: res.SourceSHA256,
		Provider:     doc.Provider,
		PageCount:    pageCount,
		Languages:    doc.Languages,
		Confidence:   doc.Confidence(),
		Text:         doc.Text,
		Pages:        doc.Pages,
		Timing:       res.Timing,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

// resolveStem applies the collision policy to the desired stem.
func (w *Writer) resolveStem(stem string) (string, error) {
	if w.policy == CollisionOverwrite {
		return stem, nil
	}

	candidate := stem
	for n := 1; ; n++ {
		free, err := w.stemFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", stem, n)
	}
}

// stemFree reports whether neither the text nor the JSON path for the stem
// exists yet. Both must be free so suffixed pairs stay together.
func (w *Writer) stemFree(stem string) (bool, error) {
	for _, name := range []string{stem + ".txt", stem + ".json"} {
		_, err := os.Stat(filepath.Join(w.outputDir, name))
		if err == nil {
			return false, nil
		}
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}
	return true, nil
}

// writeAtomic writes data to a temp file in the output directory, syncs it,
// and renames it into place. The temp file lives in the same directory so the
// rename never crosses a filesystem boundary.
func (w *Writer) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(w.outputDir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set temp file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// SweepTemp removes temp files left behind by writes that were interrupted.
// It returns the number of files removed.
func (w *Writer) SweepTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(w.outputDir, tempPattern))
	if err != nil {
		return 0, &WriteError{Message: "failed to scan for temp files", Path: w.outputDir, Cause: err}
	}

	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, &WriteError{Message: "failed to remove temp file", Path: m, Cause: err}
		}
		removed++
	}
	return removed, nil
}

// Stem returns the file name without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SourceDigest returns the SHA256 hex digest of the original document bytes.
func SourceDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
