// Package ingest orchestrates the scan ingestion pipeline: a selected file
// is previewed, rasterized when it is a PDF, and fed to the recognizer,
// with progress republished to the caller. One job is active at a time per
// capture key (the owner of the interaction); starting a new job for the
// same key supersedes the previous one and its late results are discarded.
// Jobs under different keys run independently.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/notescan/internal/common"
	"github.com/dmitrijs2005/notescan/internal/ingest/raster"
	"github.com/dmitrijs2005/notescan/internal/ingest/recognize"
	"github.com/dmitrijs2005/notescan/internal/logging"
)

// Stage is the pipeline state machine position of a job.
type Stage string

const (
	StageIdle        Stage = "idle"
	StagePreviewing  Stage = "previewing"
	StageRasterizing Stage = "rasterizing"
	StageRecognizing Stage = "recognizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// FallbackTranscript is the fixed user-facing text substituted for a failed
// extraction so the note can still be saved and hand-corrected.
const FallbackTranscript = "Unable to extract text. Please try a clearer scan."

// ErrSuperseded marks the result of a job that was abandoned because a newer
// job started under the same capture key. The result carries no usable text.
var ErrSuperseded = errors.New("superseded by a newer job")

const pdfMimeType = "application/pdf"

// Source is one uploaded file entering the pipeline. MimeType is the
// declared media type; it decides the rasterizing detour and is validated
// before any OCR work.
type Source struct {
	FileName string
	MimeType string
	Data     []byte
}

// Event is one observable step of a job: a stage transition or a progress
// update. The terminal event (stage done or failed) carries the trimmed
// recognized text or the absorbed failure.
type Event struct {
	Stage   Stage
	Percent int
	Preview *Preview
	Text    string
	Err     error
}

// Result is the final outcome of a job. Err distinguishes a failed
// extraction from genuinely empty recognized text; the caller decides
// whether to substitute FallbackTranscript.
type Result struct {
	Text    string
	Preview Preview
	Err     error
}

// Pipeline runs ingestion jobs. It is safe for concurrent use; a Start
// while another job is in flight under the same key supersedes that job,
// while jobs under different keys proceed independently.
type Pipeline struct {
	recognizer recognize.Recognizer
	rasterizer raster.PageRasterizer
	logger     logging.Logger
	languages  []string

	mu   sync.Mutex
	gens map[string]uint64
}

// New constructs a pipeline over the given recognizer and rasterizer.
// Languages are passed through to the recognizer as trained-data hints.
func New(rec recognize.Recognizer, ras raster.PageRasterizer, logger logging.Logger, languages ...string) *Pipeline {
	return &Pipeline{
		recognizer: rec,
		rasterizer: ras,
		logger:     logger.With("module", "ingest_pipeline"),
		languages:  languages,
		gens:       make(map[string]uint64),
	}
}

// Start begins a new job for src under key, superseding any job still in
// flight for the same key. The key identifies one capture interaction
// (typically the owner id); jobs under other keys are unaffected. The
// returned job's event channel is closed after its terminal event, or
// without one when the job is superseded.
func (p *Pipeline) Start(ctx context.Context, key string, src Source) *Job {
	p.mu.Lock()
	p.gens[key]++
	gen := p.gens[key]
	p.mu.Unlock()

	job := &Job{
		pipeline: p,
		key:      key,
		gen:      gen,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
	go job.run(ctx, src)
	return job
}

func (p *Pipeline) isCurrent(key string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gens[key] == gen
}

// Job is one in-flight (or finished) ingestion run.
type Job struct {
	pipeline *Pipeline
	key      string
	gen      uint64
	events   chan Event

	done   chan struct{}
	result Result
}

// Events returns the job's event stream. The channel is closed after the
// terminal event, or early when the job is superseded.
func (j *Job) Events() <-chan Event {
	return j.events
}

// Wait blocks until the job finishes and returns its result. A superseded
// job finishes with Result.Err set to ErrSuperseded; callers should drop it.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// emit publishes e unless the job has been superseded. The return value
// reports whether the job is still current; a stale job stops running.
func (j *Job) emit(ctx context.Context, e Event) bool {
	if !j.pipeline.isCurrent(j.key, j.gen) {
		return false
	}
	select {
	case j.events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (j *Job) finish(ctx context.Context, res Result) {
	j.result = res
	if j.pipeline.isCurrent(j.key, j.gen) {
		stage := StageDone
		if res.Err != nil {
			stage = StageFailed
		}
		e := Event{Stage: stage, Percent: 100, Text: res.Text, Err: res.Err}
		if res.Err != nil {
			e.Percent = 0
		}
		select {
		case j.events <- e:
		case <-ctx.Done():
		}
	}
	close(j.events)
	close(j.done)
}

func (j *Job) run(ctx context.Context, src Source) {
	p := j.pipeline
	log := p.logger.With("file", src.FileName, "mime_type", src.MimeType)

	preview, err := buildPreview(src)
	if err != nil {
		log.Warn(ctx, "rejected at previewing stage", "error", err)
		j.finish(ctx, Result{Err: err})
		return
	}
	if !j.emit(ctx, Event{Stage: StagePreviewing, Percent: 0, Preview: &preview}) {
		j.finish(ctx, Result{Preview: preview, Err: ErrSuperseded})
		return
	}

	imageData := src.Data
	if src.MimeType == pdfMimeType {
		if !j.emit(ctx, Event{Stage: StageRasterizing, Percent: 0, Preview: &preview}) {
			j.finish(ctx, Result{Preview: preview, Err: ErrSuperseded})
			return
		}
		imageData, err = p.rasterizer.FirstPagePNG(ctx, src.Data)
		if err != nil {
			log.Warn(ctx, "pdf rasterization failed", "error", err)
			j.finish(ctx, Result{Preview: preview, Err: fmt.Errorf("%w: %v", common.ErrExtraction, err)})
			return
		}
	}

	if !j.emit(ctx, Event{Stage: StageRecognizing, Percent: 0}) {
		j.finish(ctx, Result{Preview: preview, Err: ErrSuperseded})
		return
	}

	langs := p.languages
	updates := p.recognizer.Start(ctx, recognize.Input{
		Image:     imageData,
		MimeType:  "image/png",
		Languages: langs,
	})

	// Progress is republished only for the recognizing sub-stage and is
	// clamped to be monotonically non-decreasing within the job.
	lastPercent := 0
	for update := range updates {
		if update.Done {
			if update.Err != nil {
				log.Warn(ctx, "recognition failed", "recognizer", p.recognizer.Name(), "error", update.Err)
				j.finish(ctx, Result{Preview: preview, Err: fmt.Errorf("%w: %v", common.ErrExtraction, update.Err)})
				return
			}
			text := strings.TrimSpace(update.Text)
			log.Info(ctx, "recognition finished", "recognizer", p.recognizer.Name(), "chars", len(text))
			j.finish(ctx, Result{Text: text, Preview: preview})
			return
		}
		if update.Stage != recognize.StageRecognizing {
			continue
		}
		percent := update.Percent
		if percent < lastPercent {
			percent = lastPercent
		}
		if percent > 100 {
			percent = 100
		}
		lastPercent = percent
		if !j.emit(ctx, Event{Stage: StageRecognizing, Percent: percent}) {
			j.finish(ctx, Result{Preview: preview, Err: ErrSuperseded})
			return
		}
	}

	// The recognizer closed its stream without a terminal event; treat it
	// as an extraction failure rather than propagating a fault.
	j.finish(ctx, Result{Preview: preview, Err: fmt.Errorf("%w: recognizer stream ended unexpectedly", common.ErrExtraction)})
}
