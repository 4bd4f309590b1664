package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notescan/internal/common"
	"github.com/dmitrijs2005/notescan/internal/ingest/recognize"
	"github.com/dmitrijs2005/notescan/internal/logging"
)

// -------- test fakes --------

// scriptedRecognizer replays a fixed sequence of events. When gate is set,
// it waits for the gate before emitting anything, which lets tests overlap
// two jobs deterministically.
type scriptedRecognizer struct {
	events []recognize.Event
	gate   chan struct{}

	mu      sync.Mutex
	started int
	inputs  []recognize.Input
}

func (s *scriptedRecognizer) Name() string { return "scripted" }

func (s *scriptedRecognizer) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *scriptedRecognizer) Start(ctx context.Context, in recognize.Input) <-chan recognize.Event {
	s.mu.Lock()
	s.started++
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()
	ch := make(chan recognize.Event, len(s.events))
	go func() {
		defer close(ch)
		if s.gate != nil {
			<-s.gate
		}
		for _, e := range s.events {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type fakeRasterizer struct {
	png    []byte
	err    error
	called int
}

func (f *fakeRasterizer) FirstPagePNG(ctx context.Context, pdf []byte) ([]byte, error) {
	f.called++
	return f.png, f.err
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func collectEvents(t *testing.T, job *Job) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-job.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatalf("timed out waiting for job events; got %+v", events)
		}
	}
}

func stages(events []Event) []Stage {
	result := make([]Stage, 0, len(events))
	for _, e := range events {
		result = append(result, e.Stage)
	}
	return result
}

// -------- tests --------

func TestPipeline_ImageReachesDoneWithTrimmedText(t *testing.T) {
	rec := &scriptedRecognizer{events: []recognize.Event{
		{Stage: recognize.StageLoading, Percent: 0},
		{Stage: recognize.StageRecognizing, Percent: 10},
		{Stage: recognize.StageRecognizing, Percent: 80},
		{Stage: recognize.StageRecognizing, Percent: 100, Done: true, Text: "  recognized text \n"},
	}}
	ras := &fakeRasterizer{}
	p := New(rec, ras, testLogger(), "eng")

	job := p.Start(context.Background(), "owner-1", Source{FileName: "scan.png", MimeType: "image/png", Data: tinyPNG(t)})
	events := collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, "recognized text", res.Text)

	assert.Equal(t, 0, ras.called, "images must not be rasterized")
	assert.Contains(t, stages(events), StagePreviewing)
	assert.NotContains(t, stages(events), StageRasterizing)
	assert.Equal(t, StageDone, events[len(events)-1].Stage)
	assert.Equal(t, []string{"eng"}, rec.inputs[0].Languages)
}

func TestPipeline_PDFRoutedThroughRasterizer(t *testing.T) {
	rendered := []byte("rendered-page-png")
	rec := &scriptedRecognizer{events: []recognize.Event{
		{Stage: recognize.StageRecognizing, Percent: 100, Done: true, Text: "pdf text"},
	}}
	ras := &fakeRasterizer{png: rendered}
	p := New(rec, ras, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "doc.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")})
	events := collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, "pdf text", res.Text)

	assert.Equal(t, 1, ras.called)
	assert.Contains(t, stages(events), StageRasterizing)
	require.Len(t, rec.inputs, 1)
	assert.Equal(t, rendered, rec.inputs[0].Image, "recognizer must receive the rasterized page, not the raw pdf")
	assert.Equal(t, PreviewDocument, res.Preview.Kind, "pdfs get the generic document indicator")
}

func TestPipeline_RasterizeFailureIsExtractionFailure(t *testing.T) {
	rec := &scriptedRecognizer{}
	ras := &fakeRasterizer{err: errors.New("broken xref")}
	p := New(rec, ras, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "bad.pdf", MimeType: "application/pdf", Data: []byte("garbage")})
	events := collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, common.ErrExtraction)
	assert.Equal(t, 0, rec.startCount(), "recognizer must not run after a rasterize failure")
	assert.Equal(t, StageFailed, events[len(events)-1].Stage)
}

func TestPipeline_RecognitionFailureIsAbsorbed(t *testing.T) {
	rec := &scriptedRecognizer{events: []recognize.Event{
		{Stage: recognize.StageRecognizing, Percent: 20},
		{Done: true, Err: errors.New("tesseract crashed")},
	}}
	p := New(rec, &fakeRasterizer{}, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "s.jpg", MimeType: "image/jpeg", Data: []byte("not an image")})
	events := collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, common.ErrExtraction)
	assert.Equal(t, StageFailed, events[len(events)-1].Stage)
}

func TestPipeline_UnsupportedMediaFailsAtPreviewing(t *testing.T) {
	rec := &scriptedRecognizer{}
	p := New(rec, &fakeRasterizer{}, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "notes.docx", MimeType: "application/msword", Data: []byte("...")})
	events := collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, common.ErrUnsupportedMedia)
	assert.Equal(t, 0, rec.startCount())

	require.NotEmpty(t, events)
	assert.Equal(t, StageFailed, events[0].Stage, "unsupported input must fail before any pipeline stage")
}

func TestPipeline_ProgressMonotoneAndRecognizingOnly(t *testing.T) {
	rec := &scriptedRecognizer{events: []recognize.Event{
		{Stage: recognize.StageLoading, Percent: 50},
		{Stage: recognize.StageRecognizing, Percent: 30},
		{Stage: recognize.StageRecognizing, Percent: 20}, // regression must be clamped
		{Stage: recognize.StageRecognizing, Percent: 90},
		{Stage: recognize.StageRecognizing, Percent: 100, Done: true, Text: "t"},
	}}
	p := New(rec, &fakeRasterizer{}, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "s.png", MimeType: "image/png", Data: tinyPNG(t)})
	events := collectEvents(t, job)

	var percents []int
	for _, e := range events {
		if e.Stage == StageRecognizing {
			percents = append(percents, e.Percent)
		}
	}
	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0], "progress starts at 0 for each job")
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1], "progress must never decrease")
	}
	// The loading-stage percent (50) must not have been republished as the
	// first recognizing percent.
	assert.Equal(t, []int{0, 30, 30, 90}, percents)
}

func TestPipeline_SupersededJobIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	slowRec := &scriptedRecognizer{
		gate: gate,
		events: []recognize.Event{
			{Stage: recognize.StageRecognizing, Percent: 100, Done: true, Text: "stale result"},
		},
	}
	p := New(slowRec, &fakeRasterizer{}, testLogger())

	first := p.Start(context.Background(), "owner-1", Source{FileName: "a.png", MimeType: "image/png", Data: tinyPNG(t)})

	// Drain the first job's preview/recognizing events so it is blocked on
	// the gated recognizer before it is superseded.
	<-first.Events()
	<-first.Events()

	second := p.Start(context.Background(), "owner-1", Source{FileName: "b.png", MimeType: "image/png", Data: tinyPNG(t)})
	close(gate)

	firstEvents := collectEvents(t, first)
	for _, e := range firstEvents {
		assert.NotEqual(t, StageDone, e.Stage, "superseded job must not publish a terminal result")
	}

	firstRes, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, firstRes.Err, ErrSuperseded)

	secondEvents := collectEvents(t, second)
	require.NotEmpty(t, secondEvents)
	assert.Equal(t, StageDone, secondEvents[len(secondEvents)-1].Stage)
	assert.Equal(t, "stale result", secondEvents[len(secondEvents)-1].Text)
}

func TestPipeline_JobsUnderDifferentKeysRunIndependently(t *testing.T) {
	gate := make(chan struct{})
	rec := &scriptedRecognizer{
		gate: gate,
		events: []recognize.Event{
			{Stage: recognize.StageRecognizing, Percent: 100, Done: true, Text: "shared text"},
		},
	}
	p := New(rec, &fakeRasterizer{}, testLogger())

	first := p.Start(context.Background(), "owner-1", Source{FileName: "a.png", MimeType: "image/png", Data: tinyPNG(t)})
	second := p.Start(context.Background(), "owner-2", Source{FileName: "b.png", MimeType: "image/png", Data: tinyPNG(t)})
	close(gate)

	for name, job := range map[string]*Job{"owner-1": first, "owner-2": second} {
		events := collectEvents(t, job)
		require.NotEmpty(t, events, name)
		assert.Equal(t, StageDone, events[len(events)-1].Stage, name)

		res, err := job.Wait(context.Background())
		require.NoError(t, err, name)
		assert.NoError(t, res.Err, name)
		assert.Equal(t, "shared text", res.Text, name)
	}
}

func TestPipeline_RecognizerStreamEndingWithoutTerminalFails(t *testing.T) {
	rec := &scriptedRecognizer{events: []recognize.Event{
		{Stage: recognize.StageRecognizing, Percent: 10},
	}}
	p := New(rec, &fakeRasterizer{}, testLogger())

	job := p.Start(context.Background(), "owner-1", Source{FileName: "s.png", MimeType: "image/png", Data: tinyPNG(t)})
	collectEvents(t, job)

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, common.ErrExtraction)
}
