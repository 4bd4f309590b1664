package recognize

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer implements Recognizer using the gosseract client as
// the default OCR provider. A fresh client is created per run; runs are
// expected to be serialized by the pipeline.
type TesseractRecognizer struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewTesseractRecognizer constructs a Tesseract-backed recognizer with the
// given default language hints.
func NewTesseractRecognizer(languages ...string) *TesseractRecognizer {
	return &TesseractRecognizer{clientFactory: gosseract.NewClient, languages: languages}
}

func (r *TesseractRecognizer) Name() string { return "tesseract" }

// Start runs recognition in a goroutine, streaming stage/percent updates
// and closing the channel after the terminal event.
func (r *TesseractRecognizer) Start(ctx context.Context, in Input) <-chan Event {
	ch := make(chan Event, 8)

	go func() {
		defer close(ch)

		emit := func(e Event) bool {
			select {
			case ch <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		fail := func(err error) {
			select {
			case ch <- Event{Done: true, Err: err}:
			case <-ctx.Done():
			}
		}

		if len(in.Image) == 0 {
			fail(fmt.Errorf("empty image"))
			return
		}

		if !emit(Event{Stage: StageLoading, Percent: 0}) {
			return
		}

		c := r.clientFactory()
		defer c.Close()

		if err := c.SetImageFromBytes(in.Image); err != nil {
			fail(fmt.Errorf("set image: %w", err))
			return
		}

		langs := in.Languages
		if len(langs) == 0 {
			langs = r.languages
		}
		if len(langs) > 0 {
			if err := c.SetLanguage(langs...); err != nil {
				fail(fmt.Errorf("set languages: %w", err))
				return
			}
		}
		if in.DPI > 0 {
			if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
				fail(fmt.Errorf("set dpi: %w", err))
				return
			}
		}

		select {
		case <-ctx.Done():
			fail(ctx.Err())
			return
		default:
		}

		if !emit(Event{Stage: StageRecognizing, Percent: 0}) {
			return
		}

		// gosseract exposes no incremental progress hook, so the stream
		// reports the recognizing sub-stage as a coarse 0 -> 100 step.
		text, err := c.Text()
		if err != nil {
			fail(fmt.Errorf("recognize text: %w", err))
			return
		}

		if !emit(Event{Stage: StageRecognizing, Percent: 100}) {
			return
		}
		emit(Event{Stage: StageRecognizing, Percent: 100, Done: true, Text: strings.TrimSpace(text)})
	}()

	return ch
}
