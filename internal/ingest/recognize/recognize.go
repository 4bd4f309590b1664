// Package recognize defines the narrow OCR contract the ingestion pipeline
// depends on, so alternate back-ends can be swapped behind one interface.
package recognize

import "context"

// Stage identifies the recognizer's internal sub-stage. Consumers typically
// surface progress only for StageRecognizing, since early-stage percentages
// (loading, layout analysis) are misleading for long documents.
type Stage string

const (
	StageLoading     Stage = "loading"
	StageRecognizing Stage = "recognizing"
)

// Input is a single raster image submitted for recognition.
type Input struct {
	// Image is the encoded payload (PNG, JPEG, ...).
	Image []byte
	// MimeType declares the image content type.
	MimeType string
	// DPI is the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages lists trained-data hints (e.g. "eng", "fra").
	Languages []string
}

// Event is one element of a recognition stream: zero or more progress
// updates followed by exactly one terminal event (Done=true) carrying
// either the recognized text or the failure, after which the channel is
// closed.
type Event struct {
	Stage   Stage
	Percent int
	Done    bool
	Text    string
	Err     error
}

// Recognizer starts an asynchronous recognition run. The returned channel
// is owned by the recognizer and closed after the terminal event. Context
// cancellation aborts the run; the terminal event then carries ctx.Err().
type Recognizer interface {
	Name() string
	Start(ctx context.Context, in Input) <-chan Event
}
