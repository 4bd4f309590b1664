// Package models defines server-side data models persisted in the database.
package models

import "time"

// Origin distinguishes how a note was captured. It is assigned at creation
// and never changes; it determines which content field is authoritative.
type Origin string

const (
	// OriginManual marks a note typed in the rich-text editor.
	OriginManual Origin = "manual"
	// OriginScan marks a note transcribed from a scanned image or PDF.
	OriginScan Origin = "scan"
)

// Valid reports whether o is one of the known origin tags.
func (o Origin) Valid() bool {
	return o == OriginManual || o == OriginScan
}

// Attachment references the uploaded source document of a scan note.
type Attachment struct {
	// URL is a retrievable (presigned) location of the stored object.
	URL string
	// StorageID is the object-storage key, used for best-effort deletion.
	StorageID string
	FileName  string
	MimeType  string
}

// Note is the persisted unit of case information. Exactly one of
// RichContent/Transcript is active, selected by Origin; the inactive field
// is never populated. Every read and write is filtered by OwnerID.
type Note struct {
	ID      string
	OwnerID string
	Title   string
	Origin  Origin

	// RichContent holds opaque serialized rich-text markup (manual notes only).
	RichContent string
	// Transcript holds OCR output or hand-corrected plain text (scan notes only).
	Transcript string

	// Attachment is present only for scan notes whose upload succeeded.
	Attachment *Attachment

	CreatedAt time.Time
	UpdatedAt time.Time
}
