// Package uploads stores original scan documents in object storage. Upload
// is a separately-failable step from OCR: a failed upload never discards a
// recognized transcript, the caller decides whether to save transcript-only.
package uploads

import "context"

// StoredObject identifies a durably stored document.
type StoredObject struct {
	// URL is a retrievable (time-limited, presigned) location of the object.
	URL string
	// StorageID is the backend key, kept for later best-effort deletion.
	StorageID string
}

// Adapter is the narrow contract the pipeline and the note service depend on.
type Adapter interface {
	Put(ctx context.Context, data []byte, fileName string, mimeType string) (StoredObject, error)
	Delete(ctx context.Context, storageID string) error
}
