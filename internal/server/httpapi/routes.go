package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/notescan/internal/common"
	"github.com/dmitrijs2005/notescan/internal/ingest"
	"github.com/dmitrijs2005/notescan/internal/logging"
	"github.com/dmitrijs2005/notescan/internal/server/models"
	"github.com/dmitrijs2005/notescan/internal/server/notes"
	"github.com/dmitrijs2005/notescan/internal/server/uploads"
)

type API struct {
	notes    *notes.Service
	pipeline *ingest.Pipeline
	uploads  uploads.Adapter
	logger   logging.Logger
}

func NewAPI(svc *notes.Service, pipe *ingest.Pipeline, up uploads.Adapter, logger logging.Logger) *API {
	return &API{notes: svc, pipeline: pipe, uploads: up, logger: logger.With("module", "http_api")}
}

func registerRoutes(r *gin.Engine, api *API, secretKey []byte) {
	r.GET("/api/health", api.handleHealth)

	authed := r.Group("/api", BearerAuth(secretKey))
	{
		authed.GET("/notes", api.handleListNotes)
		authed.POST("/notes", api.handleCreateNote)
		authed.PATCH("/notes", api.handleUpdateNote)
		authed.DELETE("/notes", api.handleDeleteNote)

		authed.POST("/scans", api.handleScan)
	}
}

// -------- JSON shapes --------

type attachmentJSON struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
}

type noteJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Origin      string          `json:"origin"`
	RichContent string          `json:"richContent"`
	Transcript  string          `json:"transcript"`
	Attachment  *attachmentJSON `json:"attachment,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt"`
}

type previewJSON struct {
	Kind    string `json:"kind"`
	DataURI string `json:"dataUri,omitempty"`
}

func toNoteJSON(n *models.Note) noteJSON {
	out := noteJSON{
		ID:          n.ID,
		Title:       n.Title,
		Origin:      string(n.Origin),
		RichContent: n.RichContent,
		Transcript:  n.Transcript,
	}
	if n.Attachment != nil {
		out.Attachment = &attachmentJSON{
			URL:       n.Attachment.URL,
			StorageID: n.Attachment.StorageID,
			FileName:  n.Attachment.FileName,
			MimeType:  n.Attachment.MimeType,
		}
	}
	if !n.CreatedAt.IsZero() {
		t := n.CreatedAt
		out.CreatedAt = &t
	}
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// -------- handlers --------

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleListNotes(c *gin.Context) {
	list, err := a.notes.List(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]noteJSON, 0, len(list))
	for _, n := range list {
		out = append(out, toNoteJSON(n))
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (a *API) handleCreateNote(c *gin.Context) {
	var payload struct {
		Title       string          `json:"title"`
		Origin      string          `json:"origin"`
		RichContent string          `json:"richContent"`
		Transcript  string          `json:"transcript"`
		Attachment  *attachmentJSON `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	draft := notes.Draft{
		Title:       strings.TrimSpace(payload.Title),
		Origin:      models.Origin(payload.Origin),
		RichContent: payload.RichContent,
		Transcript:  payload.Transcript,
	}
	if payload.Attachment != nil {
		draft.Attachment = &models.Attachment{
			URL:       payload.Attachment.URL,
			StorageID: payload.Attachment.StorageID,
			FileName:  payload.Attachment.FileName,
			MimeType:  payload.Attachment.MimeType,
		}
	}

	id, err := a.notes.Create(c.Request.Context(), ownerID(c), draft)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (a *API) handleUpdateNote(c *gin.Context) {
	var payload struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		RichContent *string `json:"richContent"`
		Transcript  *string `json:"transcript"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	patch := notes.Patch{
		Title:       strings.TrimSpace(payload.Title),
		RichContent: payload.RichContent,
		Transcript:  payload.Transcript,
	}

	if err := a.notes.Update(c.Request.Context(), ownerID(c), payload.ID, patch); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) handleDeleteNote(c *gin.Context) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := a.notes.Delete(c.Request.Context(), ownerID(c), payload.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleScan runs the ingestion pipeline on one uploaded file and stores the
// original. The transcript is returned for review; persisting it as a note
// is a separate POST /api/notes call so the user can correct the text first.
func (a *API) handleScan(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing scan file")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	data, err := io.ReadAll(upload)
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	// Supersession is scoped to the owner's capture interaction: a newer
	// scan from the same owner abandons this one, other owners' scans
	// are unaffected.
	job := a.pipeline.Start(ctx, ownerID(c), ingest.Source{
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	for range job.Events() {
		// Drain; progress streaming belongs to the capture UI, not this
		// synchronous endpoint.
	}
	res, err := job.Wait(ctx)
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "scan aborted")
		return
	}

	if errors.Is(res.Err, common.ErrUnsupportedMedia) {
		respondMessage(c, http.StatusBadRequest, "unsupported media type")
		return
	}
	if errors.Is(res.Err, ingest.ErrSuperseded) {
		respondMessage(c, http.StatusConflict, "superseded by a newer scan")
		return
	}

	out := gin.H{
		"transcript": res.Text,
		"failed":     res.Err != nil,
		"preview":    previewJSON{Kind: string(res.Preview.Kind), DataURI: res.Preview.DataURI},
	}
	if res.Err != nil {
		out["transcript"] = ingest.FallbackTranscript
	}

	// The original is stored regardless of recognition outcome so a failed
	// extraction can still be reviewed from the attachment.
	obj, err := a.uploads.Put(ctx, data, fileHeader.Filename, mimeType)
	if err != nil {
		a.logger.Warn(ctx, "scan upload failed", "file", fileHeader.Filename, "error", err)
		out["uploadError"] = "upload failed"
	} else {
		out["attachment"] = attachmentJSON{
			URL:       obj.URL,
			StorageID: obj.StorageID,
			FileName:  fileHeader.Filename,
			MimeType:  mimeType,
		}
	}

	c.JSON(http.StatusOK, out)
}

// -------- error mapping --------

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		respondMessage(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		respondMessage(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		respondMessage(c, http.StatusNotFound, "not found")
	default:
		respondMessage(c, http.StatusInternalServerError, "internal error")
	}
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
