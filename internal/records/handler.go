package records

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/httputil"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts governed-entity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/properties/{propertyID}/documents", h.HandleUploadDocument)
	r.Get("/documents/{documentID}/download", h.HandleDownloadDocument)
	r.Patch("/documents/{documentID}", h.HandleUpdateDocument)
	r.Delete("/documents/{documentID}", h.HandleDeleteDocument)

	r.Post("/properties/{propertyID}/notes", h.HandleCreateNote)
	r.Patch("/notes/{noteID}", h.HandleUpdateNote)
	r.Delete("/notes/{noteID}", h.HandleDeleteNote)

	r.Post("/properties/{propertyID}/tasks", h.HandleCreateTask)
	r.Patch("/tasks/{taskID}", h.HandleUpdateTask)
	r.Delete("/tasks/{taskID}", h.HandleDeleteTask)
}

// actor pulls the authenticated identity or writes the uniform 401.
func actor(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

type uploadDocumentRequest struct {
	Filename    string `json:"filename" valid:"required"`
	ContentType string `json:"content_type" valid:"required"`
	Visibility  string `json:"visibility" valid:"required"`
	Payload     string `json:"payload" valid:"required,base64"`
}

type documentResponse struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Filename   string `json:"filename"`
	Visibility string `json:"visibility"`
	SizeBytes  int64  `json:"size_bytes"`
	CreatedAt  string `json:"created_at"`
}

func toDocumentResponse(doc property.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID.String(),
		PropertyID: doc.PropertyID.String(),
		Filename:   doc.Filename,
		Visibility: string(doc.Visibility),
		SizeBytes:  doc.SizeBytes,
		CreatedAt:  doc.CreatedAt.Format(time.RFC3339),
	}
}

// HandleUploadDocument handles POST /properties/{propertyID}/documents.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[uploadDocumentRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	visibility, err := property.ParseDocumentVisibility(req.Visibility)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "payload is not valid base64"))
		return
	}

	doc, err := h.service.UploadDocument(ctx, userID, propertyID, payload, req.Filename, req.ContentType, visibility)
	if err != nil {
		h.logger.WarnContext(ctx, "document upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// HandleDownloadDocument handles GET /documents/{documentID}/download.
func (h *Handler) HandleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	url, err := h.service.SignedDownloadURL(ctx, userID, documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

type updateDocumentRequest struct {
	Filename   *string `json:"filename"`
	Visibility *string `json:"visibility"`
}

// HandleUpdateDocument handles PATCH /documents/{documentID}.
func (h *Handler) HandleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[updateDocumentRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var update DocumentUpdate
	update.Filename = req.Filename
	if req.Visibility != nil {
		visibility, err := property.ParseDocumentVisibility(*req.Visibility)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Visibility = &visibility
	}

	doc, err := h.service.UpdateDocument(ctx, userID, documentID, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// HandleDeleteDocument handles DELETE /documents/{documentID}.
func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteDocument(ctx, userID, documentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type createNoteRequest struct {
	Title      string `json:"title" valid:"required"`
	Body       string `json:"body"`
	Visibility string `json:"visibility" valid:"required"`
}

type noteResponse struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Visibility string `json:"visibility"`
}

func toNoteResponse(note property.Note) noteResponse {
	return noteResponse{
		ID:         note.ID.String(),
		PropertyID: note.PropertyID.String(),
		Title:      note.Title,
		Body:       note.Body,
		Visibility: string(note.Visibility),
	}
}

// HandleCreateNote handles POST /properties/{propertyID}/notes.
func (h *Handler) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[createNoteRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	visibility, err := property.ParseNoteVisibility(req.Visibility)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	note, err := h.service.CreateNote(ctx, userID, propertyID, req.Title, req.Body, visibility)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toNoteResponse(note))
}

type updateNoteRequest struct {
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	Visibility *string `json:"visibility"`
}

// HandleUpdateNote handles PATCH /notes/{noteID}.
func (h *Handler) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	noteID, err := id.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[updateNoteRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	update := NoteUpdate{Title: req.Title, Body: req.Body}
	if req.Visibility != nil {
		visibility, err := property.ParseNoteVisibility(*req.Visibility)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Visibility = &visibility
	}

	note, err := h.service.UpdateNote(ctx, userID, noteID, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(note))
}

// HandleDeleteNote handles DELETE /notes/{noteID}.
func (h *Handler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	noteID, err := id.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteNote(ctx, userID, noteID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type createTaskRequest struct {
	Title       string     `json:"title" valid:"required"`
	Description string     `json:"description"`
	Visibility  string     `json:"visibility" valid:"required"`
	DueAt       *time.Time `json:"due_at"`
}

type taskResponse struct {
	ID          string     `json:"id"`
	PropertyID  string     `json:"property_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Visibility  string     `json:"visibility"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

func toTaskResponse(task property.Task) taskResponse {
	return taskResponse{
		ID:          task.ID.String(),
		PropertyID:  task.PropertyID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Visibility:  string(task.Visibility),
		DueAt:       task.DueAt,
	}
}

// HandleCreateTask handles POST /properties/{propertyID}/tasks.
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[createTaskRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	visibility, err := property.ParseTaskVisibility(req.Visibility)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	task, err := h.service.CreateTask(ctx, userID, propertyID, req.Title, req.Description, visibility, req.DueAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTaskResponse(task))
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Visibility  *string    `json:"visibility"`
	DueAt       *time.Time `json:"due_at"`
}

// HandleUpdateTask handles PATCH /tasks/{taskID}.
func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[updateTaskRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	update := TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	}
	if req.Status != nil {
		status, err := property.ParseTaskStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Status = &status
	}
	if req.Visibility != nil {
		visibility, err := property.ParseTaskVisibility(*req.Visibility)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Visibility = &visibility
	}

	task, err := h.service.UpdateTask(ctx, userID, taskID, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTaskResponse(task))
}

// HandleDeleteTask handles DELETE /tasks/{taskID}.
func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteTask(ctx, userID, taskID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
