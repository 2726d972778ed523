// Package api exposes the upload service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// UploadHandler handles presigned-upload API endpoints.
type UploadHandler struct {
	service simpleupload.Service
}

func NewUploadHandler(service simpleupload.Service) *UploadHandler {
	return &UploadHandler{service: service}
}

// Routes returns the router for upload endpoints.
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.RequestUpload)
	r.Post("/credentials/refresh", h.RefreshCredentials)
	return r
}

// RequestUploadRequest represents the request to obtain an upload URL.
type RequestUploadRequest struct {
	FileName    string `json:"file_name"`
	CustomPath  string `json:"custom_path,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// RequestUploadResponse represents the issued upload grant.
type RequestUploadResponse struct {
	ObjectKey        string            `json:"object_key"`
	UploadURL        string            `json:"upload_url"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers,omitempty"`
	ExpiresAt        time.Time         `json:"expires_at"`
	ExpiresInSeconds int               `json:"expires_in_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RequestUpload issues a presigned upload URL for a single object.
func (h *UploadHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	var req RequestUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if req.FileName == "" {
		writeError(w, r, http.StatusBadRequest, "file_name is required")
		return
	}

	upload, err := h.service.RequestUpload(r.Context(), simpleupload.UploadRequest{
		FileName:    req.FileName,
		CustomPath:  req.CustomPath,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		Metadata:    uploaderMetadata(r),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RequestUploadResponse{
		ObjectKey:        upload.ObjectKey,
		UploadURL:        upload.URL,
		Method:           upload.Method,
		Headers:          upload.Headers,
		ExpiresAt:        upload.ExpiresAt,
		ExpiresInSeconds: int(time.Until(upload.ExpiresAt).Round(time.Second).Seconds()),
	})
}

// RefreshCredentials forces re-resolution of the signing credentials,
// e.g. after secret rotation.
func (h *UploadHandler) RefreshCredentials(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.RefreshCredentials(r.Context()); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "refreshed"})
}

// renderError maps the error taxonomy onto HTTP statuses with
// actionable, secret-free messages.
func (h *UploadHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, simpleupload.ErrInvalidPath):
		writeError(w, r, http.StatusBadRequest, "invalid destination path")
	case errors.Is(err, simpleupload.ErrFileTooLarge):
		writeError(w, r, http.StatusBadRequest, "file exceeds the maximum allowed size")
	case errors.Is(err, simpleupload.ErrExtensionNotAllowed):
		writeError(w, r, http.StatusBadRequest, "file type not allowed")
	case errors.Is(err, simpleupload.ErrIncompleteCredentials):
		slog.Error("upload service misconfigured", "error", err)
		writeError(w, r, http.StatusInternalServerError, "upload service misconfigured")
	case errors.Is(err, simpleupload.ErrSigningFailed):
		slog.Error("storage backend rejected signing credentials", "error", err)
		writeError(w, r, http.StatusBadGateway, "storage backend rejected signing credentials")
	case errors.Is(err, simpleupload.ErrProviderUnavailable),
		errors.Is(err, simpleupload.ErrBackendUnavailable):
		slog.Error("storage temporarily unavailable", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "storage temporarily unavailable, retry")
	default:
		slog.Error("upload request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// uploaderMetadata records the authenticated subject on the stored
// object when the server runs with JWT verification enabled.
func uploaderMetadata(r *http.Request) map[string]string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return nil
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil
	}
	return map[string]string{"uploader": sub}
}
