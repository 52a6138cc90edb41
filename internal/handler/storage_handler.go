package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bistro/internal/middleware"
	"bistro/internal/model"
	"bistro/internal/storage"

	"github.com/rs/zerolog"
)

// StorageHandler accepts file uploads into the known buckets.
type StorageHandler struct {
	store    storage.Store
	maxBytes int64
	logger   zerolog.Logger
}

// NewStorageHandler creates a new storage handler. Bodies larger than
// maxBytes are rejected.
func NewStorageHandler(store storage.Store, maxBytes int64, logger zerolog.Logger) *StorageHandler {
	return &StorageHandler{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger.With().Str("handler", "storage").Logger(),
	}
}

// Upload handles POST /api/storage/{bucket}/{path...} requests. The request
// body is the file content. Staff may write anywhere; customers only below
// avatars/{their user id}/.
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	objectPath := r.PathValue("path")

	if err := authorizeUpload(r, bucket, objectPath); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, model.ErrCodeValidation,
				fmt.Sprintf("file must be at most %d bytes", tooLarge.Limit), h.logger)
			return
		}
		writeDomainError(w, model.ValidationError("could not read upload"), h.logger)
		return
	}
	if len(data) == 0 {
		writeDomainError(w, model.ValidationError("file is empty"), h.logger)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	obj, err := h.store.Upload(r.Context(), bucket, objectPath, data, contentType)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info().
		Str("bucket", obj.Bucket).
		Str("path", obj.Path).
		Int("size", len(data)).
		Msg("file uploaded")

	writeJSON(w, http.StatusCreated, obj)
}

func authorizeUpload(r *http.Request, bucket, objectPath string) error {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return model.ErrUnauthorised
	}
	if caller.Role.IsStaff() {
		return nil
	}

	cleaned, err := storage.CleanPath(objectPath)
	if err != nil {
		return err
	}
	if bucket != storage.BucketAvatars || !strings.HasPrefix(cleaned, caller.UserID.String()+"/") {
		return model.NewDomainError(model.ErrCodeForbidden, "Customers may only upload to avatars/{their user id}/")
	}
	return nil
}
