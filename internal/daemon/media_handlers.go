package daemon

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/api"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/transcode"
)

// handleUpload receives a multipart source file, persists the pending item
// and admits its transcode job.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.canMutate() {
		s.writeError(w, http.StatusForbidden, "role cannot upload media")
		return
	}

	maxBytes := int64(s.cfg.Upload.MaxSizeMiB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.extensionAllowed(ext) {
		s.writeError(w, http.StatusBadRequest, "unsupported file extension "+ext)
		return
	}

	itemID := uuid.NewString()
	sourcePath := s.layout.SourcePath(itemID, ext)
	size, err := s.writeSource(sourcePath, file)
	if err != nil {
		s.logger.Error("persist upload", logging.Error(err))
		s.discardUpload(itemID)
		s.writeError(w, http.StatusInternalServerError, "unable to store upload")
		return
	}

	item, err := s.daemon.store.Create(r.Context(), library.CreateParams{
		ID:          itemID,
		TenantID:    id.Tenant,
		Title:       title,
		Description: description,
		SourcePath:  sourcePath,
		SizeBytes:   size,
	})
	if err != nil {
		s.discardUpload(itemID)
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("create media item", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "unable to create media item")
		return
	}

	if err := s.daemon.scheduler.Enqueue(item.ID); err != nil {
		if _, removeErr := s.daemon.store.Delete(r.Context(), item.ID); removeErr != nil {
			s.logger.Warn("discard unadmitted item", logging.Error(removeErr))
		}
		s.discardUpload(itemID)
		if errors.Is(err, transcode.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, "transcode queue is full, retry later")
			return
		}
		s.logger.Error("admit transcode job", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "unable to start processing")
		return
	}

	s.logger.Info("upload accepted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldTenant, id.Tenant),
		logging.Int64("size_bytes", size))
	s.writeJSON(w, http.StatusCreated, api.FromItem(item))
}

// handleDelete removes the record first so a running job aborts on its next
// step, then removes the item's files.
func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.canMutate() {
		s.writeError(w, http.StatusForbidden, "role cannot delete media")
		return
	}
	item, ok := s.ownedItem(w, r)
	if !ok {
		return
	}

	removed, err := s.daemon.store.Delete(r.Context(), item.ID)
	if err != nil {
		s.logger.Error("delete media item", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "unable to delete media item")
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "media item not found")
		return
	}

	if err := os.RemoveAll(s.layout.ItemDir(item.ID)); err != nil {
		s.logger.Warn("remove media files",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err))
	}
	s.logger.Info("media item deleted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldTenant, id.Tenant))
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *apiServer) writeSource(path string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (s *apiServer) discardUpload(itemID string) {
	if err := os.RemoveAll(s.layout.ItemDir(itemID)); err != nil {
		s.logger.Warn("discard upload files", logging.Error(err))
	}
}
