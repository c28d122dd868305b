package streaming

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Server streams variant bytes for completed media items. It is stateless
// and safe for any number of concurrent readers of the same file.
type Server struct {
	store  *library.Store
	logger *slog.Logger
}

func NewServer(store *library.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "streaming")),
	}
}

// ServeVariant answers a range request for one item on behalf of the
// resolved tenant. The quality label is advisory; when the named variant or
// its file is absent the best available variant is served instead.
func (s *Server) ServeVariant(w http.ResponseWriter, r *http.Request, tenantID, itemID string, quality library.Quality) {
	log := s.logger.With(logging.String(logging.FieldItemID, itemID))

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		http.Error(w, "range header required", http.StatusBadRequest)
		return
	}

	item, err := s.store.GetByID(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error("item lookup failed", logging.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if item.Status != library.StatusSafe {
		http.NotFound(w, r)
		return
	}

	path, size, ok := selectVariant(item, quality)
	if !ok {
		http.NotFound(w, r)
		return
	}

	span, err := ParseRange(rangeHeader, size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	if _, err := file.Seek(span.Start, io.SeekStart); err != nil {
		log.Error("seek failed", logging.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", span.Start, span.End, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", span.Length()))
	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusPartialContent)

	if _, err := io.CopyN(w, file, span.Length()); err != nil {
		// Headers are already on the wire, so the response simply ends
		// short. The client sees a truncated body, not a crashed server.
		log.Warn("stream interrupted", logging.Error(err))
	}
}

// selectVariant picks the file to serve. The requested quality wins when its
// file exists; otherwise the highest-bitrate variant with a file present is
// used.
func selectVariant(item *library.Item, quality library.Quality) (path string, size int64, ok bool) {
	if v := item.VariantFor(quality); v != nil {
		if size, present := fileSize(v.StoragePath); present {
			return v.StoragePath, size, true
		}
	}
	for _, v := range item.VariantsByBitrate() {
		if v.Quality == quality {
			continue
		}
		if size, present := fileSize(v.StoragePath); present {
			return v.StoragePath, size, true
		}
	}
	return "", 0, false
}

func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}
