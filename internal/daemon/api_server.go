package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/streaming"
)

type apiServer struct {
	bind      string
	cfg       *config.Config
	logger    *slog.Logger
	daemon    *Daemon
	layout    library.Layout
	streaming *streaming.Server

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind must be set")
	}

	srv := &apiServer{
		bind:      bind,
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "api")),
		daemon:    d,
		layout:    library.NewLayout(cfg.Paths.MediaDir),
		streaming: streaming.NewServer(d.store, logger),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/media", srv.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/media", srv.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/media/{id}", srv.handleShow).Methods(http.MethodGet)
	router.HandleFunc("/api/media/{id}", srv.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/api/media/{id}/stream", srv.handleStream).Methods(http.MethodGet)
	router.HandleFunc("/api/events", srv.handleEvents).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Range", "Accept-Ranges", "Content-Length"},
	}).Handler(authMiddleware(cfg, router))

	srv.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:       status.Running,
		PID:           status.PID,
		LibraryDBPath: status.LibraryDBPath,
		LockFilePath:  status.LockFilePath,
		QueueDepth:    status.QueueDepth,
		ItemCounts: map[string]int{
			"total":      status.ItemCounts.Total,
			"pending":    status.ItemCounts.Pending,
			"processing": status.ItemCounts.Processing,
			"safe":       status.ItemCounts.Safe,
			"flagged":    status.ItemCounts.Flagged,
			"failed":     status.ItemCounts.Failed,
		},
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	items, err := s.daemon.store.ListByTenant(r.Context(), id.Tenant)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list media items")
		return
	}
	out := api.MediaListResponse{Items: make([]api.MediaItem, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, api.FromItem(item))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleShow(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedItem(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	itemID := mux.Vars(r)["id"]
	quality := library.Quality(r.URL.Query().Get("quality"))
	if quality == "" {
		quality = library.QualityHigh
	}
	s.streaming.ServeVariant(w, r, id.Tenant, itemID, quality)
}

// ownedItem loads the requested item and enforces tenant ownership.
func (s *apiServer) ownedItem(w http.ResponseWriter, r *http.Request) (*library.Item, bool) {
	id := identityFrom(r)
	itemID := mux.Vars(r)["id"]
	item, err := s.daemon.store.GetByID(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "media item not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, "load media item")
		}
		return nil, false
	}
	if item.TenantID != id.Tenant {
		s.logger.Warn("access denied",
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldTenant, id.Tenant),
			logging.Error(services.Wrap(services.ErrOwnership, "api", "authorize", "item owned by another tenant", nil)))
		s.writeError(w, http.StatusForbidden, "media item belongs to another tenant")
		return nil, false
	}
	return item, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
