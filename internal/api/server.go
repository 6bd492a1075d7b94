package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/store"
)

type RepositoryOpener func(context.Context) (store.Repository, error)

type Server struct {
	manager  *TaskManager
	mux      *http.ServeMux
	openRepo RepositoryOpener
}

type ServerOption func(*Server)

// WithRepository replaces the store used by the data endpoints. Each request opens and
// closes its own repository.
func WithRepository(open RepositoryOpener) ServerOption {
	return func(s *Server) { s.openRepo = open }
}

func NewServer(manager *TaskManager, opts ...ServerOption) *Server {
	if manager == nil {
		manager = NewTaskManager()
	}
	s := &Server{
		manager: manager,
		mux:     http.NewServeMux(),
		openRepo: func(ctx context.Context) (store.Repository, error) {
			return store.Open(ctx, config.AppConfig)
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /run", s.handleRun)
	s.mux.HandleFunc("POST /stop", s.handleStop)
	s.mux.HandleFunc("GET /logs", s.handleLogs)
	s.mux.HandleFunc("GET /config/options", s.handleConfigOptions)
	s.mux.HandleFunc("GET /data/records", s.handleDataRecords)
	s.mux.HandleFunc("GET /data/export", s.handleDataExport)
	s.mux.HandleFunc("GET /ws/logs", s.handleWSLogs)
	s.mux.HandleFunc("GET /ws/status", s.handleWSStatus)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if err := s.manager.Run(req); err != nil {
		if errors.Is(err, ErrTaskRunning) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
			return
		}
		var ve ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, s.manager.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopped := s.manager.Stop()
	writeJSON(w, http.StatusAccepted, map[string]any{"stopped": stopped})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
