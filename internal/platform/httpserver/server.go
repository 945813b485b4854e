package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	voteengine "pollstream/contexts/polling/vote-engine"
	"pollstream/internal/platform/realtime"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "pollstream/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	voting voteengine.Module
	hub    *realtime.Hub
}

func New(
	voting voteengine.Module,
	hub *realtime.Hub,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		voting: voting,
		hub:    hub,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /api/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("GET /api/polls/{poll_id}/live", s.handlePollLive)

	s.mux.HandleFunc("POST /api/votes/{poll_id}", s.handleSubmitVote)
	s.mux.HandleFunc("DELETE /api/votes/{poll_id}", s.handleRetractVote)
	s.mux.HandleFunc("GET /api/votes/{poll_id}/status", s.handleVoteStatus)
	s.mux.HandleFunc("GET /api/votes/{poll_id}/results", s.handleResults)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
