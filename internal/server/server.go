package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/drewdunne/ghlink/internal/config"
	"github.com/drewdunne/ghlink/internal/linker"
	"github.com/drewdunne/ghlink/internal/logging"
	"github.com/drewdunne/ghlink/internal/metrics"
	"github.com/drewdunne/ghlink/internal/reference"
	"github.com/drewdunne/ghlink/internal/render"
	"github.com/drewdunne/ghlink/internal/repository"
	"github.com/drewdunne/ghlink/internal/resolver"
)

// maxBodyBytes caps the markdown accepted by /link.
const maxBodyBytes = 4 << 20

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Server is the HTTP server for ghlink.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	ready  chan struct{} // closed once the listener accepts connections
	logger *log.Logger
	repo   repository.ID // resolved at startup, zero when unknown

	mu       sync.Mutex // guards srv and listener
	srv      *http.Server
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRepository sets the repository used by requests that name none.
func WithRepository(id repository.ID) Option {
	return func(s *Server) {
		s.repo = id
	}
}

// New creates a new Server with the given config.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		mux:   http.NewServeMux(),
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.Handle("/link", s.withRequestID(http.HandlerFunc(s.handleLink)))
}

// handleHealth responds with server health status. The server is degraded
// when it has no default repository: every request must then name one.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{
		"repository": nil,
	}

	status := "ok"
	if s.repo.IsZero() {
		status = "degraded"
	} else {
		checks["repository"] = s.repo.String()
	}

	health := HealthResponse{
		Status: status,
		Checks: checks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

// withRequestID tags each request with a fresh id, echoed in X-Request-Id.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger := s.logger.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context(), logger)))
	})
}

// handleLink links the markdown in the request body. Each request is an
// independent run with its own repository resolution.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	metrics.RequestReceived()
	logger := log.FromContext(r.Context())

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.fail(w, logger, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	q := r.URL.Query()
	format, err := render.ParseFormat(q.Get("format"))
	if err != nil {
		s.fail(w, logger, http.StatusBadRequest, err)
		return
	}

	// Resolution never discovers here: a server has no document directory.
	res, err := resolver.New(nil, logger).Resolve(s.requestRepository(q.Get("repository"), q.Get("owner"), q.Get("project")), "")
	if err != nil {
		s.fail(w, logger, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, logger, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.fail(w, logger, http.StatusBadRequest, err)
		return
	}

	matcher := reference.NewMatcher(res.ID, reference.WithBaseURL(s.cfg.Linking.BaseURL))
	l := linker.New(matcher, linker.WithPolicy(s.cfg.Linking.Policy), linker.WithLogger(logger))
	doc := l.Process(body)

	var out bytes.Buffer
	if err := render.Write(&out, doc, format); err != nil {
		s.fail(w, logger, http.StatusInternalServerError, err)
		return
	}

	logger.Info("linked document", "repository", res.ID.String(), "links", len(doc.Edits), "bytes", len(body))

	w.Header().Set("Content-Type", render.ContentType(format))
	w.Header().Set("X-Link-Count", strconv.Itoa(len(doc.Edits)))
	w.Write(out.Bytes())
}

// requestRepository picks the repository setting of a request: owner and
// project, then a raw string, then the startup default.
func (s *Server) requestRepository(raw, owner, project string) resolver.Config {
	switch {
	case owner != "" || project != "":
		return resolver.FromID(repository.ID{Owner: owner, Project: project})
	case raw != "":
		return resolver.FromString(raw)
	case !s.repo.IsZero():
		return resolver.FromID(s.repo)
	}
	return resolver.Discover()
}

func (s *Server) fail(w http.ResponseWriter, logger *log.Logger, code int, err error) {
	metrics.RequestFailed()
	logger.Warn("request failed", "status", code, "err", err)
	http.Error(w, err.Error(), code)
}
