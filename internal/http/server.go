package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// DefaultMaxBodyBytes caps documents posted to /hydrate.
const DefaultMaxBodyBytes = 4 << 20

// ErrPageNotFound reports a page missing from the page directory.
var ErrPageNotFound = errors.New("http: page not found")

// ErrInvalidPage reports a page name that is not a plain file name.
var ErrInvalidPage = errors.New("http: invalid page name")

// Hydrator renders a document with every declared list loaded.
type Hydrator interface {
	Hydrate(ctx context.Context, in io.Reader, out io.Writer, initial domain.Filters) error
}

// Option customises the server.
type Option func(*Server)

// WithPages sets the directory pages are served from.
func WithPages(pages fs.FS) Option {
	return func(s *Server) {
		s.pages = pages
	}
}

// WithLogger sets the request logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxBodyBytes overrides the /hydrate body limit.
func WithMaxBodyBytes(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxBody = limit
		}
	}
}

// Server exposes hydration over HTTP.
type Server struct {
	hydrator Hydrator
	pages    fs.FS
	logger   interfaces.Logger
	maxBody  int64
	router   *chi.Mux
}

// NewServer constructs the router.
func NewServer(hydrator Hydrator, opts ...Option) *Server {
	s := &Server{
		hydrator: hydrator,
		logger:   logging.NoOp(),
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/pages/{page}", s.handlePage)
	r.Post("/hydrate", s.handleHydrate)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodePageNotFound, nil)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.ContextWithFields(r.Context(), map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
		})
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithContext(ctx).Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	body, err := s.readPage(name)
	switch {
	case errors.Is(err, ErrInvalidPage):
		writeError(w, http.StatusBadRequest, CodeInvalidPage, err)
		return
	case err != nil:
		writeError(w, http.StatusNotFound, CodePageNotFound, err)
		return
	}
	s.hydrate(w, r, body)
}

func (s *Server) handleHydrate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, errors.New("http: empty document"))
		return
	}
	s.hydrate(w, r, body)
}

func (s *Server) hydrate(w http.ResponseWriter, r *http.Request, document []byte) {
	var out bytes.Buffer
	if err := s.hydrator.Hydrate(r.Context(), bytes.NewReader(document), &out, queryFilters(r.URL.Query())); err != nil {
		s.logger.WithContext(r.Context()).Error("http.hydrate.failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, CodeHydrateFailed, err)
		return
	}
	writeHTML(w, out.Bytes())
}

func (s *Server) readPage(name string) ([]byte, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".html")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPage, name)
	}
	if s.pages == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, name)
	}
	file := path.Clean(name + ".html")
	body, err := fs.ReadFile(s.pages, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, name)
	}
	return body, nil
}
