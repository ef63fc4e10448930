package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/logging"
	"github.com/aretw0/augeas/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec parses and validates the embedded OpenAPI document.
func Spec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// Server exposes one named session of a Manager over HTTP.
type Server struct {
	sessions *session.Manager
	name     string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	validate bool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the metrics of g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRequestValidation rejects requests that do not match the OpenAPI
// document with 400 before they reach the session.
func WithRequestValidation() Option {
	return func(s *Server) {
		s.validate = true
	}
}

// NewHandler creates the HTTP handler for the session called name.
func NewHandler(sessions *session.Manager, name string, opts ...Option) (http.Handler, error) {
	s := &Server{
		sessions: sessions,
		name:     name,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var check func(http.Handler) http.Handler
	if s.validate {
		doc, err := Spec(context.Background())
		if err != nil {
			return nil, err
		}
		router, err := legacy.NewRouter(doc)
		if err != nil {
			return nil, fmt.Errorf("build openapi router: %w", err)
		}
		check = validator(router)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(specYAML)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if check != nil {
			r.Use(check)
		}
		r.Get("/tree", s.GetNode)
		r.Put("/tree", s.SetNode)
		r.Delete("/tree", s.RemoveNodes)
		r.Get("/match", s.MatchNodes)
		r.Post("/mv", s.MoveNode)
		r.Get("/transforms", s.ListTransforms)
		r.Post("/transforms", s.AddTransform)
		r.Delete("/transforms", s.ClearTransforms)
		r.Post("/load", s.Load)
		r.Post("/save", s.Save)
		r.Get("/errors", s.ListFileErrors)
	})
	return r, nil
}

func validator(router routers.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := router.FindRoute(r)
			if err == nil {
				err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
					Request:    r,
					PathParams: params,
					Route:      route,
				})
			}
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Kind: augeas.KindBadArgument.String(), Message: err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Node is the body of GET /tree.
type Node struct {
	Path   string  `json:"path"`
	Value  *string `json:"value"`
	Exists bool    `json:"exists"`
}

// SetRequest is the body of PUT /tree. Values, when present, are assigned
// to the nodes matching Path in order.
type SetRequest struct {
	Path   string   `json:"path"`
	Value  *string  `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// MoveRequest is the body of POST /mv.
type MoveRequest struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

type errorBody struct {
	Kind    string             `json:"kind"`
	Message string             `json:"message"`
	Errors  []augeas.FileError `json:"errors,omitempty"`
}

// GetNode handles GET /tree.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	var node Node
	err := s.with(r, func(sess *augeas.Session) error {
		v, ok, err := sess.Get(path)
		if err != nil {
			return err
		}
		if !ok {
			// a node without a value still exists
			exists, err := sess.Exists(path)
			if err != nil {
				return err
			}
			if !exists {
				return &augeas.Error{Kind: augeas.KindNoMatch, Op: "get", Path: path, Message: "No match for path expression"}
			}
		}
		node = Node{Path: path, Exists: true}
		if ok {
			node.Value = &v
		}
		return nil
	})
	s.respond(w, r, err, http.StatusOK, node)
}

// SetNode handles PUT /tree.
func (s *Server) SetNode(w http.ResponseWriter, r *http.Request) {
	var body SetRequest
	if !s.decode(w, r, &body) {
		return
	}
	err := s.with(r, func(sess *augeas.Session) error {
		switch {
		case body.Values != nil:
			return sess.SetAll(body.Path, body.Values...)
		case body.Value == nil:
			return sess.Touch(body.Path)
		}
		return sess.Set(body.Path, *body.Value)
	})
	s.respond(w, r, err, http.StatusNoContent, nil)
}

// RemoveNodes handles DELETE /tree.
func (s *Server) RemoveNodes(w http.ResponseWriter, r *http.Request) {
	var n int
	err := s.with(r, func(sess *augeas.Session) (err error) {
		n, err = sess.Rm(r.URL.Query().Get("path"))
		return err
	})
	s.respond(w, r, err, http.StatusOK, map[string]int{"count": n})
}

// MatchNodes handles GET /match.
func (s *Server) MatchNodes(w http.ResponseWriter, r *http.Request) {
	var paths []string
	err := s.with(r, func(sess *augeas.Session) (err error) {
		paths, err = sess.Match(r.URL.Query().Get("path"))
		return err
	})
	s.respond(w, r, err, http.StatusOK, map[string][]string{"paths": paths})
}

// MoveNode handles POST /mv.
func (s *Server) MoveNode(w http.ResponseWriter, r *http.Request) {
	var body MoveRequest
	if !s.decode(w, r, &body) {
		return
	}
	err := s.with(r, func(sess *augeas.Session) error {
		return sess.Mv(body.Src, body.Dst)
	})
	s.respond(w, r, err, http.StatusNoContent, nil)
}

// ListTransforms handles GET /transforms.
func (s *Server) ListTransforms(w http.ResponseWriter, r *http.Request) {
	var ts []augeas.Transform
	err := s.with(r, func(sess *augeas.Session) (err error) {
		ts, err = sess.Transforms()
		return err
	})
	s.respond(w, r, err, http.StatusOK, ts)
}

// AddTransform handles POST /transforms.
func (s *Server) AddTransform(w http.ResponseWriter, r *http.Request) {
	var body augeas.Transform
	if !s.decode(w, r, &body) {
		return
	}
	err := s.with(r, func(sess *augeas.Session) error {
		return sess.Transform(body)
	})
	s.respond(w, r, err, http.StatusCreated, nil)
}

// ClearTransforms handles DELETE /transforms.
func (s *Server) ClearTransforms(w http.ResponseWriter, r *http.Request) {
	err := s.with(r, func(sess *augeas.Session) error {
		return sess.ClearTransforms()
	})
	s.respond(w, r, err, http.StatusNoContent, nil)
}

// Load handles POST /load.
func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	s.treeCommand(w, r, (*augeas.Session).Load)
}

// Save handles POST /save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	s.treeCommand(w, r, (*augeas.Session).Save)
}

// treeCommand runs load or save and attaches the per file errors to a
// failure.
func (s *Server) treeCommand(w http.ResponseWriter, r *http.Request, cmd func(*augeas.Session) error) {
	var files []augeas.FileError
	err := s.with(r, func(sess *augeas.Session) error {
		err := cmd(sess)
		if err != nil {
			files, _ = sess.FileErrors()
		}
		return err
	})
	if err != nil {
		s.fail(w, r, err, files)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFileErrors handles GET /errors.
func (s *Server) ListFileErrors(w http.ResponseWriter, r *http.Request) {
	var files []augeas.FileError
	err := s.with(r, func(sess *augeas.Session) (err error) {
		files, err = sess.FileErrors()
		return err
	})
	s.respond(w, r, err, http.StatusOK, files)
}

func (s *Server) with(r *http.Request, fn func(*augeas.Session) error) error {
	return s.sessions.WithLock(r.Context(), s.name, fn)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Kind: augeas.KindBadArgument.String(), Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error, status int, body any) {
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if body == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, files []augeas.FileError) {
	status := StatusFor(err)
	kind := augeas.KindInternal.String()
	if k, ok := augeas.KindOf(err); ok {
		kind = k.String()
	} else if errors.Is(err, session.ErrSessionNotFound) {
		kind = augeas.KindClosed.String()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Kind: kind, Message: err.Error(), Errors: files})
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	kind, ok := augeas.KindOf(err)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusServiceUnavailable
	case !ok:
		return http.StatusInternalServerError
	}
	switch kind {
	case augeas.KindNoMatch:
		return http.StatusNotFound
	case augeas.KindMultipleMatches:
		return http.StatusConflict
	case augeas.KindPathExpr, augeas.KindBadArgument, augeas.KindBadLabel, augeas.KindDescendant:
		return http.StatusBadRequest
	case augeas.KindClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
