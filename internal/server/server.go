// Package server handles the HTTP API for the key-value store.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ASHISH26940/kvstore/internal/metrics"
	"github.com/ASHISH26940/kvstore/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"

	// DefaultMaxBodyBytes caps PUT/POST bodies unless WithMaxBodyBytes says otherwise.
	DefaultMaxBodyBytes = 1 << 20
)

// PutRequest is the body accepted by PUT/POST /kv/{key}.
type PutRequest struct {
	Value json.RawMessage `json:"value"`
}

// ValueResponse is returned by GET /kv/{key}.
type ValueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// DeleteResponse is returned by DELETE /kv/{key}.
type DeleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// ErrorResponse carries the message and the error kind, if any.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Server is the HTTP server for our key-value store.
// It depends only on store.Backend, so any backend can serve it.
type Server struct {
	store   store.Backend
	router  *http.ServeMux
	logger  hclog.Logger
	maxBody int64
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a new Server instance.
func New(backend store.Backend, logger hclog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		store:   backend,
		router:  http.NewServeMux(),
		logger:  logger,
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// ServeHTTP makes our Server a standard http.Handler. Every request gets a
// request ID and is counted by route and status.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(rec, r)

	route := routeOf(r.URL.Path)
	metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	s.logger.Debug("request", "request_id", id, "method", r.Method, "path", r.URL.Path, "status", rec.status)
}

// registerRoutes sets up the HTTP routing for the server.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/kv", s.handleCollection)
	s.router.HandleFunc("/kv/", s.handleKV)
	s.router.HandleFunc("/keys", s.handleKeys)
	s.router.HandleFunc("/size", s.handleSize)
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// routeOf keeps the metrics label set bounded by dropping the key.
func routeOf(path string) string {
	if strings.HasPrefix(path, "/kv/") {
		return "/kv/{key}"
	}
	switch path {
	case "/kv", "/keys", "/size", "/healthz", "/metrics":
		return path
	default:
		return "other"
	}
}

// handleKV is the main dispatcher for all /kv/{key} requests.
func (s *Server) handleKV(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("key is missing"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, key)
	case http.MethodPut, http.MethodPost:
		s.handlePut(w, r, key)
	case http.MethodDelete:
		s.handleDelete(w, key)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed: "+r.Method))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, key string) {
	value, err := s.store.Get(key)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ValueResponse{Key: key, Value: value})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	var req PutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, errors.New("request body must hold a single JSON object"))
		return
	}
	if len(req.Value) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New(`request body must contain "value"`))
		return
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid value"))
		return
	}

	if err := s.store.Put(key, value); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Debug("put", "key", key)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDelete(w http.ResponseWriter, key string) {
	deleted, err := s.store.Delete(key)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, DeleteResponse{Key: key, Deleted: deleted})
}

// handleCollection lists every item or clears the store.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.store.Items()
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		out := make([]ValueResponse, 0, len(items))
		for _, it := range items {
			out = append(out, ValueResponse{Key: it.Key, Value: it.Value})
		}
		s.writeJSON(w, http.StatusOK, out)
	case http.MethodDelete:
		if err := s.store.Clear(); err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.logger.Info("store cleared")
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed: "+r.Method))
	}
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed: "+r.Method))
		return
	}
	keys, err := s.store.Keys()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed: "+r.Method))
		return
	}
	n, err := s.store.Size()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"size": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

// writeStoreError maps the store's error taxonomy to HTTP status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrSerialization) && !errors.Is(err, store.ErrStorage):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("storage operation failed", "error", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: store.Kind(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; all we can do is log.
		s.logger.Warn("failed to encode JSON response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
