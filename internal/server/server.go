// SPDX-License-Identifier: MIT

// Package server exposes a [treemap.Tree] over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
)

type (
	// Server serializes access to one tree for concurrent requests.
	Server struct {
		mu   sync.Mutex
		tree *treemap.Tree
		root treemap.NodeID

		logger  logrus.FieldLogger
		display treemap.Rect
	}

	// Option defines the Server functional option type.
	Option func(*Server)

	// NodeView describes a node in responses.
	NodeView struct {
		ID    treemap.NodeID `json:"id"`
		Label string         `json:"label"`
		Path  string         `json:"path"`
		Size  int64          `json:"size"`
		Color string         `json:"color"`
		Empty bool           `json:"empty"`
		Leaf  bool           `json:"leaf"`
	}

	// LayoutView is the response of a layout request.
	LayoutView struct {
		Display treemap.Rect   `json:"display"`
		Size    int64          `json:"size"`
		Tiles   []treemap.Tile `json:"tiles"`
	}
)

// Request errors.
var (
	ErrBadParam = errors.New("invalid parameter")
	ErrNoTile   = errors.New("no tile at point")
)

const shutdownTimeout = 5 * time.Second

// DefaultDisplay is the display rectangle used by requests without dimensions.
var DefaultDisplay = treemap.Rect{W: 1024, H: 738}

// New instantiates a Server for the tree below root.
func New(tree *treemap.Tree, root treemap.NodeID, options ...Option) *Server {
	s := &Server{tree: tree, root: root, logger: logrus.StandardLogger(), display: DefaultDisplay}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithDisplay configures the default display rectangle.
func WithDisplay(r treemap.Rect) Option {
	return func(s *Server) { s.display = r }
}

// Routes builds the API's router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, s.logRequests, middleware.Recoverer)

	r.Get("/layout", s.handleLayout)
	r.Get("/pick", s.handlePick)
	r.Route("/nodes/{id}", func(r chi.Router) {
		r.Get("/", s.handleNode)
		r.Delete("/", s.handleDelete)
		r.Post("/resize", s.handleResize)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) (err error) {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() { errChan <- srv.ListenAndServe() }()

	s.logger.WithField("addr", addr).Info("serving treemap API")

	select {
	case err = <-errChan:
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return
	}

	if err = <-errChan; errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	return
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	display, err := s.displayParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	view := LayoutView{Display: display, Size: s.tree.Size(s.root), Tiles: s.tree.LayOut(s.root, display)}
	s.mu.Unlock()

	if view.Tiles == nil {
		view.Tiles = []treemap.Tile{}
	}

	s.reply(w, http.StatusOK, view)
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	display, err := s.displayParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	x, err := intParam(r, "x", -1)
	if err != nil {
		s.fail(w, err)
		return
	}
	y, err := intParam(r, "y", -1)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tree.Index(s.root, display).Lookup(x, y)
	if !ok {
		s.fail(w, fmt.Errorf("(%d, %d) %w", x, y, ErrNoTile))
		return
	}

	s.reply(w, http.StatusOK, s.view(id))
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nodeParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.reply(w, http.StatusOK, s.view(id))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nodeParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	if err = s.tree.Delete(id); err != nil {
		s.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	grow, err := strconv.ParseBool(r.URL.Query().Get("grow"))
	if err != nil {
		s.fail(w, fmt.Errorf("%w (grow): %w", ErrBadParam, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nodeParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	if err = s.tree.Resize(id, grow); err != nil {
		s.fail(w, err)
		return
	}

	s.reply(w, http.StatusOK, s.view(id))
}

// view describes a node, the caller holds the lock.
func (s *Server) view(id treemap.NodeID) NodeView {
	path, _ := s.tree.Path(id)

	return NodeView{
		ID:    id,
		Label: s.tree.Label(id).String(),
		Path:  path,
		Size:  s.tree.Size(id),
		Color: s.tree.Color(id).Hex(),
		Empty: s.tree.IsEmpty(id),
		Leaf:  s.tree.IsLeaf(id),
	}
}

// nodeParam validates the {id} route parameter, the caller holds the lock.
func (s *Server) nodeParam(r *http.Request) (id treemap.NodeID, err error) {
	raw := chi.URLParam(r, "id")

	n, err := strconv.Atoi(raw)
	if err != nil {
		err = fmt.Errorf("%w (id): %w", ErrBadParam, err)
		return
	}

	id = treemap.NodeID(n)
	if id < 0 || n >= s.tree.Len() {
		err = fmt.Errorf("node (%d) %w", id, treemap.ErrNotFound)
	}

	return
}

func (s *Server) displayParam(r *http.Request) (display treemap.Rect, err error) {
	display = s.display

	if display.W, err = intParam(r, "w", display.W); err != nil {
		return
	}
	if display.H, err = intParam(r, "h", display.H); err != nil {
		return
	}

	if display.W < 0 || display.H < 0 {
		err = fmt.Errorf("%w: negative display %dx%d", ErrBadParam, display.W, display.H)
	}

	return
}

// intParam parses a query parameter, def is used when it is absent & negative defaults
// mark the parameter as required.
func intParam(r *http.Request, key string, def int) (n int, err error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		if def < 0 {
			err = fmt.Errorf("%w (%s): missing", ErrBadParam, key)
		}
		return def, err
	}

	if n, err = strconv.Atoi(raw); err != nil {
		err = fmt.Errorf("%w (%s): %w", ErrBadParam, key, err)
	}

	return
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadParam):
		status = http.StatusBadRequest
	case errors.Is(err, treemap.ErrNotFound), errors.Is(err, ErrNoTile):
		status = http.StatusNotFound
	case errors.Is(err, treemap.ErrNotLeaf), errors.Is(err, treemap.ErrEmptyNode):
		status = http.StatusConflict
	}

	s.logger.WithError(err).WithField("status", status).Debug("request failed")
	s.reply(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to write response")
	}
}
