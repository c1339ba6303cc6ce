// Package console serves the registered table resources over HTTP and hosts
// the page controllers that bind them to display scopes.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/table"
)

type Server struct {
	Address string
	Port    int
	Router  *chi.Mux

	registry     *binding.Registry
	gatherer     prometheus.Gatherer
	metrics      *binding.Metrics
	log          logr.Logger
	fetchTimeout time.Duration

	mu    sync.Mutex
	last  map[string]*table.Model
	views map[string]*binding.Scope
}

type Option func(*Server)

func WithLogger(l logr.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithMetrics records table requests as fetches.
func WithMetrics(m *binding.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Server) { s.fetchTimeout = d }
}

func NewServer(address string, port int, reg *binding.Registry, opts ...Option) *Server {
	s := &Server{
		Address:      address,
		Port:         port,
		registry:     reg,
		log:          logr.Discard(),
		fetchTimeout: binding.DefaultFetchTimeout,
		last:         map[string]*table.Model{},
		views:        map[string]*binding.Scope{},
	}
	for _, o := range opts {
		o(s)
	}
	s.initRouter()
	return s
}

func (s *Server) initRouter() {
	s.Router = chi.NewRouter()
	s.Router.Use(middleware.Recoverer)
	s.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		s.Router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.Router.Route("/api/tables", func(r chi.Router) {
		r.Get("/", s.GetTagsHandler)
		r.Get("/{tag}", s.GetTableHandler)
	})
	s.Router.Get("/api/views/{name}", s.GetViewHandler)
}

// AddView serves the current snapshot of scope under /api/views/{name}.
func (s *Server) AddView(name string, scope *binding.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[name] = scope
}

func (s *Server) Handler() http.Handler {
	return s.Router
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
	srv := &http.Server{Addr: addr, Handler: s.Router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("Starting console", "address", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrResponse{HTTPStatusCode: status, Message: msg})
}

func (s *Server) GetTagsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.registry.Tags())
}

// GetTableHandler answers a table request: it fetches the resource, projects
// it onto the resource columns, sorts it and formats every cell. When the
// backend fails the last good table of the tag is served, marked stale.
func (s *Server) GetTableHandler(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	res, err := s.registry.Lookup(tag)
	if err != nil {
		writeErr(w, 404, err.Error())
		return
	}

	sort := res.DefaultSort
	if col := r.URL.Query().Get("sortCol"); col != "" {
		sort = binding.SortState{Column: col, Dir: table.ParseSortDir(r.URL.Query().Get("sortDir"))}
	}

	start := time.Now()
	m, fetchErr := s.fetch(r.Context(), res)
	rows := 0
	if m != nil {
		rows = m.RowCount()
	}
	s.metrics.ObserveFetch(tag, rows, fetchErr, time.Since(start))
	stale := false
	if fetchErr != nil {
		s.log.Error(fetchErr, "Table request failed", "tag", tag)
		if m = s.lastGood(tag); m == nil {
			writeErr(w, 503, fetchErr.Error())
			return
		}
		stale = true
	}

	if !sort.IsZero() {
		if !m.HasColumn(sort.Column) {
			writeErr(w, 400, "unknown sort column "+strconv.Quote(sort.Column))
			return
		}
		if err := m.Sort(sort.Column, sort.Dir); err != nil {
			writeErr(w, 500, err.Error())
			return
		}
	}

	tr := newTableResponse(tag, m)
	if !sort.IsZero() {
		tr.SortCol, tr.SortDir = sort.Column, sort.Dir.String()
	}
	if stale {
		tr.Stale, tr.Error = true, fetchErr.Error()
	}
	s.log.V(1).Info("Served table", "tag", tag, "rows", len(tr.Rows), "stale", stale)
	writeJSON(w, 200, tr)
}

func (s *Server) fetch(ctx context.Context, res binding.Resource) (m *table.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, binding.NewTransientFetchError(res.Tag, errors.New("backend panicked"))
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	m, err = res.Fetcher.Fetch(ctx, res.Tag)
	if err == nil && m == nil {
		err = errors.New("backend returned no table")
	}
	if err == nil && len(res.Columns) > 0 {
		m, err = m.Project(res.Columns...)
	}
	if err != nil {
		if !errors.Is(err, binding.ErrTransientFetch) {
			err = binding.NewTransientFetchError(res.Tag, err)
		}
		return nil, err
	}
	s.mu.Lock()
	s.last[res.Tag] = m
	s.mu.Unlock()
	return m.Project(m.Columns()...)
}

func (s *Server) lastGood(tag string) *table.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.last[tag]
	if !ok {
		return nil
	}
	p, err := m.Project(m.Columns()...)
	if err != nil {
		return nil
	}
	return p
}

// GetViewHandler answers with what a hosted page currently displays. Rows
// kept after a failed refresh are marked stale.
func (s *Server) GetViewHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	scope, ok := s.views[name]
	s.mu.Unlock()
	if !ok {
		writeErr(w, 404, "unknown view "+strconv.Quote(name))
		return
	}
	writeJSON(w, 200, newSnapshotResponse(scope.Snapshot()))
}
