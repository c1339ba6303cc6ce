package binding

import (
	"context"
	"sort"
	"sync"

	"github.com/aditip149209/okview/pkg/table"
)

// Fetcher produces the current rows of a table resource. Implementations
// may block on I/O; the binding service always calls them off the caller's
// goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, tag string) (*table.Model, error)
}

type FetcherFunc func(ctx context.Context, tag string) (*table.Model, error)

func (f FetcherFunc) Fetch(ctx context.Context, tag string) (*table.Model, error) {
	return f(ctx, tag)
}

// Presorter is implemented by fetchers whose backend orders the rows itself,
// using the sort found in the fetch context. The binding keeps their order.
type Presorter interface {
	Presorted() bool
}

func presorted(f Fetcher) bool {
	p, ok := f.(Presorter)
	return ok && p.Presorted()
}

type sortKey struct{}

// WithSort returns a copy of ctx carrying the sort a fetch should honour.
func WithSort(ctx context.Context, s SortState) context.Context {
	return context.WithValue(ctx, sortKey{}, s)
}

// SortFromContext returns the sort the binding asked for, if any.
func SortFromContext(ctx context.Context) (SortState, bool) {
	s, ok := ctx.Value(sortKey{}).(SortState)
	return s, ok && !s.IsZero()
}

type SortState struct {
	Column string
	Dir    table.SortDir
}

func (s SortState) IsZero() bool { return s.Column == "" }

type Resource struct {
	Tag         string
	Fetcher     Fetcher
	DefaultSort SortState
	Columns     []string
}

type ResourceOption func(*Resource)

func WithDefaultSort(col string, dir table.SortDir) ResourceOption {
	return func(r *Resource) {
		r.DefaultSort = SortState{Column: col, Dir: dir}
	}
}

// WithColumns restricts the columns shown for the resource unless the
// binding config names its own.
func WithColumns(cols ...string) ResourceOption {
	return func(r *Resource) {
		r.Columns = append([]string(nil), cols...)
	}
}

// Registry maps tags to their backends. It is passed to the service
// explicitly; there is no package-level registry.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

func NewRegistry() *Registry {
	return &Registry{resources: map[string]Resource{}}
}

// Register adds or replaces the backend for tag.
func (r *Registry) Register(tag string, f Fetcher, opts ...ResourceOption) {
	res := Resource{Tag: tag, Fetcher: f}
	for _, o := range opts {
		o(&res)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[tag] = res
}

func (r *Registry) Lookup(tag string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[tag]
	if !ok || tag == "" {
		return Resource{}, &UnknownResourceError{Tag: tag}
	}
	return res, nil
}

func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.resources))
	for t := range r.resources {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
