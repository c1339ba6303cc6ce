// Package binding attaches table resources to display scopes.
//
// A Service binds a Scope to a tag registered in a Registry. The binding owns
// the fetch, the sort state, the sort icons and row materialization; the
// scope exposes Refresh and SortCallback to the view that owns it and
// publishes Events so a display surface can pull a fresh Snapshot.
//
// Fetches run on their own goroutines. Each one carries a sequence number
// and only the most recently issued fetch of the active binding is applied,
// whatever order the backends answer in. A failed fetch leaves the previous
// rows in place and is not retried until the next refresh.
package binding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/table"
)

const DefaultFetchTimeout = 10 * time.Second

type Service struct {
	registry     *Registry
	log          logr.Logger
	metrics      *Metrics
	fetchTimeout time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Service)

func WithLogger(l logr.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) { s.fetchTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(reg *Registry, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:     reg,
		log:          logr.Discard(),
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Registry() *Registry { return s.registry }

// Bind attaches tag to scope and starts the initial fetch. Binding a scope
// that is already bound replaces the old binding: its hooks are swapped out
// and any of its fetches still in flight are discarded when they land.
//
// Bind fails with an UnknownResourceError for an unregistered tag, leaving
// the scope untouched, and with an InvalidScopeError for a nil scope.
func (s *Service) Bind(scope *Scope, tag string, cfg ...Config) (*Binding, error) {
	if scope == nil {
		return nil, &InvalidScopeError{Context: fmt.Sprintf("nil scope for tag %q", tag)}
	}
	res, err := s.registry.Lookup(tag)
	if err != nil {
		return nil, err
	}
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}

	b := &Binding{
		id:    uuid.New(),
		tag:   tag,
		cfg:   c,
		res:   res,
		svc:   s,
		scope: scope,
		sort:  c.DefaultSort,
	}
	if b.sort.IsZero() {
		b.sort = res.DefaultSort
	}
	b.log = s.log.WithValues("scope", scope.name, "tag", tag, "binding", b.id.String())

	scope.mu.Lock()
	old := scope.b
	if old != nil {
		old.closed = true
		if c.PersistSort && !old.sort.IsZero() {
			b.sort = old.sort
		}
	}
	scope.b = b
	scope.snap = Snapshot{Tag: tag, Sort: b.sort}
	if !b.sort.IsZero() {
		scope.snap.Icons = map[string]table.SortDir{b.sort.Column: b.sort.Dir}
	}
	scope.refresh = b.refresh
	scope.sortCallback = b.issue
	scope.notifyLocked(Event{Kind: EventBound, Tag: tag})
	scope.mu.Unlock()

	if old == nil {
		s.metrics.bound(1)
		b.log.Info("Bound table")
	} else {
		b.log.Info("Rebound table", "previousTag", old.tag, "previousBinding", old.id.String())
	}

	b.issue()
	return b, nil
}

// Unbind tears the binding down. Fetches still in flight are discarded.
func (s *Service) Unbind(scope *Scope) {
	if scope == nil {
		return
	}
	scope.mu.Lock()
	b := scope.b
	if b == nil {
		scope.mu.Unlock()
		return
	}
	b.closed = true
	scope.b = nil
	scope.refresh = nil
	scope.sortCallback = nil
	scope.snap = Snapshot{}
	scope.notifyLocked(Event{Kind: EventUnbound, Tag: b.tag})
	scope.mu.Unlock()

	s.metrics.bound(-1)
	b.log.Info("Unbound table")
}

// ResetSortIcons clears the sort indicators of whatever scope is bound. It is
// a no-op for nil or unbound scopes.
func (s *Service) ResetSortIcons(scope *Scope) {
	if scope == nil {
		return
	}
	scope.ResetSortIcons()
}

func (s *Service) ctxWithTimeout() (context.Context, context.CancelFunc) {
	if s.fetchTimeout <= 0 {
		return context.WithCancel(s.ctx)
	}
	return context.WithTimeout(s.ctx, s.fetchTimeout)
}

// Wait blocks until every fetch issued so far has been applied or discarded.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels the context of outstanding fetches and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
