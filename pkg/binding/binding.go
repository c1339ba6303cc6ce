package binding

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/table"
)

const DefaultIDColumn = "id"

type Config struct {
	// Columns shown, in order. Empty means the resource columns, or every
	// column the backend returns.
	Columns []string
	// DefaultSort overrides the resource default sort.
	DefaultSort SortState
	// IDColumn identifies rows for selection. Defaults to "id".
	IDColumn string
	// PersistSort carries the sort state of the binding being replaced.
	PersistSort bool
}

var errNoTable = errors.New("backend returned no table")

// Binding is the live association between a scope and a table resource.
// Its mutable fields are guarded by the scope mutex.
type Binding struct {
	id    uuid.UUID
	tag   string
	cfg   Config
	res   Resource
	svc   *Service
	scope *Scope
	log   logr.Logger

	sort   SortState
	issued uint64
	done   uint64
	closed bool
}

func (b *Binding) ID() uuid.UUID { return b.id }
func (b *Binding) Tag() string   { return b.tag }

func (b *Binding) Sort() SortState {
	b.scope.mu.Lock()
	defer b.scope.mu.Unlock()
	return b.sort
}

// Active reports whether the binding is still the one attached to its scope.
func (b *Binding) Active() bool {
	b.scope.mu.Lock()
	defer b.scope.mu.Unlock()
	return !b.closed
}

func (b *Binding) idColumn() string {
	if b.cfg.IDColumn != "" {
		return b.cfg.IDColumn
	}
	return DefaultIDColumn
}

// refresh is the capability attached to the scope: clear the icons, then
// re-run the sort callback against fresh rows.
func (b *Binding) refresh() {
	b.log.V(1).Info("Refreshing table")
	b.svc.ResetSortIcons(b.scope)
	b.scope.SortCallback()
}

// issue starts a fetch and makes it the only one whose result will be applied.
func (b *Binding) issue() {
	b.scope.mu.Lock()
	if b.closed {
		b.scope.mu.Unlock()
		return
	}
	b.issued++
	seq := b.issued
	sort := b.sort
	b.scope.mu.Unlock()

	b.svc.wg.Add(1)
	go b.run(seq, sort)
}

func (b *Binding) run(seq uint64, sort SortState) {
	defer b.svc.wg.Done()

	start := time.Now()
	model, err := b.fetch(sort)
	b.complete(seq, model, err, time.Since(start))
}

func (b *Binding) fetch(sort SortState) (m *table.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("backend panicked: %v", r)
		}
	}()
	ctx, cancel := b.svc.ctxWithTimeout()
	defer cancel()
	m, err = b.res.Fetcher.Fetch(WithSort(ctx, sort), b.tag)
	if err == nil && m == nil {
		err = errNoTable
	}
	return m, err
}

func (b *Binding) complete(seq uint64, model *table.Model, err error, took time.Duration) {
	s := b.scope
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.closed || seq != b.issued {
		b.svc.metrics.fetched(b.tag, outcomeDiscarded, took.Seconds())
		b.log.V(1).Info("Discarding superseded fetch", "seq", seq, "latest", b.issued, "closed", b.closed)
		return
	}
	b.done = seq

	if err == nil {
		model, err = b.materialize(model)
	}
	if err != nil {
		fe := err
		if !errors.Is(err, ErrTransientFetch) {
			fe = NewTransientFetchError(b.tag, err)
		}
		b.svc.metrics.fetched(b.tag, outcomeFailed, took.Seconds())
		b.log.Error(fe, "Table fetch failed, keeping previous rows", "seq", seq, "rows", len(s.snap.Rows))
		s.snap.Err = fe.Error()
		s.notifyLocked(Event{Kind: EventFetchFailed, Tag: b.tag, Seq: seq, Err: fe})
		return
	}

	rows := model.Rows()
	selected := s.snap.Selected
	if selected != "" && !hasRow(rows, b.idColumn(), selected) {
		selected = ""
	}
	s.snap = Snapshot{
		Tag:       b.tag,
		Columns:   model.Columns(),
		Rows:      rows,
		Sort:      b.sort,
		Icons:     s.snap.Icons,
		Selected:  selected,
		Seq:       seq,
		FetchedAt: b.svc.now(),
	}
	b.svc.metrics.fetched(b.tag, outcomeApplied, took.Seconds())
	b.svc.metrics.setRows(b.tag, len(rows))
	b.log.V(1).Info("Applied table rows", "seq", seq, "rows", len(rows))
	s.notifyLocked(Event{Kind: EventRowsChanged, Tag: b.tag, Seq: seq})
}

// materialize projects the backend table onto the displayed columns and
// re-applies the last-known sort order, unless the backend already served
// the rows in that order.
func (b *Binding) materialize(m *table.Model) (*table.Model, error) {
	cols := b.cfg.Columns
	if len(cols) == 0 {
		cols = b.res.Columns
	}
	if len(cols) > 0 {
		p, err := m.Project(cols...)
		if err != nil {
			return nil, err
		}
		m = p
	}
	if b.sort.IsZero() || presorted(b.res.Fetcher) {
		return m, nil
	}
	if !m.HasColumn(b.sort.Column) {
		b.log.V(1).Info("Sort column not in table, leaving backend order", "column", b.sort.Column)
		return m, nil
	}
	if err := m.Sort(b.sort.Column, b.sort.Dir); err != nil {
		return nil, err
	}
	return m, nil
}
