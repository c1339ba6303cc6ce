package binding

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aditip149209/okview/pkg/table"
)

type State int

const (
	Unbound State = iota
	Bound
	Refreshing
)

func (s State) String() string {
	switch s {
	case Bound:
		return "bound"
	case Refreshing:
		return "refreshing"
	}
	return "unbound"
}

type EventKind int

const (
	EventBound EventKind = iota
	EventUnbound
	EventRowsChanged
	EventFetchFailed
	EventIconsChanged
	EventSelectionChanged
)

func (k EventKind) String() string {
	return [...]string{"bound", "unbound", "rows-changed", "fetch-failed", "icons-changed", "selection-changed"}[k]
}

// Event tells subscribers that the scope changed. Subscribers read the new
// state with Scope.Snapshot.
type Event struct {
	Kind EventKind
	Tag  string
	Seq  uint64
	Err  error
}

// Snapshot is an immutable copy of what a scope displays.
type Snapshot struct {
	Tag       string
	Columns   []string
	Rows      []table.Row
	Sort      SortState
	Icons     map[string]table.SortDir
	Selected  string
	Seq       uint64
	FetchedAt time.Time
	Err       string
}

func (s Snapshot) RowCount() int { return len(s.Rows) }

func (s Snapshot) Icon(col string) (table.SortDir, bool) {
	d, ok := s.Icons[col]
	return d, ok
}

const subscriberBuffer = 16

// Scope is the display context a binding attaches to. It is owned by the
// caller but only ever mutated by the binding bound to it.
type Scope struct {
	name string

	mu           sync.Mutex
	b            *Binding
	snap         Snapshot
	refresh      func()
	sortCallback func()
	subs         map[int]chan Event
	nextSub      int
}

func NewScope(name string) *Scope {
	return &Scope{
		name: name,
		subs: map[int]chan Event{},
	}
}

func (s *Scope) Name() string { return s.name }

func (s *Scope) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	snap.Icons = maps.Clone(s.snap.Icons)
	return snap
}

func (s *Scope) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil {
		return ""
	}
	return s.b.tag
}

func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.b == nil:
		return Unbound
	case s.b.done < s.b.issued:
		return Refreshing
	}
	return Bound
}

// Refresh runs the refresh capability attached by the binding. It returns
// immediately; new rows arrive through an EventRowsChanged.
func (s *Scope) Refresh() {
	s.mu.Lock()
	fn := s.refresh
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SortCallback re-requests the rows with the last-known sort order.
func (s *Scope) SortCallback() {
	s.mu.Lock()
	fn := s.sortCallback
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ResetSortIcons clears the sort indicators. Row order is left alone.
func (s *Scope) ResetSortIcons() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil || len(s.snap.Icons) == 0 {
		return
	}
	s.snap.Icons = nil
	s.notifyLocked(Event{Kind: EventIconsChanged, Tag: s.b.tag, Seq: s.snap.Seq})
}

// Sort sets the sort column and direction, marks the column icon and asks
// the backend for freshly ordered rows.
func (s *Scope) Sort(col string, dir table.SortDir) error {
	s.mu.Lock()
	if s.b == nil {
		s.mu.Unlock()
		return &InvalidScopeError{Context: fmt.Sprintf("scope %q is not bound", s.name)}
	}
	if len(s.snap.Columns) > 0 && !slices.Contains(s.snap.Columns, col) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", table.ErrUnknownColumn, col)
	}
	s.b.sort = SortState{Column: col, Dir: dir}
	s.snap.Sort = s.b.sort
	s.snap.Icons = map[string]table.SortDir{col: dir}
	s.notifyLocked(Event{Kind: EventIconsChanged, Tag: s.b.tag, Seq: s.snap.Seq})
	fn := s.sortCallback
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// ToggleSort is a header click: the current sort column flips direction,
// any other column starts ascending.
func (s *Scope) ToggleSort(col string) error {
	s.mu.Lock()
	dir := table.Asc
	if s.b != nil && s.b.sort.Column == col && s.b.sort.Dir == table.Asc {
		dir = table.Desc
	}
	s.mu.Unlock()
	return s.Sort(col, dir)
}

// Select marks the row whose id column equals id. It reports false when no
// such row is displayed.
func (s *Scope) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b == nil || !hasRow(s.snap.Rows, s.b.idColumn(), id) {
		return false
	}
	s.snap.Selected = id
	s.notifyLocked(Event{Kind: EventSelectionChanged, Tag: s.b.tag, Seq: s.snap.Seq})
	return true
}

// Subscribe returns a channel of scope events and a cancel func that closes
// it. Slow subscribers lose the oldest events, never the newest.
func (s *Scope) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// must hold s.mu
func (s *Scope) notifyLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func hasRow(rows []table.Row, col, id string) bool {
	for _, r := range rows {
		if r.String(col) == id {
			return true
		}
	}
	return false
}
