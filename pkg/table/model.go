package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNoColumns       = errors.New("table needs at least one column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownColumn   = errors.New("unknown column")
)

type SortDir int

const (
	Asc SortDir = iota
	Desc
)

func (d SortDir) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseSortDir maps "desc" to Desc; anything else, including "", is Asc.
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(s, "desc") {
		return Desc
	}
	return Asc
}

// Model is a set of named columns and the rows populated against them.
// Each column carries a formatter used for display and a comparator used for sorting.
type Model struct {
	columns     []string
	index       map[string]int
	formatters  map[string]Formatter
	comparators map[string]Comparator
	rows        []Row
}

func New(cols ...string) (*Model, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, ok := index[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		index[c] = i
	}
	return &Model{
		columns:     append([]string(nil), cols...),
		index:       index,
		formatters:  map[string]Formatter{},
		comparators: map[string]Comparator{},
	}, nil
}

// MustNew is New for column sets fixed at compile time.
func MustNew(cols ...string) *Model {
	m, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) ColumnCount() int { return len(m.columns) }
func (m *Model) RowCount() int    { return len(m.rows) }

func (m *Model) Columns() []string {
	return append([]string(nil), m.columns...)
}

func (m *Model) HasColumn(col string) bool {
	_, ok := m.index[col]
	return ok
}

func (m *Model) checkColumn(col string) error {
	if !m.HasColumn(col) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	return nil
}

func (m *Model) SetFormatter(col string, f Formatter) error {
	if err := m.checkColumn(col); err != nil {
		return err
	}
	m.formatters[col] = f
	return nil
}

// Formatter returns the formatter for col, DefaultFormatter when none was set.
func (m *Model) Formatter(col string) (Formatter, error) {
	if err := m.checkColumn(col); err != nil {
		return nil, err
	}
	if f, ok := m.formatters[col]; ok {
		return f, nil
	}
	return DefaultFormatter, nil
}

func (m *Model) SetComparator(col string, c Comparator) error {
	if err := m.checkColumn(col); err != nil {
		return err
	}
	m.comparators[col] = c
	return nil
}

func (m *Model) Comparator(col string) (Comparator, error) {
	if err := m.checkColumn(col); err != nil {
		return nil, err
	}
	if c, ok := m.comparators[col]; ok {
		return c, nil
	}
	return DefaultComparator, nil
}

// AddRow appends an empty row and returns it for population.
func (m *Model) AddRow() *Row {
	m.rows = append(m.rows, Row{model: m, cells: map[string]any{}})
	return &m.rows[len(m.rows)-1]
}

// Rows returns the rows in their current order. The slice is a copy; the
// cell values are shared and must not be modified.
func (m *Model) Rows() []Row {
	return append([]Row(nil), m.rows...)
}

// Sort orders rows by col using the column comparator. The sort is stable,
// so rows with equal keys keep their relative order.
func (m *Model) Sort(col string, dir SortDir) error {
	cmp, err := m.Comparator(col)
	if err != nil {
		return err
	}
	sort.SliceStable(m.rows, func(i, j int) bool {
		a, b := m.rows[i].cells[col], m.rows[j].cells[col]
		if dir == Desc {
			return cmp.Compare(b, a) < 0
		}
		return cmp.Compare(a, b) < 0
	})
	return nil
}

// Project returns a new model holding only cols, in the given order, with
// the formatters and comparators of the source columns.
func (m *Model) Project(cols ...string) (*Model, error) {
	for _, c := range cols {
		if err := m.checkColumn(c); err != nil {
			return nil, err
		}
	}
	p, err := New(cols...)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if f, ok := m.formatters[c]; ok {
			p.formatters[c] = f
		}
		if cmp, ok := m.comparators[c]; ok {
			p.comparators[c] = cmp
		}
	}
	for _, r := range m.rows {
		row := p.AddRow()
		for _, c := range cols {
			if v, ok := r.cells[c]; ok {
				row.cells[c] = v
			}
		}
	}
	return p, nil
}

type Row struct {
	model *Model
	cells map[string]any
}

// Cell sets the value of col. An unknown column or a nil value is a
// programming error and panics.
func (r *Row) Cell(col string, v any) *Row {
	if err := r.model.checkColumn(col); err != nil {
		panic(err)
	}
	if v == nil {
		panic(fmt.Sprintf("table: nil value for column %q", col))
	}
	r.cells[col] = v
	return r
}

func (r Row) Get(col string) any {
	return r.cells[col]
}

// String formats the cell with the column formatter. Empty cells format as "".
func (r Row) String(col string) string {
	v, ok := r.cells[col]
	if !ok {
		return ""
	}
	f, err := r.model.Formatter(col)
	if err != nil {
		return ""
	}
	return f.Format(v)
}
