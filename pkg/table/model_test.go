package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	foo = "foo"
	bar = "bar"
	zoo = "zoo"
)

var (
	names       = []string{"four", "three", "two", "one", "eleven", "twelve", "thirty", "twenty"}
	sortedNames = []string{"eleven", "four", "one", "thirty", "three", "twelve", "twenty", "two"}
	numbers     = []int{4, 3, 2, 1, 11, 12, 30, 20}
	sortedNums  = []int{1, 2, 3, 4, 11, 12, 20, 30}
	sortedHex   = []string{"0x1", "0x2", "0x3", "0x4", "0xb", "0xc", "0x14", "0x1e"}
)

func unsorted(t *testing.T) *Model {
	t.Helper()
	require.Len(t, names, len(numbers), "test data out of sync")
	require.Len(t, sortedNames, len(numbers), "test data out of sync")

	m, err := New(foo, bar)
	require.NoError(t, err)
	for i := range names {
		m.AddRow().Cell(foo, names[i]).Cell(bar, numbers[i])
	}
	return m
}

func TestNewGuards(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want error
	}{
		{name: "no columns", cols: nil, want: ErrNoColumns},
		{name: "duplicate columns", cols: []string{foo, bar, foo}, want: ErrDuplicateColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cols...)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBasic(t *testing.T) {
	m, err := New(foo, bar)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ColumnCount())
	assert.Equal(t, 0, m.RowCount())
	assert.Equal(t, []string{foo, bar}, m.Columns())
}

func TestFormatters(t *testing.T) {
	m := MustNew(foo, bar)

	f, err := m.Formatter(foo)
	require.NoError(t, err)
	assert.Equal(t, "2", f.Format(2))

	_, err = m.Formatter(zoo)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	paren := FormatterFunc(func(v any) string { return "(" + DefaultFormatter.Format(v) + ")" })
	require.NoError(t, m.SetFormatter(bar, paren))

	f, err = m.Formatter(bar)
	require.NoError(t, err)
	assert.Equal(t, "(2)", f.Format(2))

	f, err = m.Formatter(foo)
	require.NoError(t, err)
	assert.Equal(t, "2", f.Format(2))
}

func TestRows(t *testing.T) {
	t.Run("empty row", func(t *testing.T) {
		m := MustNew(foo, bar)
		m.AddRow()
		assert.Equal(t, 1, m.RowCount())
	})

	t.Run("bad column panics", func(t *testing.T) {
		m := MustNew(foo, bar)
		assert.Panics(t, func() { m.AddRow().Cell(zoo, 2) })
	})

	t.Run("nil value panics", func(t *testing.T) {
		m := MustNew(foo, bar)
		assert.Panics(t, func() { m.AddRow().Cell(foo, nil) })
	})

	t.Run("simple row", func(t *testing.T) {
		m := MustNew(foo, bar)
		m.AddRow().Cell(foo, 3).Cell(bar, true)
		require.Equal(t, 1, m.RowCount())
		row := m.Rows()[0]
		assert.Equal(t, 3, row.Get(foo))
		assert.Equal(t, true, row.Get(bar))
		assert.Equal(t, "", MustNew(zoo).AddRow().String(zoo))
	})
}

func TestStringSort(t *testing.T) {
	m := unsorted(t)

	require.NoError(t, m.Sort(foo, Asc))
	rows := m.Rows()
	require.Len(t, rows, len(names))
	for i, r := range rows {
		assert.Equal(t, sortedNames[i], r.Get(foo), "unexpected sort: index %d", i)
	}

	require.NoError(t, m.Sort(foo, Desc))
	rows = m.Rows()
	for i, r := range rows {
		assert.Equal(t, sortedNames[len(rows)-1-i], r.Get(foo), "unexpected sort: index %d", i)
	}
}

func TestNumberSort(t *testing.T) {
	m := unsorted(t)
	require.NoError(t, m.SetComparator(bar, IntComparator))

	require.NoError(t, m.Sort(bar, Asc))
	rows := m.Rows()
	for i, r := range rows {
		assert.Equal(t, sortedNums[i], r.Get(bar), "unexpected sort: index %d", i)
	}

	require.NoError(t, m.Sort(bar, Desc))
	rows = m.Rows()
	for i, r := range rows {
		assert.Equal(t, sortedNums[len(rows)-1-i], r.Get(bar), "unexpected sort: index %d", i)
	}
}

func TestSortAndFormat(t *testing.T) {
	m := unsorted(t)
	require.NoError(t, m.SetComparator(bar, IntComparator))
	require.NoError(t, m.SetFormatter(bar, HexFormatter))

	require.NoError(t, m.Sort(bar, Asc))
	rows := m.Rows()
	require.Len(t, rows, len(sortedHex))
	for i, r := range rows {
		assert.Equal(t, sortedHex[i], r.String(bar), "unexpected sort: index %d", i)
	}
}

func TestSortUnknownColumn(t *testing.T) {
	m := unsorted(t)
	assert.ErrorIs(t, m.Sort(zoo, Asc), ErrUnknownColumn)
}

func TestTimeColumn(t *testing.T) {
	m := MustNew(foo)
	require.NoError(t, m.SetComparator(foo, TimeComparator))
	require.NoError(t, m.SetFormatter(foo, TimeFormatter))

	later := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)
	m.AddRow().Cell(foo, later)
	m.AddRow().Cell(foo, earlier)
	m.AddRow()

	require.NoError(t, m.Sort(foo, Asc))
	rows := m.Rows()
	assert.Nil(t, rows[0].Get(foo))
	assert.Equal(t, earlier, rows[1].Get(foo))
	assert.Equal(t, "2024-05-02T00:00:00Z", rows[2].String(foo))
	assert.Equal(t, "-", TimeFormatter.Format(time.Time{}))
}

func TestProject(t *testing.T) {
	m := unsorted(t)
	require.NoError(t, m.SetComparator(bar, IntComparator))

	p, err := m.Project(bar)
	require.NoError(t, err)
	assert.Equal(t, []string{bar}, p.Columns())
	assert.Equal(t, len(numbers), p.RowCount())

	require.NoError(t, p.Sort(bar, Asc))
	assert.Equal(t, 1, p.Rows()[0].Get(bar))

	_, err = m.Project(zoo)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestParseSortDir(t *testing.T) {
	tests := []struct {
		in   string
		want SortDir
	}{
		{in: "asc", want: Asc},
		{in: "desc", want: Desc},
		{in: "DESC", want: Desc},
		{in: "other", want: Asc},
		{in: "", want: Asc},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortDir(tt.in))
		})
	}
	assert.Equal(t, "desc", Desc.String())
	assert.Equal(t, "asc", Asc.String())
}
