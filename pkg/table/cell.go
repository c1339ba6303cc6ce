package table

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

type Formatter interface {
	Format(v any) string
}

type FormatterFunc func(v any) string

func (f FormatterFunc) Format(v any) string { return f(v) }

// Comparator returns a negative number, zero or a positive number when a is
// less than, equal to or greater than b.
type Comparator interface {
	Compare(a, b any) int
}

type ComparatorFunc func(a, b any) int

func (f ComparatorFunc) Compare(a, b any) int { return f(a, b) }

var (
	DefaultFormatter Formatter = FormatterFunc(func(v any) string {
		return fmt.Sprint(v)
	})

	HexFormatter Formatter = FormatterFunc(func(v any) string {
		switch n := v.(type) {
		case int:
			return fmt.Sprintf("0x%x", n)
		case int32:
			return fmt.Sprintf("0x%x", n)
		case int64:
			return fmt.Sprintf("0x%x", n)
		case uint:
			return fmt.Sprintf("0x%x", n)
		case uint32:
			return fmt.Sprintf("0x%x", n)
		case uint64:
			return fmt.Sprintf("0x%x", n)
		}
		return fmt.Sprint(v)
	})

	// TimeFormatter renders time.Time cells as RFC 3339; zero times render as "-".
	TimeFormatter Formatter = FormatterFunc(func(v any) string {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Sprint(v)
		}
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	})
)

var (
	// DefaultComparator compares the string forms of the values. Missing
	// cells sort before present ones.
	DefaultComparator Comparator = ComparatorFunc(func(a, b any) int {
		if c, done := nilOrder(a, b); done {
			return c
		}
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})

	IntComparator Comparator = ComparatorFunc(func(a, b any) int {
		if c, done := nilOrder(a, b); done {
			return c
		}
		return cmp.Compare(asInt64(a), asInt64(b))
	})

	Int64Comparator = IntComparator

	TimeComparator Comparator = ComparatorFunc(func(a, b any) int {
		if c, done := nilOrder(a, b); done {
			return c
		}
		ta, _ := a.(time.Time)
		tb, _ := b.(time.Time)
		return ta.Compare(tb)
	})
)

func nilOrder(a, b any) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	return 0, false
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
