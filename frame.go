package soundlake

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Row is a single record keyed by column name. Values are one of string,
// int64, float64, time.Time, or nil.
type Row map[string]interface{}

// Frame is an in-memory column-named dataset supporting the relational
// operations the loaders are written in terms of: projection, filtering,
// deduplication, derived columns, left outer joins, and partitioning.
// Transformations return new Frames; rows are shared, never mutated in
// place.
type Frame struct {
	cols []string
	rows []Row
}

// NewFrame returns an empty frame with the given column set.
func NewFrame(cols ...string) *Frame {
	return &Frame{cols: append([]string{}, cols...)}
}

// Columns returns the frame's column names in order.
func (f *Frame) Columns() []string {
	return append([]string{}, f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Append adds a row to the frame. Columns not in the frame's column set are
// ignored by all transformations.
func (f *Frame) Append(r Row) {
	f.rows = append(f.rows, r)
}

// Rows returns the underlying rows. Callers must not modify them.
func (f *Frame) Rows() []Row {
	return f.rows
}

// Select projects the frame down to the given columns.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	for _, c := range cols {
		if !f.hasColumn(c) {
			return nil, errors.Errorf("select: unknown column %q", c)
		}
	}
	out := NewFrame(cols...)
	for _, r := range f.rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// Rename renames a column, returning a new frame.
func (f *Frame) Rename(from, to string) (*Frame, error) {
	if !f.hasColumn(from) {
		return nil, errors.Errorf("rename: unknown column %q", from)
	}
	cols := make([]string, len(f.cols))
	for i, c := range f.cols {
		if c == from {
			c = to
		}
		cols[i] = c
	}
	out := NewFrame(cols...)
	for _, r := range f.rows {
		nr := make(Row, len(cols))
		for _, c := range f.cols {
			if c == from {
				nr[to] = r[from]
			} else {
				nr[c] = r[c]
			}
		}
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// Filter returns a frame holding only the rows for which keep returns true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	out := NewFrame(f.cols...)
	for _, r := range f.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithColumn returns a frame with an additional column computed from each
// row. If the column already exists it is replaced in place.
func (f *Frame) WithColumn(name string, fn func(Row) interface{}) *Frame {
	cols := f.cols
	if !f.hasColumn(name) {
		cols = append(f.Columns(), name)
	}
	out := NewFrame(cols...)
	for _, r := range f.rows {
		nr := make(Row, len(cols))
		for _, c := range f.cols {
			nr[c] = r[c]
		}
		nr[name] = fn(r)
		out.rows = append(out.rows, nr)
	}
	return out
}

// DropDuplicates removes rows which are equal on the given columns, keeping
// the first occurrence. With no columns it deduplicates on the whole row.
func (f *Frame) DropDuplicates(cols ...string) *Frame {
	if len(cols) == 0 {
		cols = f.cols
	}
	out := NewFrame(f.cols...)
	seen := make(map[string]struct{}, len(f.rows))
	for _, r := range f.rows {
		k := rowKey(r, cols)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.rows = append(out.rows, r)
	}
	return out
}

// JoinKey pairs a left-frame column with the right-frame column it must
// equal.
type JoinKey struct {
	Left  string
	Right string
}

// LeftJoin joins f against right with left outer semantics: every left row
// appears in the result at least once, with the right frame's columns
// null-filled when no right row matches. Null join keys never match
// anything. Columns present on both sides keep the left frame's value.
func (f *Frame) LeftJoin(right *Frame, on []JoinKey) (*Frame, error) {
	for _, k := range on {
		if !f.hasColumn(k.Left) {
			return nil, errors.Errorf("join: unknown left column %q", k.Left)
		}
		if !right.hasColumn(k.Right) {
			return nil, errors.Errorf("join: unknown right column %q", k.Right)
		}
	}
	addCols := make([]string, 0, len(right.cols))
	for _, c := range right.cols {
		if !f.hasColumn(c) {
			addCols = append(addCols, c)
		}
	}
	out := NewFrame(append(f.Columns(), addCols...)...)

	index := make(map[string][]Row, right.Len())
	for _, rr := range right.rows {
		k, ok := joinKey(rr, on, false)
		if !ok {
			continue
		}
		index[k] = append(index[k], rr)
	}

	for _, lr := range f.rows {
		var matches []Row
		if k, ok := joinKey(lr, on, true); ok {
			matches = index[k]
		}
		if len(matches) == 0 {
			nr := make(Row, len(out.cols))
			for _, c := range f.cols {
				nr[c] = lr[c]
			}
			for _, c := range addCols {
				nr[c] = nil
			}
			out.rows = append(out.rows, nr)
			continue
		}
		for _, rr := range matches {
			nr := make(Row, len(out.cols))
			for _, c := range f.cols {
				nr[c] = lr[c]
			}
			for _, c := range addCols {
				nr[c] = rr[c]
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out, nil
}

// Partition is one slice of a partitioned frame along with the partition
// column values identifying it.
type Partition struct {
	Columns []string
	Values  []interface{}
	Frame   *Frame
}

// PartitionBy splits the frame into one partition per distinct combination
// of the given columns' values, in a deterministic order.
func (f *Frame) PartitionBy(cols ...string) ([]Partition, error) {
	for _, c := range cols {
		if !f.hasColumn(c) {
			return nil, errors.Errorf("partition: unknown column %q", c)
		}
	}
	parts := make(map[string]*Partition)
	keys := []string{}
	for _, r := range f.rows {
		k := rowKey(r, cols)
		p, ok := parts[k]
		if !ok {
			vals := make([]interface{}, len(cols))
			for i, c := range cols {
				vals[i] = r[c]
			}
			p = &Partition{Columns: cols, Values: vals, Frame: NewFrame(f.cols...)}
			parts[k] = p
			keys = append(keys, k)
		}
		p.Frame.rows = append(p.Frame.rows, r)
	}
	sort.Strings(keys)
	out := make([]Partition, len(keys))
	for i, k := range keys {
		out[i] = *parts[k]
	}
	return out, nil
}

func (f *Frame) hasColumn(name string) bool {
	for _, c := range f.cols {
		if c == name {
			return true
		}
	}
	return false
}

// rowKey builds an unambiguous string key from the values of the given
// columns. Values of different types never collide.
func rowKey(r Row, cols []string) string {
	k := ""
	for _, c := range cols {
		k += valueKey(r[c]) + "|"
	}
	return k
}

// joinKey is like rowKey but reports false if any key column is null, since
// nulls never compare equal in a join.
func joinKey(r Row, on []JoinKey, left bool) (string, bool) {
	k := ""
	for _, jk := range on {
		c := jk.Right
		if left {
			c = jk.Left
		}
		if r[c] == nil {
			return "", false
		}
		k += valueKey(r[c]) + "|"
	}
	return k, true
}

func valueKey(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return "n"
	case string:
		return "s" + strconv.Itoa(len(tv)) + ":" + tv
	case int64:
		return "i" + strconv.FormatInt(tv, 10)
	case uint64:
		return "u" + strconv.FormatUint(tv, 10)
	case float64:
		return "f" + strconv.FormatFloat(tv, 'g', -1, 64)
	case bool:
		return "b" + strconv.FormatBool(tv)
	case time.Time:
		return "t" + strconv.FormatInt(tv.UnixNano(), 10)
	}
	return fmt.Sprintf("?%v", v)
}
