package soundlake

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// FieldType enumerates the column types a Schema can declare.
type FieldType int

// The supported field types. Int and Long are both represented as int64 in
// rows; they differ only in their physical encoding on disk.
const (
	String FieldType = iota
	Int
	Long
	Double
	Timestamp
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Long:
		return "long"
	case Double:
		return "double"
	case Timestamp:
		return "timestamp"
	}
	return "unknown"
}

// Field declares a single column: its name, type, and nullability.
// Nullable=false is a documentation contract, not an enforced one — a null
// in a non-nullable field passes through Row and only fails when a writer
// that cannot represent it rejects it.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Schema is an ordered set of field declarations applied to raw records.
type Schema []Field

// Columns returns the declared column names in order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s))
	for i, f := range s {
		cols[i] = f.Name
	}
	return cols
}

// Field returns the declaration for the named column.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Select returns the subset of the schema covering the given columns, in the
// given order.
func (s Schema) Select(cols ...string) (Schema, error) {
	out := make(Schema, 0, len(cols))
	for _, c := range cols {
		f, ok := s.Field(c)
		if !ok {
			return nil, errors.Errorf("unknown column %q in schema", c)
		}
		out = append(out, f)
	}
	return out, nil
}

// Rename returns a copy of the schema with one column renamed.
func (s Schema) Rename(from, to string) (Schema, error) {
	out := make(Schema, len(s))
	found := false
	for i, f := range s {
		if f.Name == from {
			f.Name = to
			found = true
		}
		out[i] = f
	}
	if !found {
		return nil, errors.Errorf("unknown column %q in schema", from)
	}
	return out, nil
}

// Row applies the schema to a decoded record, producing a typed Row. Missing
// or null values become nil regardless of the field's declared nullability.
// Values which cannot be coerced to the declared type are an error.
func (s Schema) Row(rec map[string]interface{}) (Row, error) {
	row := make(Row, len(s))
	for _, f := range s {
		v, ok := rec[f.Name]
		if !ok || v == nil {
			row[f.Name] = nil
			continue
		}
		cv, err := coerce(v, f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Name)
		}
		row[f.Name] = cv
	}
	return row, nil
}

func coerce(v interface{}, t FieldType) (interface{}, error) {
	switch t {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("cannot use %T as string", v)
		}
		return s, nil
	case Int, Long:
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, errors.Errorf("cannot use fractional %v as %s", n, t)
			}
			return int64(n), nil
		case float32:
			if float64(n) != math.Trunc(float64(n)) {
				return nil, errors.Errorf("cannot use fractional %v as %s", n, t)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, errors.Errorf("cannot use %T as %s", v, t)
	case Double:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, errors.Errorf("cannot use %T as double", v)
	case Timestamp:
		switch n := v.(type) {
		case time.Time:
			return n.UTC(), nil
		case int64:
			return time.Unix(n/1000, (n%1000)*int64(time.Millisecond)).UTC(), nil
		case float64:
			ms := int64(n)
			return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC(), nil
		}
		return nil, errors.Errorf("cannot use %T as timestamp", v)
	}
	return nil, errors.Errorf("unknown field type %d", t)
}
