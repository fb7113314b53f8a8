package avro

import (
	"io"

	"github.com/linkedin/goavro"
	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
)

// Source is a soundlake.Source for reading Avro object container files.
type Source struct {
	ocf *goavro.OCFReader
}

// NewSource gets a new avro source decoding OCF data from the given reader.
func NewSource(r io.Reader) (*Source, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening OCF reader")
	}
	return &Source{ocf: ocf}, nil
}

// Record implements soundlake.Source. Avro union values are unwrapped, so a
// nullable double comes back as a float64 or nil rather than a single-entry
// map keyed by type name.
func (s *Source) Record() (map[string]interface{}, error) {
	if !s.ocf.Scan() {
		if err := s.ocf.Err(); err != nil {
			return nil, errors.Wrap(err, "scanning OCF block")
		}
		return nil, io.EOF
	}
	datum, err := s.ocf.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading datum")
	}
	rec, ok := datum.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("datum is a %T, not a record", datum)
	}
	for k, v := range rec {
		rec[k] = unwrapUnion(v)
	}
	return rec, nil
}

// unionTypes are the branch names goavro uses when decoding union values
// natively.
var unionTypes = map[string]struct{}{
	"boolean": {},
	"bytes":   {},
	"double":  {},
	"float":   {},
	"int":     {},
	"long":    {},
	"string":  {},
}

func unwrapUnion(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return v
	}
	for k, inner := range m {
		if _, ok := unionTypes[k]; ok {
			return inner
		}
	}
	return v
}

type rawSourceSource struct {
	rs soundlake.RawSource

	s   *Source
	cur soundlake.NamedReadCloser
}

// NewSourceFromRawSource gets a Source which decodes OCF data from each
// reader the RawSource produces in turn.
func NewSourceFromRawSource(rs soundlake.RawSource) soundlake.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (map[string]interface{}, error) {
	if r.s == nil {
		reader, err := r.rs.NextReader()
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "getting next reader")
		} else if err == io.EOF {
			return nil, err
		}
		r.s, err = NewSource(reader)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", reader.Name())
		}
		r.cur = reader
	}
	rec, err := r.s.Record()
	if err == io.EOF {
		r.cur.Close()
		r.s = nil
		return r.Record()
	} else if err != nil {
		return rec, errors.Wrapf(err, "decoding avro from %s", r.cur.Name())
	}
	return rec, nil
}
