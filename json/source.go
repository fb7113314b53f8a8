package json

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
)

// Source is a soundlake.Source for reading json data. It handles both
// newline-delimited objects and whitespace-separated streams of objects.
type Source struct {
	dec *json.Decoder
}

// NewSource gets a new json source which will decode from the given reader.
func NewSource(r io.Reader) *Source {
	return &Source{
		dec: json.NewDecoder(r),
	}
}

// Record implements soundlake.Source. It returns the next json object that
// can be decoded from the reader.
func (s *Source) Record() (map[string]interface{}, error) {
	var res map[string]interface{}
	err := s.dec.Decode(&res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type rawSourceSource struct {
	rs soundlake.RawSource

	s   *Source
	cur soundlake.NamedReadCloser
}

// NewSourceFromRawSource gets a Source which will decode json objects from
// each reader the RawSource produces in turn.
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
		r.s = NewSource(reader)
		r.cur = reader
	}
	rec, err := r.s.Record()
	if err == io.EOF {
		r.cur.Close()
		r.s = nil
		return r.Record()
	} else if err != nil {
		return rec, errors.Wrapf(err, "decoding json from %s", r.cur.Name())
	}
	return rec, nil
}
