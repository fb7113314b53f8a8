package file

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/soundlake/soundlake"
	"github.com/soundlake/soundlake/avro"
	"github.com/soundlake/soundlake/json"
)

// SrcOption is a functional option type for file.Source.
type SrcOption func(s *Source) error

// OptSrcRoot sets the directory under which source files are found.
func OptSrcRoot(root string) SrcOption {
	return func(s *Source) error {
		s.root = root
		return nil
	}
}

// OptSrcGlob sets the glob pattern, relative to the root, which source
// files must match. A '*' does not cross directory separators, so
// "song_data/*/*/*/*.json" matches files exactly four levels deep.
func OptSrcGlob(pattern string) SrcOption {
	return func(s *Source) error {
		s.glob = pattern
		return nil
	}
}

// OptSrcBufSize sets the number of records to buffer while waiting for
// Record to be called.
func OptSrcBufSize(bufsize int) SrcOption {
	return func(s *Source) error {
		s.records = make(chan record, bufsize)
		return nil
	}
}

// Source reads records from all files under a directory tree which match a
// glob pattern. Files ending in ".avro" are decoded as Avro object
// container files; everything else is treated as a stream of json objects.
type Source struct {
	root string
	glob string

	rawSource *RawSource
	records   chan record
}

type record struct {
	data map[string]interface{}
	err  error
}

// NewSource gets a new file source with the options applied.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{
		glob:    "*",
		records: make(chan record, 100),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	var err error
	s.rawSource, err = NewRawSource(s.root, s.glob)
	if err != nil {
		return nil, errors.Wrap(err, "getting raw source")
	}
	go s.run()
	return s, nil
}

func (s *Source) run() {
	reader, err := s.rawSource.NextReader()
	for ; err == nil; reader, err = s.rawSource.NextReader() {
		src, err := openDecoder(reader)
		if err != nil {
			s.records <- record{err: errors.Wrapf(err, "opening %s", reader.Name())}
			reader.Close()
			continue
		}
		for {
			rec, err := src.Record()
			if err == io.EOF {
				reader.Close()
				break
			}
			if err != nil {
				s.records <- record{err: errors.Wrapf(err, "decoding %s", reader.Name())}
				reader.Close()
				break
			}
			s.records <- record{data: rec}
		}
	}
	if err != io.EOF {
		s.records <- record{err: errors.Wrap(err, "getting next reader")}
	}
	close(s.records)
}

func openDecoder(reader soundlake.NamedReadCloser) (soundlake.Source, error) {
	if strings.HasSuffix(reader.Name(), ".avro") {
		return avro.NewSource(reader)
	}
	return json.NewSource(reader), nil
}

// Record implements soundlake.Source returning a map[string]interface{} for
// each record in the matched files.
func (s *Source) Record() (map[string]interface{}, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.data, rec.err
}

// RawSource hands out a reader per file matching a glob pattern under a
// root directory.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource returns a RawSource for the files under root matching
// pattern. The match set is fixed at construction time.
func NewRawSource(root, pattern string) (*RawSource, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, errors.Wrap(err, "statting root")
	}
	files, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, errors.Wrap(err, "globbing")
	}
	sort.Strings(files)
	fileIdx := uint64(0)
	return &RawSource{
		files:   files,
		fileIdx: &fileIdx,
	}, nil
}

// NextReader returns a reader for the next matched file, or io.EOF.
func (s *RawSource) NextReader() (soundlake.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}
	f, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return &namedFile{File: f}, nil
}

type namedFile struct {
	*os.File
}

func (n *namedFile) Name() string {
	return filepath.Base(n.File.Name())
}
