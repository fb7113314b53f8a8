package soundlake

import "io"

// Source is the interface for getting decoded records one at a time. io.EOF
// signals a clean end of the data. Implementations of Source should be
// thread safe.
type Source interface {
	Record() (map[string]interface{}, error)
}

// RawSource is the interface for getting raw data file by file. NextReader
// returns io.EOF once every file has been handed out. Implementations of
// RawSource should be thread safe.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// NamedReadCloser is an io.ReadCloser which also knows the name of the file
// or object it reads from.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}
