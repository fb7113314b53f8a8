package file

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundlake/soundlake"
)

func mustTempDir(t *testing.T, prefix string) string {
	t.Helper()
	d, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatal("getting temp dir")
	}
	return d
}

func mustWriteFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("making dirs: %v", err)
	}
	if err := ioutil.WriteFile(full, []byte(contents), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return full
}

func TestRawSourceGlob(t *testing.T) {
	d := mustTempDir(t, "testrawsource")
	defer func() {
		os.RemoveAll(d)
	}()

	mustWriteFile(t, d, "song_data/A/A/A/TRAAAAW.json", `{"song_id": "S1"}`)
	mustWriteFile(t, d, "song_data/A/B/C/TRABCEI.json", `{"song_id": "S2"}`)
	// wrong depth, must not match
	mustWriteFile(t, d, "song_data/A/A/TRAAAAX.json", `{"song_id": "S3"}`)
	// different tree, must not match
	mustWriteFile(t, d, "log_data/2018/11/events.json", `{"page": "Home"}`)

	rs, err := NewRawSource(d, "song_data/*/*/*/*.json")
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}

	names := []string{}
	var reader soundlake.NamedReadCloser
	for reader, err = rs.NextReader(); err == nil; reader, err = rs.NextReader() {
		names = append(names, reader.Name())
		reader.Close()
	}
	if err != io.EOF {
		t.Fatalf("unexpected NextReader error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 matched files, got %v", names)
	}
	if names[0] != "TRAAAAW.json" || names[1] != "TRABCEI.json" {
		t.Fatalf("wrong files matched: %v", names)
	}
}

func TestSource(t *testing.T) {
	d := mustTempDir(t, "testsource")
	defer func() {
		os.RemoveAll(d)
	}()

	mustWriteFile(t, d, "log_data/2018/11/2018-11-01-events.json",
		`{"page": "NextSong", "sessionId": 583}
{"page": "Home", "sessionId": 583}`)
	mustWriteFile(t, d, "log_data/2018/11/2018-11-02-events.json",
		`{"page": "NextSong", "sessionId": 584}`)

	src, err := NewSource(OptSrcRoot(d), OptSrcGlob("log_data/*/*/*.json"), OptSrcBufSize(7))
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	if cap(src.records) != 7 {
		t.Fatalf("wrong chan bufsize: %d", cap(src.records))
	}

	n := 0
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("calling Record: %v", err)
		}
		if _, ok := rec["page"]; !ok {
			t.Fatalf("record missing page: %#v", rec)
		}
		n++
	}
	if n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestSourceBadRoot(t *testing.T) {
	if _, err := NewSource(OptSrcRoot("/no/such/dir/anywhere")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
