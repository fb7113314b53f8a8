package lake

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManifest(t *testing.T) {
	d, err := ioutil.TempDir("", "manifesttest")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	defer os.RemoveAll(d)

	man, err := OpenManifest(filepath.Join(d, "runs.db"))
	if err != nil {
		t.Fatalf("opening manifest: %v", err)
	}
	defer man.Close()

	e := TableEntry{Rows: 71, Path: "/out/songs_table", ElapsedMS: 12, WrittenAt: time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)}
	if err := man.RecordTable("run-1", "songs_table", e); err != nil {
		t.Fatalf("recording table: %v", err)
	}
	if err := man.RecordTable("run-1", "artists_table", TableEntry{Rows: 69}); err != nil {
		t.Fatalf("recording table: %v", err)
	}

	runs, err := man.Runs()
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 1 || runs[0] != "run-1" {
		t.Fatalf("unexpected runs: %v", runs)
	}

	tables, err := man.Tables("run-1")
	if err != nil {
		t.Fatalf("getting tables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	got := tables["songs_table"]
	if got.Rows != e.Rows || got.Path != e.Path || got.ElapsedMS != e.ElapsedMS || !got.WrittenAt.Equal(e.WrittenAt) {
		t.Fatalf("entry round trip mismatch: %+v vs %+v", got, e)
	}

	if tables, err = man.Tables("no-such-run"); err != nil || len(tables) != 0 {
		t.Fatalf("expected empty result for unknown run, got %v, %v", tables, err)
	}
}
