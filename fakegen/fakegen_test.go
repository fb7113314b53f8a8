package fakegen

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesTree(t *testing.T) {
	root, err := ioutil.TempDir("", "fakegen")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	defer os.RemoveAll(root)

	m := NewMain()
	m.Root = root
	m.Songs = 12
	m.Events = 60
	m.Seed = 3
	if err := m.Run(); err != nil {
		t.Fatalf("running generator: %v", err)
	}

	songs, err := filepath.Glob(filepath.Join(root, "song_data", "*", "*", "*", "*.json"))
	if err != nil {
		t.Fatalf("globbing songs: %v", err)
	}
	if len(songs) != 12 {
		t.Fatalf("wrong song file count: %d", len(songs))
	}

	logs, err := filepath.Glob(filepath.Join(root, "log_data", "*", "*", "*.json"))
	if err != nil {
		t.Fatalf("globbing logs: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("no log files written")
	}
	lines := 0
	for _, path := range logs {
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		lines += bytes.Count(buf, []byte{'\n'})
	}
	if lines != 60 {
		t.Fatalf("wrong event line count: %d", lines)
	}
}
