// Package fakegen writes a synthetic input tree that the lake loader can
// run against, with the same layout as the real datasets: one JSON file
// per song under song_data/ and newline-delimited JSON day files under
// log_data/.
package fakegen

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/soundlake/soundlake/fake"
)

// Main holds the configuration for the generator.
type Main struct {
	Root   string `help:"Directory to write the song_data/ and log_data/ trees under."`
	Songs  int    `help:"Number of songs in the generated catalog."`
	Events int    `help:"Number of activity-log records to generate."`
	Seed   int64  `help:"Random seed. The same seed writes the same tree."`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Root:   "fake-data",
		Songs:  100,
		Events: 2000,
	}
}

// Run generates the dataset and writes it under Root.
func (m *Main) Run() error {
	d := fake.NewDataset(m.Seed, m.Songs, m.Events)
	if err := writeSongs(m.Root, d.Songs); err != nil {
		return errors.Wrap(err, "writing song data")
	}
	if err := writeEvents(m.Root, d.Events); err != nil {
		return errors.Wrap(err, "writing log data")
	}
	log.Printf("wrote %d songs and %d events under %s", len(d.Songs), len(d.Events), m.Root)
	return nil
}

// writeSongs writes one file per song, sharded into directories by the
// three characters after the id prefix as the real tree is.
func writeSongs(root string, songs []fake.Song) error {
	for _, s := range songs {
		dir := filepath.Join(root, "song_data",
			s.SongID[2:3], s.SongID[3:4], s.SongID[4:5])
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		buf, err := json.Marshal(s)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, s.SongID+".json")
		if err := writeFile(path, append(buf, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// writeEvents appends each event to its day's file as one JSON object per
// line.
func writeEvents(root string, events []fake.Event) error {
	days := make(map[string][]byte)
	for _, ev := range events {
		t := time.Unix(0, ev.TS*int64(time.Millisecond)).UTC()
		path := filepath.Join(root, "log_data",
			fmt.Sprintf("%d", t.Year()),
			fmt.Sprintf("%02d", t.Month()),
			t.Format("2006-01-02")+"-events.json")
		buf, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		days[path] = append(days[path], append(buf, '\n')...)
	}
	for path, buf := range days {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := writeFile(path, buf); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, buf []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
