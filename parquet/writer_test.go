package parquet

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soundlake/soundlake"
)

var songsSchema = soundlake.Schema{
	{Name: "song_id", Type: soundlake.String},
	{Name: "title", Type: soundlake.String},
	{Name: "artist_id", Type: soundlake.String},
	{Name: "year", Type: soundlake.Int},
	{Name: "duration", Type: soundlake.Double, Nullable: true},
}

func testSongsFrame() *soundlake.Frame {
	f := soundlake.NewFrame("song_id", "title", "artist_id", "year", "duration")
	f.Append(soundlake.Row{"song_id": "S1", "title": "Der Kleine Dompfaff", "artist_id": "A1", "year": int64(1982), "duration": 152.92036})
	f.Append(soundlake.Row{"song_id": "S2", "title": "The Moon And I", "artist_id": "A1", "year": int64(1982), "duration": nil})
	f.Append(soundlake.Row{"song_id": "S3", "title": "Setanta matins", "artist_id": "A2", "year": int64(2004), "duration": 269.58447})
	return f
}

func mustTempDir(t *testing.T) string {
	t.Helper()
	d, err := ioutil.TempDir("", "parquettest")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	return d
}

func TestWriteTablePartitioned(t *testing.T) {
	d := mustTempDir(t)
	defer os.RemoveAll(d)

	path, err := WriteTable(d, "songs_table", songsSchema, testSongsFrame(), "year", "artist_id")
	if err != nil {
		t.Fatalf("writing table: %v", err)
	}
	if path != filepath.Join(d, "songs_table") {
		t.Fatalf("wrong table path: %s", path)
	}
	for _, part := range []string{"year=1982/artist_id=A1", "year=2004/artist_id=A2"} {
		if _, err := os.Stat(filepath.Join(path, part)); err != nil {
			t.Fatalf("missing partition dir %s: %v", part, err)
		}
	}

	rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	byID := map[string]soundlake.Row{}
	for _, r := range rows {
		byID[r["song_id"].(string)] = r
	}
	r := byID["S1"]
	if r["year"] != int64(1982) {
		t.Fatalf("partition column not recovered: %v (%T)", r["year"], r["year"])
	}
	if r["duration"] != 152.92036 {
		t.Fatalf("wrong duration: %v", r["duration"])
	}
	if byID["S2"]["duration"] != nil {
		t.Fatalf("null not preserved: %v", byID["S2"]["duration"])
	}
	if byID["S3"]["artist_id"] != "A2" {
		t.Fatalf("wrong artist_id: %v", byID["S3"]["artist_id"])
	}
}

func TestWriteTableUnpartitioned(t *testing.T) {
	d := mustTempDir(t)
	defer os.RemoveAll(d)

	path, err := WriteTable(d, "artists_table", songsSchema, testSongsFrame())
	if err != nil {
		t.Fatalf("writing table: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "part-00000.parquet")); err != nil {
		t.Fatalf("missing data file: %v", err)
	}
	rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestWriteTableOverwrites(t *testing.T) {
	d := mustTempDir(t)
	defer os.RemoveAll(d)

	if _, err := WriteTable(d, "songs_table", songsSchema, testSongsFrame(), "year", "artist_id"); err != nil {
		t.Fatalf("writing table: %v", err)
	}

	small := soundlake.NewFrame("song_id", "title", "artist_id", "year", "duration")
	small.Append(soundlake.Row{"song_id": "S9", "title": "x", "artist_id": "A9", "year": int64(1999), "duration": 1.5})
	path, err := WriteTable(d, "songs_table", songsSchema, small, "year", "artist_id")
	if err != nil {
		t.Fatalf("rewriting table: %v", err)
	}

	rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if len(rows) != 1 || rows[0]["song_id"] != "S9" {
		t.Fatalf("prior contents not discarded: %v", rows)
	}
	if _, err := os.Stat(filepath.Join(path, "year=1982")); !os.IsNotExist(err) {
		t.Fatalf("old partition still present: %v", err)
	}
	// no staging leftovers
	entries, err := ioutil.ReadDir(d)
	if err != nil {
		t.Fatalf("listing output root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected leftovers in output root: %v", entries)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	d := mustTempDir(t)
	defer os.RemoveAll(d)

	schema := soundlake.Schema{
		{Name: "start_time", Type: soundlake.Timestamp},
	}
	f := soundlake.NewFrame("start_time")
	f.Append(soundlake.Row{"start_time": time.Date(2018, 11, 1, 21, 5, 34, 796000000, time.UTC)})

	path, err := WriteTable(d, "time_table", schema, f)
	if err != nil {
		t.Fatalf("writing table: %v", err)
	}
	rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if rows[0]["start_time"] != int64(1541121934796) {
		t.Fatalf("wrong timestamp millis: %v", rows[0]["start_time"])
	}
}
