package fake

import (
	"reflect"
	"strings"
	"testing"
)

func TestDatasetDeterministic(t *testing.T) {
	a := NewDataset(1, 20, 100)
	b := NewDataset(1, 20, 100)
	if !reflect.DeepEqual(a.Songs, b.Songs) {
		t.Fatalf("same seed gave different songs")
	}
	if !reflect.DeepEqual(a.Events, b.Events) {
		t.Fatalf("same seed gave different events")
	}
	c := NewDataset(2, 20, 100)
	if reflect.DeepEqual(a.Events, c.Events) {
		t.Fatalf("different seeds gave the same events")
	}
}

func TestDatasetShape(t *testing.T) {
	d := NewDataset(7, 30, 200)
	if len(d.Songs) != 30 {
		t.Fatalf("wrong song count: %d", len(d.Songs))
	}
	if len(d.Events) != 200 {
		t.Fatalf("wrong event count: %d", len(d.Events))
	}

	titles := make(map[string]bool)
	for _, s := range d.Songs {
		if !strings.HasPrefix(s.SongID, "SO") || len(s.SongID) != 18 {
			t.Fatalf("bad song id: %q", s.SongID)
		}
		if !strings.HasPrefix(s.ArtistID, "AR") || len(s.ArtistID) != 18 {
			t.Fatalf("bad artist id: %q", s.ArtistID)
		}
		titles[s.Title] = true
	}

	var plays, matched int
	last := int64(0)
	for _, ev := range d.Events {
		if ev.TS < last {
			t.Fatalf("timestamps went backwards")
		}
		last = ev.TS
		if ev.Page != "NextSong" {
			continue
		}
		plays++
		if titles[ev.Song] {
			matched++
		}
	}
	if plays == 0 {
		t.Fatalf("no plays generated")
	}
	if matched == 0 {
		t.Fatalf("no plays reference the catalog")
	}
	if matched == plays {
		t.Fatalf("every play references the catalog")
	}
}
