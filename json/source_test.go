package json

import (
	"io"
	"strings"
	"testing"
)

func TestSource(t *testing.T) {
	data := `{"song_id": "S1", "year": 1982}
{"song_id": "S2", "year": 0}
{"song_id": "S3"}`

	src := NewSource(strings.NewReader(data))
	recs := make([]map[string]interface{}, 0, 3)
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("calling Record: %v", err)
		}
		recs = append(recs, rec)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0]["song_id"] != "S1" || recs[0]["year"] != float64(1982) {
		t.Fatalf("unexpected first record: %#v", recs[0])
	}
	if _, ok := recs[2]["year"]; ok {
		t.Fatalf("unexpected year in third record: %#v", recs[2])
	}
}

func TestSourceBadData(t *testing.T) {
	src := NewSource(strings.NewReader(`{"song_id": }`))
	if _, err := src.Record(); err == nil || err == io.EOF {
		t.Fatalf("expected decode error, got %v", err)
	}
}
