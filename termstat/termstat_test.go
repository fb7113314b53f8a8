package termstat

import (
	"io/ioutil"
	"testing"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(ioutil.Discard)
	c.Count("records", 1)
	c.Count("records", 2)
	c.Count("skipped", 1)

	counts := c.Counts()
	if counts["records"] != 3 {
		t.Fatalf("wrong records count: %d", counts["records"])
	}
	if counts["skipped"] != 1 {
		t.Fatalf("wrong skipped count: %d", counts["skipped"])
	}
	if _, ok := counts["missing"]; ok {
		t.Fatalf("unexpected counter")
	}
}
