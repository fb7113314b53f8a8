// Package termstat provides a small stats collector which periodically
// rewrites a line of counters on the given writer. It stands in for a real
// metrics backend when running loads from a terminal.
package termstat

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Collector accumulates named counters and prints them to the terminal.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []int64
	changed bool
	out     io.Writer
}

// NewCollector initializes and returns a Collector writing to out every
// couple of seconds.
func NewCollector(out io.Writer) *Collector {
	c := &Collector{
		indexes: make(map[string]int),
		out:     out,
	}
	go func() {
		tick := time.NewTicker(time.Second * 2)
		for ; ; <-tick.C {
			c.write()
		}
	}()
	return c
}

// Count adds value to the named counter.
func (c *Collector) Count(name string, value int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.changed = true

	idx, ok := c.indexes[name]
	if !ok {
		idx = len(c.stats)
		c.stats = append(c.stats, 0)
		c.names = append(c.names, name)
		c.indexes[name] = idx
	}
	c.stats[idx] += value
}

// Counts returns a snapshot of every counter.
func (c *Collector) Counts() map[string]int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	counts := make(map[string]int64, len(c.names))
	for i, name := range c.names {
		counts[name] = c.stats[i]
	}
	return counts
}

func (c *Collector) write() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.changed {
		return
	}
	sb := strings.Builder{}
	for i := range c.stats {
		_, _ = sb.WriteString(fmt.Sprintf("%s: %d ", c.names[i], c.stats[i]))
	}
	c.changed = false
	fmt.Fprintf(c.out, "\r"+sb.String())
}
