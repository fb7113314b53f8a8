package soundlake

import (
	"sync"

	"github.com/pkg/errors"
)

// Views is a registry of named frames. A loader stage registers a dataset
// here to make it queryable by later stages, the way an engine registers a
// temporary view.
type Views struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewViews returns an empty view registry.
func NewViews() *Views {
	return &Views{frames: make(map[string]*Frame)}
}

// Register publishes a frame under the given name, replacing any previous
// frame with that name.
func (v *Views) Register(name string, f *Frame) {
	v.mu.Lock()
	v.frames[name] = f
	v.mu.Unlock()
}

// Get returns the frame registered under name.
func (v *Views) Get(name string) (*Frame, error) {
	v.mu.RLock()
	f, ok := v.frames[name]
	v.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no view registered as %q", name)
	}
	return f, nil
}
