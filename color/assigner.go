package color

import (
	"maps"
	"sync"
)

// Assigner memoizes the color of every color key.
// It is safe for concurrent use.
type Assigner struct {
	mx sync.Mutex

	cycler *Cycler
	colors map[string]string
}

// NewAssigner returns a new assigner cycling over the palette.
func NewAssigner(palette []string) *Assigner {
	return &Assigner{
		cycler: NewCycler(palette),
		colors: make(map[string]string),
	}
}

// Assign returns the color of the key, taking the next
// palette color the first time the key is seen.
func (a *Assigner) Assign(key string) string {
	a.mx.Lock()
	defer a.mx.Unlock()

	if col, ok := a.colors[key]; ok {
		return col
	}

	col := a.cycler.Next()
	a.colors[key] = col

	return col
}

// Set stores the color of the key unless the key is already assigned.
// It reports whether the color was stored.
func (a *Assigner) Set(key, col string) bool {
	a.mx.Lock()
	defer a.mx.Unlock()

	if _, ok := a.colors[key]; ok {
		return false
	}

	a.colors[key] = col

	return true
}

// Colors returns a copy of every assignment.
func (a *Assigner) Colors() map[string]string {
	a.mx.Lock()
	defer a.mx.Unlock()

	return maps.Clone(a.colors)
}

