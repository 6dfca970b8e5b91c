package board

import (
	"sync"

	"github.com/brensch/broadside/api"
)

// SunkMarker prefixes the label of a sunk ship.
const SunkMarker = "✗"

// StatusEntry is one line of a fleet list.
type StatusEntry struct {
	Label  string `json:"label"`
	Sunk   bool   `json:"sunk"`
	Marker string `json:"marker,omitempty"`
}

// StatusSurface receives a whole fleet list.
type StatusSurface interface {
	ReplaceStatus([]StatusEntry)
}

// StatusEntries labels every ship in server order.
func StatusEntries(list []api.BoatStatus) []StatusEntry {
	out := make([]StatusEntry, 0, len(list))
	for _, b := range list {
		e := StatusEntry{Label: "Ship " + b.Ship, Sunk: b.Sunk}
		if b.Sunk {
			e.Marker = SunkMarker
		}
		out = append(out, e)
	}
	return out
}

// RenderStatus replaces the content of target with the labelled list.
func RenderStatus(list []api.BoatStatus, target StatusSurface) {
	if target == nil {
		return
	}
	target.ReplaceStatus(StatusEntries(list))
}

// StatusBuffer is an in-memory StatusSurface.
type StatusBuffer struct {
	mu      sync.Mutex
	entries []StatusEntry
}

func (b *StatusBuffer) ReplaceStatus(entries []StatusEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append([]StatusEntry(nil), entries...)
}

func (b *StatusBuffer) Entries() []StatusEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StatusEntry(nil), b.entries...)
}
