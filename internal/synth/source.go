package synth

import (
	"sync/atomic"

	"github.com/exotracker/audio/internal/doc"
)

// AtomicSource is the simplest doc.Source: a lock-free pointer swap.
// The GUI/control thread is the sole writer; it builds a complete new
// Document outside any lock and publishes it with Store. The audio
// thread reads the current snapshot with CurrentDocument on every
// tick and never observes a half-edited document.
type AtomicSource struct {
	ptr atomic.Pointer[doc.Document]
}

// NewAtomicSource publishes d as the initial snapshot.
func NewAtomicSource(d *doc.Document) *AtomicSource {
	s := &AtomicSource{}
	s.ptr.Store(d)
	return s
}

// Store publishes a new snapshot. The previous document must no longer
// be mutated by anyone; the audio thread may still be reading it.
func (s *AtomicSource) Store(d *doc.Document) {
	s.ptr.Store(d)
}

// CurrentDocument implements doc.Source.
func (s *AtomicSource) CurrentDocument() *doc.Document {
	return s.ptr.Load()
}
