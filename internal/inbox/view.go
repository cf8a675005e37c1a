package inbox

import "sync"

// View holds the most recently published derived value. A value computed
// from an older snapshot never replaces one computed from a newer snapshot.
type View[T any] struct {
	mu    sync.Mutex
	seq   uint64
	value T
}

// Publish stores value if seq is newer than the held sequence.
func (v *View[T]) Publish(seq uint64, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq <= v.seq {
		return false
	}
	v.seq = seq
	v.value = value
	return true
}

// Load returns the held value and its sequence (0 when nothing published).
func (v *View[T]) Load() (T, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.seq
}
