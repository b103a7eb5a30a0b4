// Package event implements the cross-goroutine signaling primitives the I/O
// worker and channel owners use to hand off work without blocking: a
// reusable write-trigger and a single-shot RPC waiter.
package event

// Signal is a level-triggered wake-up: Notify never blocks and coalesces
// multiple notifications into one pending wake, C returns a channel that
// becomes readable when a notification is pending. This is the Go rendering
// of the "self-pipe" write-trigger called for in the design notes -- a
// buffered channel of capacity 1 is already select()-able alongside a
// socket read running on its own goroutine, so no real fd-level self-pipe
// is needed.
type Signal struct {
	c chan struct{}
}

// NewSignal returns a ready-to-use Signal.
func NewSignal() *Signal {
	return &Signal{c: make(chan struct{}, 1)}
}

// Notify arms the signal. Safe to call from any number of goroutines
// concurrently; redundant notifications before the signal is consumed are
// coalesced into a single pending wake.
func (s *Signal) Notify() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// C returns the channel to select on. A successful receive consumes the
// pending wake; callers that want to keep waiting must call Notify-observing
// code again on the next iteration.
func (s *Signal) C() <-chan struct{} {
	return s.c
}
