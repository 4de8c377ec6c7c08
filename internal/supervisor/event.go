package supervisor

// ConnEvent is the process-wide "connectivity changed" signal
// supervisors use to ask the connection manager to re-probe online
// status immediately (the glossary's "connectivity event"). It's a
// single-slot coalescing signal: any number of Signal() calls between
// two reads collapse into one wakeup.
type ConnEvent struct {
	ch chan struct{}
}

// NewConnEvent returns a ready-to-use ConnEvent.
func NewConnEvent() *ConnEvent {
	return &ConnEvent{ch: make(chan struct{}, 1)}
}

// Signal wakes up one pending waiter, or leaves a pending wakeup for
// the next Wait if nobody is currently waiting.
func (e *ConnEvent) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Chan exposes the underlying channel for use in a select statement.
func (e *ConnEvent) Chan() <-chan struct{} {
	return e.ch
}
