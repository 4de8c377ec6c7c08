package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnEventCoalesces(t *testing.T) {
	ev := NewConnEvent()

	ev.Signal()
	ev.Signal()
	ev.Signal()

	select {
	case <-ev.Chan():
	case <-time.After(time.Second):
		t.Fatal("expected a signal to be observable")
	}

	select {
	case <-ev.Chan():
		t.Fatal("expected only one coalesced signal, not three")
	default:
	}
}

func TestConnEventSignalDoesNotBlockWhenFull(t *testing.T) {
	ev := NewConnEvent()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ev.Signal()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Signal should never block")
	}

	assert.NotNil(t, ev.Chan())
}
