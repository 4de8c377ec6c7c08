package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

// blockingLoop runs until ctx is cancelled, counting starts/stops so
// tests can assert exactly one worker is ever alive at a time.
func blockingLoop(started, stopped *int32) LoopFunc {
	return func(ctx context.Context, cfg netconfig.LinkConfig, pub *Publisher) {
		atomic.AddInt32(started, 1)
		pub.SetStatus(netconfig.StatusConnected)
		<-ctx.Done()
		atomic.AddInt32(stopped, 1)
	}
}

func TestConnectStartsWorkerAndPublishesStatus(t *testing.T) {
	var started, stopped int32
	ev := NewConnEvent()
	b := New("test", ev, blockingLoop(&started, &stopped), func(*Publisher) {}, nil)

	b.Connect(&netconfig.LinkConfig{Name: "eth0"})

	require.Eventually(t, func() bool {
		return b.Status().Status == netconfig.StatusConnected
	}, time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 1, atomic.LoadInt32(&started))
}

func TestConnectNilRunsCleanInsteadOfLoop(t *testing.T) {
	var cleaned int32
	ev := NewConnEvent()
	clean := func(*Publisher) { atomic.AddInt32(&cleaned, 1) }
	b := New("test", ev, blockingLoop(new(int32), new(int32)), clean, nil)

	b.Connect(nil)

	assert.EqualValues(t, 1, atomic.LoadInt32(&cleaned))
	assert.Equal(t, netconfig.StatusInactive, b.Status().Status)
}

func TestReconnectJoinsPreviousWorkerBeforeStartingNext(t *testing.T) {
	var started, stopped int32
	ev := NewConnEvent()
	b := New("test", ev, blockingLoop(&started, &stopped), func(*Publisher) {}, nil)

	b.Connect(&netconfig.LinkConfig{Name: "eth0"})
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 1 }, time.Second, 5*time.Millisecond)

	b.Connect(&netconfig.LinkConfig{Name: "eth1"})
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 2 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&stopped))
}

func TestInfoMergesPublishedStatusAndInfoFn(t *testing.T) {
	ev := NewConnEvent()
	infoFn := func(pub *Publisher) netconfig.InfoRecord {
		return netconfig.InfoRecord{"address": "10.0.0.5"}
	}
	b := New("test", ev, blockingLoop(new(int32), new(int32)), func(*Publisher) {}, infoFn)

	b.Connect(&netconfig.LinkConfig{Name: "eth0"})
	require.Eventually(t, func() bool { return b.Status().Status == netconfig.StatusConnected }, time.Second, 5*time.Millisecond)

	info := b.Info()
	assert.Equal(t, "10.0.0.5", info["address"])
	assert.Equal(t, string(netconfig.StatusConnected), info["status"])
}

func TestPublisherSetIfnameSignalsOnlyOnChange(t *testing.T) {
	ev := NewConnEvent()
	b := &Base{status: netconfig.LinkStatus{}, connEvent: ev}
	pub := &Publisher{b: b}

	pub.SetIfname("eth0")
	select {
	case <-ev.Chan():
	default:
		t.Fatal("expected a signal on first ifname set")
	}

	pub.SetIfname("eth0")
	select {
	case <-ev.Chan():
		t.Fatal("expected no signal when ifname did not change")
	default:
	}
}

func TestSleepReturnsFalseOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Second))
}

func TestSleepReturnsTrueOnElapsed(t *testing.T) {
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}
