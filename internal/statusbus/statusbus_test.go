package statusbus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

func TestNilBusMethodsAreNoOps(t *testing.T) {
	var bus *Bus

	assert.NotPanics(t, func() {
		bus.Publish(netconfig.AggregateStatus{})
		bus.Close()
	})
}

func TestStatusesEqualDereferencesErrorPointers(t *testing.T) {
	a := netconfig.AggregateStatus{LTE: netconfig.LinkStatus{Error: netconfig.ErrString("boom")}}
	b := netconfig.AggregateStatus{LTE: netconfig.LinkStatus{Error: netconfig.ErrString("boom")}}

	assert.True(t, statusesEqual(a, b))
}

func TestStatusesEqualDetectsDifference(t *testing.T) {
	a := netconfig.AggregateStatus{LTE: netconfig.LinkStatus{Status: netconfig.StatusConnected}}
	b := netconfig.AggregateStatus{LTE: netconfig.LinkStatus{Status: netconfig.StatusNotConnected}}

	assert.False(t, statusesEqual(a, b))
}

func TestWatchPublishesOnlyWhenChanged(t *testing.T) {
	var bus *Bus // nil bus: Watch must not panic even though Publish is a no-op
	calls := 0
	fetch := func() netconfig.AggregateStatus {
		calls++
		return netconfig.AggregateStatus{LTE: netconfig.LinkStatus{Status: netconfig.StatusConnected}}
	}

	last := netconfig.AggregateStatus{}
	assert.NotPanics(t, func() { bus.Watch(fetch, &last) })
	assert.Equal(t, netconfig.StatusConnected, last.LTE.Status)
	assert.Equal(t, 1, calls)
}
