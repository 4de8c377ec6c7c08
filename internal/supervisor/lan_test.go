package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehivetech/netconnectd/internal/netconfig"
)

func TestOperstateUpOnlyMatchesLowercaseUp(t *testing.T) {
	assert.True(t, operstateUp("up"))
	assert.False(t, operstateUp("UP"))
	assert.False(t, operstateUp("down"))
	assert.False(t, operstateUp("unknown"))
	assert.False(t, operstateUp(""))
}

func TestSelectorFromCopiesLinkConfigFields(t *testing.T) {
	cfg := netconfig.LinkConfig{Name: "eth0", MAC: "aa:bb:cc:dd:ee:ff", USBPort: "1-1"}

	sel := selectorFrom(cfg)

	assert.Equal(t, "eth0", sel.Name)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", sel.MAC)
	assert.Equal(t, "1-1", sel.USBPort)
}
