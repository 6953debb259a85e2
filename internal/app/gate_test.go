package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessGate_AllowsPrivateRanges(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(true, DefaultSubnets)

	req.True(gate.Allow("127.0.0.1"))
	req.True(gate.Allow("10.1.2.3"))
	req.True(gate.Allow("172.20.0.5"))
	req.True(gate.Allow("192.168.1.1"))

	req.False(gate.Allow("8.8.8.8"))
	req.False(gate.Allow("172.32.0.1"))
}

func TestAccessGate_StripsPort(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(true, DefaultSubnets)

	req.True(gate.Allow("192.168.1.10:54321"))
	req.False(gate.Allow("8.8.8.8:443"))
}

func TestAccessGate_MalformedAddressDenied(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(true, DefaultSubnets)

	req.False(gate.Allow(""))
	req.False(gate.Allow("not-an-address"))
	req.False(gate.Allow("999.999.999.999"))
}

func TestAccessGate_EnforceDisabledAllowsAll(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(false, DefaultSubnets)

	req.True(gate.Allow("8.8.8.8"))
	req.True(gate.Allow("not-an-address"))
}

func TestAccessGate_SkipsInvalidSubnets(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(true, []string{"garbage", "10.0.0.0/8", ""})

	req.True(gate.Allow("10.1.2.3"))
	req.False(gate.Allow("192.168.1.1"))
}

func TestAccessGate_MappedIPv4(t *testing.T) {
	req := require.New(t)
	gate := NewAccessGate(true, DefaultSubnets)

	req.True(gate.Allow("::ffff:192.168.1.1"))
}
