package funcs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func TestCidrsubnet(t *testing.T) {
	testCases := []struct {
		name     string
		prefix   string
		newbits  int64
		netnum   int64
		expected string
	}{
		{name: "ipv4 /16 to /24", prefix: "10.0.0.0/16", newbits: 8, netnum: 2, expected: "10.0.2.0/24"},
		{name: "ipv4 /24 to /28", prefix: "192.168.1.0/24", newbits: 4, netnum: 15, expected: "192.168.1.240/28"},
		{name: "ipv6", prefix: "fd00::/48", newbits: 16, netnum: 1, expected: "fd00:0:0:1::/64"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustCall(t, "cidrsubnet", str(tc.prefix), num(tc.newbits), num(tc.netnum))
			assert.Equal(t, tc.expected, got.AsString())
		})
	}
}

func TestCidrsubnet_Errors(t *testing.T) {
	_, err := call(t, "cidrsubnet", str("not-a-prefix"), num(8), num(0))
	var conv diag.ConversionError
	require.ErrorAs(t, err, &conv)

	// 10.0.0.0/16 has 16 spare bits; asking for 20 more overflows.
	_, err = call(t, "cidrsubnet", str("10.0.0.0/16"), num(20), num(0))
	require.Error(t, err)

	// netnum outside the space the new bits can address.
	_, err = call(t, "cidrsubnet", str("10.0.0.0/16"), num(2), num(100))
	require.Error(t, err)
}

func TestCidrhost(t *testing.T) {
	got := mustCall(t, "cidrhost", str("10.0.0.0/24"), num(5))
	assert.Equal(t, "10.0.0.5", got.AsString())

	got = mustCall(t, "cidrhost", str("fd00::/64"), num(268))
	assert.Equal(t, "fd00::10c", got.AsString())
}

func TestCidrnetmask(t *testing.T) {
	got := mustCall(t, "cidrnetmask", str("10.0.0.0/20"))
	assert.Equal(t, "255.255.240.0", got.AsString())

	_, err := call(t, "cidrnetmask", str("fd00::/64"))
	var typ diag.TypeError
	require.ErrorAs(t, err, &typ)
}

func TestCidr_UnknownPropagates(t *testing.T) {
	got := mustCall(t, "cidrsubnet", value.Unknown, num(8), num(2))
	assert.True(t, got.IsUnknown())
}
