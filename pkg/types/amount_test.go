package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1000", 6)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000_000000), v)

	v, err = ParseUnits("0.1", 18)
	require.NoError(t, err)
	require.Equal(t, "100000000000000000", v.String())

	v, err = ParseUnits("0", 6)
	require.NoError(t, err)
	require.Zero(t, v.Sign())

	_, err = ParseUnits("abc", 6)
	require.Error(t, err)

	_, err = ParseUnits("-5", 6)
	require.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "1000", FormatUnits(big.NewInt(1000_000000), 6))
	require.Equal(t, "0.5", FormatUnits(big.NewInt(500000), 6))
	require.Equal(t, "1.000001", FormatUnits(big.NewInt(1_000001), 6))
	require.Equal(t, "0", FormatUnits(nil, 6))
}

func TestRouteProfitUSD(t *testing.T) {
	route := &Route{FromAmountUSD: 1000, ToAmountUSD: 1010.5, GasCostUSD: 2.5}
	require.InDelta(t, 8.0, route.ProfitUSD(), 1e-9)
}

func TestIsNative(t *testing.T) {
	require.True(t, IsNative(NativeToken))
	require.False(t, IsNative([20]byte{0x01}))
}
