package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func validNetworks() []Network {
	return []Network{
		{ID: 42161, Name: "Arbitrum", RPCURL: "https://arb1.example", NativeSymbol: "ETH"},
		{ID: 10, Name: "Optimism", RPCURL: "https://opt.example", NativeSymbol: "ETH"},
		{ID: 137, Name: "Polygon", RPCURL: "https://poly.example", NativeSymbol: "MATIC"},
	}
}

func TestNewRejectsDuplicateChainID(t *testing.T) {
	networks := append(validNetworks(), Network{ID: 10, Name: "Optimism2", RPCURL: "https://x"})
	_, err := New(networks, nil, zerolog.Nop())
	require.ErrorContains(t, err, "duplicate chain id")
}

func TestNewSkipsMalformedNetworks(t *testing.T) {
	networks := append(validNetworks(),
		Network{ID: 0, Name: "NoID", RPCURL: "https://x"},
		Network{ID: 5, Name: "NoRPC"},
	)
	reg, err := New(networks, nil, zerolog.Nop())
	require.NoError(t, err, "a malformed entry must degrade, not abort")

	require.Len(t, reg.Networks(), 3)
	_, ok := reg.Network(5)
	require.False(t, ok)
	_, ok = reg.NetworkByName("NoID")
	require.False(t, ok)
}

func TestNewFailsWhenNoValidNetworkRemains(t *testing.T) {
	_, err := New([]Network{{ID: 0, Name: "bad", RPCURL: "https://x"}}, nil, zerolog.Nop())
	require.ErrorContains(t, err, "no valid network")

	_, err = New(nil, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestNewSkipsTokenEntryOnUnknownChain(t *testing.T) {
	usdcArb := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	reg, err := New(validNetworks(), []TokenSpec{{
		Symbol:   "USDC",
		Decimals: 6,
		Addresses: map[int64]common.Address{
			42161:  usdcArb,
			999999: common.HexToAddress("0x01"),
		},
	}}, zerolog.Nop())
	require.NoError(t, err, "an unknown chain in a token table must degrade, not abort")

	token, ok := reg.Token("USDC")
	require.True(t, ok)
	addr, ok := token.Address(42161)
	require.True(t, ok)
	require.Equal(t, usdcArb, addr)
	_, ok = token.Address(999999)
	require.False(t, ok)
}

func TestNetworksPreserveConfigurationOrder(t *testing.T) {
	reg, err := New(validNetworks(), nil, zerolog.Nop())
	require.NoError(t, err)

	got := reg.Networks()
	require.Equal(t, []int64{42161, 10, 137}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestTokenAddressZeroMeansNotDeployed(t *testing.T) {
	usdcArb := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	reg, err := New(validNetworks(), []TokenSpec{{
		Symbol:   "USDC",
		Decimals: 6,
		Addresses: map[int64]common.Address{
			42161: usdcArb,
			10:    {}, // explicit zero entry
		},
	}}, zerolog.Nop())
	require.NoError(t, err)

	token, ok := reg.Token("USDC")
	require.True(t, ok)

	addr, ok := token.Address(42161)
	require.True(t, ok)
	require.Equal(t, usdcArb, addr)

	_, ok = token.Address(10)
	require.False(t, ok, "zero address must read as not deployed")

	_, ok = token.Address(137)
	require.False(t, ok, "missing entry must read as not deployed")
}

func TestLookups(t *testing.T) {
	reg, err := New(validNetworks(), []TokenSpec{
		{Symbol: "USDT", Decimals: 6},
		{Symbol: "USDC", Decimals: 6},
	}, zerolog.Nop())
	require.NoError(t, err)

	n, ok := reg.Network(137)
	require.True(t, ok)
	require.Equal(t, "Polygon", n.Name)

	n, ok = reg.NetworkByName("Optimism")
	require.True(t, ok)
	require.Equal(t, int64(10), n.ID)

	_, ok = reg.Network(5)
	require.False(t, ok)

	tokens := reg.Tokens()
	require.Len(t, tokens, 2)
	require.Equal(t, "USDC", tokens[0].Symbol) // sorted by symbol
	require.Equal(t, "USDT", tokens[1].Symbol)
}
