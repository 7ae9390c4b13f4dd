package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"bridge-bot/pkg/registry"
	btypes "bridge-bot/pkg/types"
)

// Well-known throwaway key; derives 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// newRPCServer stubs the two RPC methods the tests exercise: it reports the
// given chain id and never finds a receipt.
func newRPCServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := "null"
		if req.Method == "eth_chainId" {
			result = fmt.Sprintf("%q", chainID)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(t *testing.T, networks []registry.Network) *registry.Registry {
	t.Helper()
	reg, err := registry.New(networks, nil, zerolog.Nop())
	require.NoError(t, err)
	return reg
}

func TestNewManagerRejectsBadKey(t *testing.T) {
	reg := newTestRegistry(t, []registry.Network{
		{ID: 1, Name: "A", RPCURL: "http://127.0.0.1:1", NativeSymbol: "ETH"},
	})

	_, err := NewManager(context.Background(), "", reg, zerolog.Nop())
	require.Error(t, err)

	_, err = NewManager(context.Background(), "not-hex", reg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewManagerDropsChainIDMismatch(t *testing.T) {
	good := newRPCServer(t, "0x1")
	bad := newRPCServer(t, "0x2") // registry expects chain id 3 here
	reg := newTestRegistry(t, []registry.Network{
		{ID: 1, Name: "Good", RPCURL: good.URL, NativeSymbol: "ETH"},
		{ID: 3, Name: "Bad", RPCURL: bad.URL, NativeSymbol: "ETH"},
	})

	m, err := NewManager(context.Background(), testKey, reg, zerolog.Nop())
	require.NoError(t, err, "one mismatching network must not be fatal")
	defer m.Close()

	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", m.Address().Hex())
	active := m.Active()
	require.Len(t, active, 1)
	require.Equal(t, int64(1), active[0].ID)
}

func TestNewManagerFailsWhenNoNetworkUsable(t *testing.T) {
	bad := newRPCServer(t, "0x2")
	reg := newTestRegistry(t, []registry.Network{
		{ID: 1, Name: "A", RPCURL: bad.URL, NativeSymbol: "ETH"},
	})

	_, err := NewManager(context.Background(), testKey, reg, zerolog.Nop())
	require.Error(t, err)
}

func TestWaitMinedBoundedBudget(t *testing.T) {
	srv := newRPCServer(t, "0x1")
	reg := newTestRegistry(t, []registry.Network{
		{ID: 1, Name: "A", RPCURL: srv.URL, NativeSymbol: "ETH"},
	})

	m, err := NewManager(context.Background(), testKey, reg, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()
	m.pollInterval = time.Millisecond
	m.pollAttempts = 3

	_, err = m.WaitMined(context.Background(), 1, common.HexToHash("0x02"))
	require.ErrorIs(t, err, btypes.ErrConfirmTimeout)
}

func TestWaitMinedWithoutAccount(t *testing.T) {
	srv := newRPCServer(t, "0x1")
	reg := newTestRegistry(t, []registry.Network{
		{ID: 1, Name: "A", RPCURL: srv.URL, NativeSymbol: "ETH"},
	})

	m, err := NewManager(context.Background(), testKey, reg, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	_, err = m.WaitMined(context.Background(), 42, common.HexToHash("0x02"))
	require.ErrorIs(t, err, btypes.ErrNoAccount)
}

func TestTrimHexPrefix(t *testing.T) {
	require.Equal(t, "ab12", trimHexPrefix("0xab12"))
	require.Equal(t, "ab12", trimHexPrefix("0Xab12"))
	require.Equal(t, "ab12", trimHexPrefix("ab12"))
	require.Equal(t, "", trimHexPrefix("0x"))
}
