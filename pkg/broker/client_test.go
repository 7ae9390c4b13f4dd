package broker

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"bridge-bot/pkg/types"
)

const routesBody = `{
  "routes": [
    {
      "id": "route-1",
      "fromChainId": 42161,
      "toChainId": 10,
      "fromAmount": "1000000000",
      "toAmountMin": "1008000000",
      "fromAmountUSD": "1000.00",
      "toAmountUSD": "1010.50",
      "gasCostUSD": "2.50",
      "fromToken": {"address": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "symbol": "USDC"},
      "toToken": {"address": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", "symbol": "USDC"},
      "steps": [
        {
          "id": "step-1",
          "tool": "hop",
          "action": {
            "fromChainId": 42161,
            "toChainId": 10,
            "fromToken": {"address": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "symbol": "USDC"},
            "toToken": {"address": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", "symbol": "USDC"},
            "fromAmount": "1000000000"
          },
          "estimate": {
            "executionDuration": 180,
            "approvalAddress": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"
          }
        }
      ]
    },
    {
      "id": "route-2-malformed",
      "fromChainId": 42161,
      "toChainId": 10,
      "fromAmount": "not-a-number",
      "toAmountMin": "1",
      "steps": []
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-integrator", 5*time.Second, zerolog.Nop())
}

func testQuery() types.RouteQuery {
	return types.RouteQuery{
		FromChainID: 42161,
		ToChainID:   10,
		FromToken:   common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		ToToken:     common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		FromAmount:  big.NewInt(1000_000000),
		FromAddress: common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		ToAddress:   common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		Slippage:    0.03,
		Order:       "RECOMMENDED",
	}
}

func TestFindRoutesParsesCandidatesAndDropsMalformed(t *testing.T) {
	var gotReq routesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/advanced/routes", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(routesBody))
	})

	routes, err := client.FindRoutes(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, routes, 1, "malformed candidate must be dropped silently")

	route := routes[0]
	require.Equal(t, "route-1", route.ID)
	require.Equal(t, int64(42161), route.FromChainID)
	require.Equal(t, big.NewInt(1000_000000), route.FromAmount)
	require.Equal(t, big.NewInt(1008_000000), route.ToAmountMin)
	require.InDelta(t, 8.0, route.ProfitUSD(), 1e-9) // 1010.50 - 1000 - 2.50
	require.Equal(t, int64(180), route.DurationSec)

	require.Len(t, route.Steps, 1)
	step := route.Steps[0]
	require.Equal(t, "hop", step.Tool)
	require.Equal(t, common.HexToAddress("0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"), step.ApprovalAddress)
	require.NotEmpty(t, step.Raw, "original step payload must be retained")

	// Request carried the integrator and slippage under options.
	require.Equal(t, "test-integrator", gotReq.Options.Integrator)
	require.InDelta(t, 0.03, gotReq.Options.Slippage, 1e-9)
	require.Equal(t, int64(42161), gotReq.FromChainID)
}

func TestFindRoutesEmptyIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes": []}`))
	})

	routes, err := client.FindRoutes(context.Background(), testQuery())
	require.NoError(t, err)
	require.Empty(t, routes)
}

func TestFindRoutesSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "rate limit exceeded"}`))
	})

	_, err := client.FindRoutes(context.Background(), testQuery())
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit exceeded")
}

func TestMaterializeStepEchoesRawPayload(t *testing.T) {
	raw := json.RawMessage(`{"id":"step-1","tool":"hop"}`)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/advanced/stepTransaction", r.URL.Path)
		var echoed map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&echoed))
		require.Equal(t, "step-1", echoed["id"])
		w.Write([]byte(`{
		  "transactionRequest": {
		    "to": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE",
		    "data": "0xdeadbeef",
		    "value": "0x0",
		    "gasLimit": "0x5208"
		  }
		}`))
	})

	txReq, err := client.MaterializeStep(context.Background(), types.Step{ID: "step-1", Raw: raw})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"), txReq.To)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, txReq.Data)
	require.Zero(t, big.NewInt(0).Cmp(txReq.Value))
	require.Equal(t, uint64(21000), txReq.GasLimit)
}

func TestMaterializeStepRejectsMissingPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a step without payload")
	})

	_, err := client.MaterializeStep(context.Background(), types.Step{ID: "bare"})
	require.Error(t, err)
}

func TestSettlementStatusMapping(t *testing.T) {
	cases := []struct {
		wire string
		want types.SettlementStatus
	}{
		{"DONE", types.SettlementDone},
		{"FAILED", types.SettlementFailed},
		{"PENDING", types.SettlementPending},
		{"NOT_FOUND", types.SettlementNotFound},
		{"SOMETHING_NEW", types.SettlementNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.wire, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/status", r.URL.Path)
				require.Equal(t, "hop", r.URL.Query().Get("bridge"))
				require.Equal(t, "42161", r.URL.Query().Get("fromChain"))
				json.NewEncoder(w).Encode(statusResponse{Status: tc.wire})
			})

			status, err := client.SettlementStatus(context.Background(), "hop", 42161, 10, common.HexToHash("0x02"))
			require.NoError(t, err)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestParseQuantityAcceptsHexAndDecimal(t *testing.T) {
	v, err := parseQuantity("0x5208")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(21000), v)

	v, err = parseQuantity("21000")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(21000), v)

	v, err = parseQuantity("")
	require.NoError(t, err)
	require.Zero(t, v.Sign())

	_, err = parseQuantity("bogus")
	require.Error(t, err)
}
