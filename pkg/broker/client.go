// Package broker wraps the external routing aggregator: route discovery,
// step materialization and settlement status polling. The core packages
// only depend on this contract, never on the aggregator's internals.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"bridge-bot/pkg/types"
)

// Client talks to the aggregator's HTTP API.
type Client struct {
	baseURL    string
	integrator string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an aggregator client for the given base URL.
func NewClient(baseURL, integrator string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		integrator: integrator,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "broker").Logger(),
	}
}

// FindRoutes asks the aggregator for candidate routes, best first. An empty
// slice means no route exists for the pair; that is not an error.
func (c *Client) FindRoutes(ctx context.Context, q types.RouteQuery) ([]*types.Route, error) {
	req := routesRequest{
		FromChainID:      q.FromChainID,
		ToChainID:        q.ToChainID,
		FromTokenAddress: q.FromToken.Hex(),
		ToTokenAddress:   q.ToToken.Hex(),
		FromAmount:       q.FromAmount.String(),
		FromAddress:      q.FromAddress.Hex(),
		ToAddress:        q.ToAddress.Hex(),
		Options: routesOptions{
			Slippage:         q.Slippage,
			Order:            q.Order,
			AllowSwitchChain: q.AllowSwitchChain,
			Integrator:       c.integrator,
		},
	}

	var resp routesResponse
	if err := c.post(ctx, "/advanced/routes", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch routes: %w", err)
	}

	routes := make([]*types.Route, 0, len(resp.Routes))
	for _, dto := range resp.Routes {
		route, err := dto.toRoute()
		if err != nil {
			// A malformed candidate is dropped, not fatal; the
			// remaining candidates keep their ranking.
			c.log.Warn().Err(err).Str("route", dto.ID).Msg("dropping malformed route candidate")
			continue
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// MaterializeStep turns one route step into a ready-to-sign transaction
// descriptor.
func (c *Client) MaterializeStep(ctx context.Context, step types.Step) (types.TxRequest, error) {
	if len(step.Raw) == 0 {
		return types.TxRequest{}, fmt.Errorf("step %s has no broker payload", step.ID)
	}

	var resp stepTransactionResponse
	if err := c.postRaw(ctx, "/advanced/stepTransaction", step.Raw, &resp); err != nil {
		return types.TxRequest{}, fmt.Errorf("failed to materialize step %s: %w", step.ID, err)
	}

	tr := resp.TransactionRequest
	if tr.To == "" {
		return types.TxRequest{}, fmt.Errorf("step %s: broker returned no transaction request", step.ID)
	}

	data, err := hexutil.Decode(tr.Data)
	if err != nil {
		return types.TxRequest{}, fmt.Errorf("step %s: bad calldata: %w", step.ID, err)
	}
	value, err := parseQuantity(tr.Value)
	if err != nil {
		return types.TxRequest{}, fmt.Errorf("step %s: bad value: %w", step.ID, err)
	}
	gasLimit, err := parseQuantity(tr.GasLimit)
	if err != nil {
		return types.TxRequest{}, fmt.Errorf("step %s: bad gas limit: %w", step.ID, err)
	}

	return types.TxRequest{
		To:       common.HexToAddress(tr.To),
		Data:     data,
		Value:    value,
		GasLimit: gasLimit.Uint64(),
	}, nil
}

// SettlementStatus polls the aggregator once for the cross-chain status of
// a submitted transaction. It never loops; re-poll cadence is the caller's.
func (c *Client) SettlementStatus(ctx context.Context, bridge string, fromChain, toChain int64, txHash common.Hash) (types.SettlementStatus, error) {
	params := url.Values{}
	params.Set("bridge", bridge)
	params.Set("fromChain", strconv.FormatInt(fromChain, 10))
	params.Set("toChain", strconv.FormatInt(toChain, 10))
	params.Set("txHash", txHash.Hex())

	var resp statusResponse
	if err := c.get(ctx, "/status?"+params.Encode(), &resp); err != nil {
		return types.SettlementNotFound, fmt.Errorf("failed to fetch settlement status: %w", err)
	}

	switch types.SettlementStatus(resp.Status) {
	case types.SettlementDone, types.SettlementFailed, types.SettlementPending:
		return types.SettlementStatus(resp.Status), nil
	default:
		return types.SettlementNotFound, nil
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.postRaw(ctx, path, buf, out)
}

func (c *Client) postRaw(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseQuantity accepts both 0x-prefixed and plain decimal quantities; the
// aggregator is not consistent across endpoints.
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return hexutil.DecodeBig(s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a quantity: %q", s)
	}
	return v, nil
}
