package broker

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"bridge-bot/pkg/types"
)

// Wire types for the aggregator API. Amounts travel as decimal strings in
// smallest units; USD estimates travel as decimal strings.

type routesRequest struct {
	FromChainID      int64         `json:"fromChainId"`
	ToChainID        int64         `json:"toChainId"`
	FromTokenAddress string        `json:"fromTokenAddress"`
	ToTokenAddress   string        `json:"toTokenAddress"`
	FromAmount       string        `json:"fromAmount"`
	FromAddress      string        `json:"fromAddress"`
	ToAddress        string        `json:"toAddress"`
	Options          routesOptions `json:"options"`
}

type routesOptions struct {
	Slippage         float64 `json:"slippage"`
	Order            string  `json:"order,omitempty"`
	AllowSwitchChain bool    `json:"allowSwitchChain"`
	Integrator       string  `json:"integrator,omitempty"`
}

type routesResponse struct {
	Routes []routeDTO `json:"routes"`
}

type routeDTO struct {
	ID            string    `json:"id"`
	FromChainID   int64     `json:"fromChainId"`
	ToChainID     int64     `json:"toChainId"`
	FromAmount    string    `json:"fromAmount"`
	ToAmountMin   string    `json:"toAmountMin"`
	FromAmountUSD string    `json:"fromAmountUSD"`
	ToAmountUSD   string    `json:"toAmountUSD"`
	GasCostUSD    string    `json:"gasCostUSD"`
	FromToken     tokenDTO  `json:"fromToken"`
	ToToken       tokenDTO  `json:"toToken"`
	Steps         []stepDTO `json:"steps"`
}

type tokenDTO struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type stepDTO struct {
	ID       string      `json:"id"`
	Tool     string      `json:"tool"`
	Action   actionDTO   `json:"action"`
	Estimate estimateDTO `json:"estimate"`

	raw json.RawMessage
}

func (s *stepDTO) UnmarshalJSON(data []byte) error {
	type alias stepDTO
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = stepDTO(a)
	// Keep the broker's full payload so materialization can echo it back.
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

type actionDTO struct {
	FromChainID int64    `json:"fromChainId"`
	ToChainID   int64    `json:"toChainId"`
	FromToken   tokenDTO `json:"fromToken"`
	ToToken     tokenDTO `json:"toToken"`
	FromAmount  string   `json:"fromAmount"`
}

type estimateDTO struct {
	ExecutionDuration int64  `json:"executionDuration"`
	ApprovalAddress   string `json:"approvalAddress"`
}

type stepTransactionResponse struct {
	TransactionRequest txRequestDTO `json:"transactionRequest"`
}

type txRequestDTO struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (r routeDTO) toRoute() (*types.Route, error) {
	fromAmount, err := parseAmount(r.FromAmount)
	if err != nil {
		return nil, fmt.Errorf("route %s: bad fromAmount: %w", r.ID, err)
	}
	toAmountMin, err := parseAmount(r.ToAmountMin)
	if err != nil {
		return nil, fmt.Errorf("route %s: bad toAmountMin: %w", r.ID, err)
	}

	route := &types.Route{
		ID:            r.ID,
		FromChainID:   r.FromChainID,
		ToChainID:     r.ToChainID,
		FromToken:     common.HexToAddress(r.FromToken.Address),
		ToToken:       common.HexToAddress(r.ToToken.Address),
		FromAmount:    fromAmount,
		ToAmountMin:   toAmountMin,
		FromAmountUSD: parseUSD(r.FromAmountUSD),
		ToAmountUSD:   parseUSD(r.ToAmountUSD),
		GasCostUSD:    parseUSD(r.GasCostUSD),
	}

	for _, s := range r.Steps {
		stepAmount, err := parseAmount(s.Action.FromAmount)
		if err != nil {
			return nil, fmt.Errorf("route %s step %s: bad fromAmount: %w", r.ID, s.ID, err)
		}
		route.Steps = append(route.Steps, types.Step{
			ID:              s.ID,
			Tool:            s.Tool,
			FromChainID:     s.Action.FromChainID,
			ToChainID:       s.Action.ToChainID,
			FromToken:       common.HexToAddress(s.Action.FromToken.Address),
			ToToken:         common.HexToAddress(s.Action.ToToken.Address),
			FromAmount:      stepAmount,
			ApprovalAddress: common.HexToAddress(s.Estimate.ApprovalAddress),
			Raw:             s.raw,
		})
	}
	if len(route.Steps) > 0 {
		route.DurationSec = r.Steps[0].Estimate.ExecutionDuration
	}
	return route, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	return v, nil
}

// parseUSD tolerates missing estimates; an absent value scores as zero
// rather than failing the whole route.
func parseUSD(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
