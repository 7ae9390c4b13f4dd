// Package engine drives a selected route through approval, submission,
// confirmation and cross-chain settlement verification.
package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"

	"bridge-bot/pkg/types"
)

// State is one stage of a route's execution lifecycle.
type State int

const (
	StateSelected State = iota
	StateApprovalPending
	StateApproved
	StateSubmitted
	StateConfirmedLocal
	StateSettlementPending
	StateSettled
	StateSettlementFailed
	StateSettlementUnknown
	StateAborted
)

var stateNames = map[State]string{
	StateSelected:          "SELECTED",
	StateApprovalPending:   "APPROVAL_PENDING",
	StateApproved:          "APPROVED",
	StateSubmitted:         "SUBMITTED",
	StateConfirmedLocal:    "CONFIRMED_LOCAL",
	StateSettlementPending: "SETTLEMENT_PENDING",
	StateSettled:           "SETTLED",
	StateSettlementFailed:  "SETTLEMENT_FAILED",
	StateSettlementUnknown: "SETTLEMENT_UNKNOWN",
	StateAborted:           "ABORTED",
}

func (s State) String() string { return stateNames[s] }

// broker is the slice of the route broker the engine consumes.
type broker interface {
	MaterializeStep(ctx context.Context, step types.Step) (types.TxRequest, error)
	SettlementStatus(ctx context.Context, bridge string, fromChain, toChain int64, txHash common.Hash) (types.SettlementStatus, error)
}

// wallet is the slice of the account manager the engine consumes.
type wallet interface {
	GasPrice(ctx context.Context, chainID int64) (*big.Int, error)
	Allowance(ctx context.Context, chainID int64, token, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, chainID int64, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Send(ctx context.Context, chainID int64, req types.TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, chainID int64, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Engine executes one route at a time. It has no internal retries beyond
// the single bounded confirmation wait; recovery is the next scan cycle.
type Engine struct {
	broker      broker
	wallet      wallet
	maxGasPrice *big.Int
	log         zerolog.Logger
}

// New creates an engine with the given gas price ceiling in gwei.
func New(b broker, w wallet, maxGasPriceGwei int64, log zerolog.Logger) *Engine {
	return &Engine{
		broker:      b,
		wallet:      w,
		maxGasPrice: new(big.Int).Mul(big.NewInt(maxGasPriceGwei), big.NewInt(params.GWei)),
		log:         log.With().Str("component", "engine").Logger(),
	}
}

// Execute runs the full state machine for the route's first step. The
// returned outcome is nil when the route was aborted before anything was
// broadcast; once a transaction exists an outcome is always returned, even
// on failure.
func (e *Engine) Execute(ctx context.Context, route *types.Route) (*types.Outcome, error) {
	if len(route.Steps) == 0 {
		return nil, fmt.Errorf("route %s has no steps", route.ID)
	}
	step := route.Steps[0]

	log := e.log.With().
		Str("route", route.ID).
		Int64("from_chain", route.FromChainID).
		Int64("to_chain", route.ToChainID).
		Str("tool", step.Tool).
		Logger()
	e.transition(log, StateSelected)

	// Native source coin needs no allowance; the approval phase only
	// exists for ERC-20 routes.
	if !types.IsNative(step.FromToken) {
		if err := e.ensureApproval(ctx, log, step); err != nil {
			e.transition(log, StateAborted)
			return nil, err
		}
	}

	// Gas is checked immediately before submission, not at selection
	// time, so the decision reflects current network conditions.
	gasPrice, err := e.wallet.GasPrice(ctx, route.FromChainID)
	if err != nil {
		e.transition(log, StateAborted)
		return nil, fmt.Errorf("gas price query failed: %w", err)
	}
	if gasPrice.Cmp(e.maxGasPrice) > 0 {
		log.Warn().
			Str("gas_price", gasPrice.String()).
			Str("ceiling", e.maxGasPrice.String()).
			Msg("gas price above ceiling, rejecting route")
		e.transition(log, StateAborted)
		return nil, fmt.Errorf("current %s wei exceeds ceiling %s wei: %w",
			gasPrice, e.maxGasPrice, types.ErrGasTooHigh)
	}

	txReq, err := e.broker.MaterializeStep(ctx, step)
	if err != nil {
		e.transition(log, StateAborted)
		return nil, &types.SubmissionError{Err: err}
	}

	txHash, err := e.wallet.Send(ctx, route.FromChainID, txReq)
	if err != nil {
		e.transition(log, StateAborted)
		return nil, &types.SubmissionError{Err: err}
	}
	e.transition(log, StateSubmitted)
	log.Info().Str("tx", txHash.Hex()).Msg("bridge transaction sent")

	outcome := &types.Outcome{Route: route, TxHash: txHash}

	receipt, err := e.wallet.WaitMined(ctx, route.FromChainID, txHash)
	if err != nil {
		// The tx was broadcast; its fate is unknown, not failed.
		outcome.FinalStatus = types.StatusPending
		outcome.ErrorDetail = err.Error()
		return outcome, fmt.Errorf("confirmation wait: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		outcome.FinalStatus = types.StatusFailed
		outcome.ErrorDetail = "transaction reverted"
		return outcome, &types.SubmissionError{TxHash: txHash, Err: fmt.Errorf("transaction reverted in block %d", receipt.BlockNumber.Uint64())}
	}
	outcome.ConfirmedBlock = receipt.BlockNumber.Uint64()
	e.transition(log, StateConfirmedLocal)

	e.transition(log, StateSettlementPending)
	return e.verifySettlement(ctx, log, step, outcome)
}

// ensureApproval makes sure the step's spender may pull the input amount.
// It is idempotent: a sufficient existing allowance issues no transaction.
func (e *Engine) ensureApproval(ctx context.Context, log zerolog.Logger, step types.Step) error {
	e.transition(log, StateApprovalPending)

	allowance, err := e.wallet.Allowance(ctx, step.FromChainID, step.FromToken, step.ApprovalAddress)
	if err != nil {
		return &types.ApprovalError{Token: step.FromToken, Err: err}
	}
	if allowance.Cmp(step.FromAmount) >= 0 {
		log.Debug().Msg("existing allowance sufficient, skipping approval tx")
		e.transition(log, StateApproved)
		return nil
	}

	txHash, err := e.wallet.Approve(ctx, step.FromChainID, step.FromToken, step.ApprovalAddress, step.FromAmount)
	if err != nil {
		return &types.ApprovalError{Token: step.FromToken, Err: err}
	}
	log.Info().Str("tx", txHash.Hex()).Str("spender", step.ApprovalAddress.Hex()).Msg("approval sent")

	receipt, err := e.wallet.WaitMined(ctx, step.FromChainID, txHash)
	if err != nil {
		return &types.ApprovalError{Token: step.FromToken, Err: err}
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return &types.ApprovalError{Token: step.FromToken, Err: fmt.Errorf("approval reverted in block %d", receipt.BlockNumber.Uint64())}
	}

	e.transition(log, StateApproved)
	return nil
}

// verifySettlement polls the broker once. Re-poll cadence belongs to the
// caller; absence of a definitive status is reported as UNKNOWN, never as
// failure.
func (e *Engine) verifySettlement(ctx context.Context, log zerolog.Logger, step types.Step, outcome *types.Outcome) (*types.Outcome, error) {
	status, err := e.broker.SettlementStatus(ctx, step.Tool, step.FromChainID, step.ToChainID, outcome.TxHash)
	if err != nil {
		log.Warn().Err(err).Msg("settlement status unavailable")
		e.transition(log, StateSettlementUnknown)
		outcome.FinalStatus = types.StatusUnknown
		return outcome, nil
	}

	switch status {
	case types.SettlementDone:
		e.transition(log, StateSettled)
		outcome.FinalStatus = types.StatusConfirmed
	case types.SettlementFailed:
		e.transition(log, StateSettlementFailed)
		outcome.FinalStatus = types.StatusFailed
		outcome.ErrorDetail = "settlement failed on destination chain"
	case types.SettlementPending:
		// The bridge is still working; that is a known in-flight state,
		// not an absence of information.
		outcome.FinalStatus = types.StatusPending
	default:
		e.transition(log, StateSettlementUnknown)
		outcome.FinalStatus = types.StatusUnknown
	}
	return outcome, nil
}

func (e *Engine) transition(log zerolog.Logger, state State) {
	log.Info().Str("state", state.String()).Msg("execution state")
}
