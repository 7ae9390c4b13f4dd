package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the address marker for a chain's native coin. The same
// zero value inside a token table means "not deployed on this chain"; the
// registry resolves that ambiguity before a route query is ever built.
var NativeToken = common.Address{}

// IsNative reports whether addr denotes the native coin marker.
func IsNative(addr common.Address) bool {
	return addr == NativeToken
}

// RouteQuery describes a single route request to the broker.
type RouteQuery struct {
	FromChainID int64
	ToChainID   int64
	FromToken   common.Address
	ToToken     common.Address
	FromAmount  *big.Int
	FromAddress common.Address
	ToAddress   common.Address

	// Options forwarded to the aggregator.
	Slippage         float64
	Order            string
	AllowSwitchChain bool
}

// Step is one hop of a route. Raw carries the broker's full step payload so
// it can be sent back verbatim when the step is materialized into a
// transaction; everything else is what this system needs to inspect.
type Step struct {
	ID          string
	Tool        string
	FromChainID int64
	ToChainID   int64
	FromToken   common.Address
	ToToken     common.Address
	FromAmount  *big.Int

	// ApprovalAddress is the spender that must be approved before an
	// ERC-20 step can execute. Unset for native-coin steps.
	ApprovalAddress common.Address

	Raw json.RawMessage
}

// Route is a single broker route candidate. Routes are produced fresh per
// query and never mutated after creation.
type Route struct {
	ID          string
	FromChainID int64
	ToChainID   int64
	FromToken   common.Address
	ToToken     common.Address
	FromAmount  *big.Int
	ToAmountMin *big.Int

	FromAmountUSD float64
	ToAmountUSD   float64
	GasCostUSD    float64
	DurationSec   int64

	Steps []Step
}

// ProfitUSD is the route's estimated net value: destination value minus
// source value minus gas.
func (r *Route) ProfitUSD() float64 {
	return r.ToAmountUSD - r.FromAmountUSD - r.GasCostUSD
}

// TxRequest is a ready-to-sign transaction descriptor returned by the
// broker for one step.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// SettlementStatus is the broker's view of a cross-chain transfer.
type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "PENDING"
	SettlementDone     SettlementStatus = "DONE"
	SettlementFailed   SettlementStatus = "FAILED"
	SettlementNotFound SettlementStatus = "NOT_FOUND"
)

// TxStatus is the final status of an execution attempt.
type TxStatus string

const (
	StatusPending   TxStatus = "PENDING"
	StatusConfirmed TxStatus = "CONFIRMED"
	StatusFailed    TxStatus = "FAILED"
	StatusUnknown   TxStatus = "UNKNOWN"
)

// Outcome records what happened to one executed route. It is immutable once
// the engine returns it and is only used for logging and the next cycle's
// decisions; nothing here survives a restart.
type Outcome struct {
	Route          *Route
	TxHash         common.Hash
	FinalStatus    TxStatus
	ConfirmedBlock uint64
	ErrorDetail    string
}
