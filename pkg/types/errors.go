package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for the non-fatal conditions that gate a scan or abort an
// execution. All of them are caught at the scheduling cycle boundary; none
// terminates the process.
var (
	// ErrNoAccount means the network had no reachable account at startup.
	ErrNoAccount = errors.New("no account for network")

	// ErrTokenNotDeployed means the token table has no address (or the
	// zero sentinel) for the requested chain.
	ErrTokenNotDeployed = errors.New("token not deployed on chain")

	// ErrInsufficientBalance means the source balance is below the
	// configured notional amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoRoute means the broker returned no candidates for a pair.
	ErrNoRoute = errors.New("no route available")

	// ErrGasTooHigh means the current gas price exceeds the configured
	// ceiling; the route is aborted before anything is submitted.
	ErrGasTooHigh = errors.New("gas price above ceiling")

	// ErrConfirmTimeout means a submitted transaction was not mined
	// within the confirmation bound.
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// ApprovalError reports a failed or reverted ERC-20 approval.
type ApprovalError struct {
	Token common.Address
	Err   error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("approval for token %s failed: %v", e.Token.Hex(), e.Err)
}

func (e *ApprovalError) Unwrap() error { return e.Err }

// SubmissionError reports a bridge transaction that could not be sent or
// reverted on-chain. TxHash is zero when nothing was broadcast.
type SubmissionError struct {
	TxHash common.Hash
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.TxHash == (common.Hash{}) {
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
	return fmt.Sprintf("submission failed, tx %s: %v", e.TxHash.Hex(), e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
