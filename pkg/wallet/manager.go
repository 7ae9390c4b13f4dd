// Package wallet manages one signing account per configured network, all
// derived from a single private key. Networks whose RPC endpoint was not
// reachable at startup get no account and are skipped everywhere downstream.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"bridge-bot/pkg/registry"
	btypes "bridge-bot/pkg/types"
)

const (
	receiptPollInterval = 5 * time.Second
	receiptPollAttempts = 36 // 3 minutes at 5s per attempt

	defaultTransferGas = uint64(21000)
	defaultApproveGas  = uint64(100000)
)

type account struct {
	network registry.Network
	client  *ethclient.Client
}

// Manager owns the per-network accounts. All mutating operations against
// one account must be sequential; the scan cycle guarantees that.
type Manager struct {
	key     *ecdsa.PrivateKey
	address common.Address

	accounts map[int64]*account
	active   []registry.Network

	pollInterval time.Duration
	pollAttempts int

	log zerolog.Logger
}

// NewManager derives the signing address from keyHex and dials every
// registry network concurrently. Unreachable networks (or networks whose
// reported chain id disagrees with the registry) are logged and dropped;
// the manager only fails when no network at all is usable.
func NewManager(ctx context.Context, keyHex string, reg *registry.Registry, log zerolog.Logger) (*Manager, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(trimHexPrefix(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	m := &Manager{
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		accounts:     make(map[int64]*account),
		pollInterval: receiptPollInterval,
		pollAttempts: receiptPollAttempts,
		log:          log.With().Str("component", "wallet").Logger(),
	}
	m.log.Info().Str("address", m.address.Hex()).Msg("signing address derived")

	networks := reg.Networks()
	clients := make([]*ethclient.Client, len(networks))

	var wg sync.WaitGroup
	for i, network := range networks {
		wg.Add(1)
		go func(i int, network registry.Network) {
			defer wg.Done()
			client, err := ethclient.DialContext(ctx, network.RPCURL)
			if err != nil {
				m.log.Warn().Err(err).Str("network", network.Name).Msg("rpc unreachable, network inactive")
				return
			}
			chainID, err := client.ChainID(ctx)
			if err != nil {
				m.log.Warn().Err(err).Str("network", network.Name).Msg("chain id query failed, network inactive")
				client.Close()
				return
			}
			if chainID.Int64() != network.ID {
				m.log.Warn().
					Str("network", network.Name).
					Int64("configured", network.ID).
					Str("reported", chainID.String()).
					Msg("chain id mismatch, network inactive")
				client.Close()
				return
			}
			clients[i] = client
		}(i, network)
	}
	wg.Wait()

	// Preserve registry order for deterministic scanning.
	for i, network := range networks {
		if clients[i] == nil {
			continue
		}
		m.accounts[network.ID] = &account{network: network, client: clients[i]}
		m.active = append(m.active, network)
	}

	if len(m.active) == 0 {
		return nil, fmt.Errorf("no configured network is reachable")
	}
	m.log.Info().Int("networks", len(m.active)).Msg("accounts ready")
	return m, nil
}

// Address returns the single signing address used on every network.
func (m *Manager) Address() common.Address { return m.address }

// Active returns the networks that have a live account, in registry order.
func (m *Manager) Active() []registry.Network {
	return append([]registry.Network(nil), m.active...)
}

// Balance returns the native balance when token is the native marker, else
// the ERC-20 balance. By policy a failed query reads as zero so the scanner
// treats the pair as underfunded instead of crashing the cycle.
func (m *Manager) Balance(ctx context.Context, chainID int64, token common.Address) *big.Int {
	acct, ok := m.accounts[chainID]
	if !ok {
		return big.NewInt(0)
	}

	if btypes.IsNative(token) {
		balance, err := acct.client.BalanceAt(ctx, m.address, nil)
		if err != nil {
			m.log.Warn().Err(err).Str("network", acct.network.Name).Msg("native balance query failed, treating as zero")
			return big.NewInt(0)
		}
		return balance
	}

	data, err := packBalanceOf(m.address)
	if err != nil {
		m.log.Warn().Err(err).Msg("balanceOf pack failed, treating as zero")
		return big.NewInt(0)
	}
	result, err := acct.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		m.log.Warn().Err(err).
			Str("network", acct.network.Name).
			Str("token", token.Hex()).
			Msg("token balance query failed, treating as zero")
		return big.NewInt(0)
	}
	return unpackUint256(result)
}

// GasPrice returns the network's current suggested gas price.
func (m *Manager) GasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	acct, ok := m.accounts[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, btypes.ErrNoAccount)
	}
	return acct.client.SuggestGasPrice(ctx)
}

// Allowance reads the current ERC-20 allowance granted to spender.
func (m *Manager) Allowance(ctx context.Context, chainID int64, token, spender common.Address) (*big.Int, error) {
	acct, ok := m.accounts[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, btypes.ErrNoAccount)
	}
	data, err := packAllowance(m.address, spender)
	if err != nil {
		return nil, err
	}
	result, err := acct.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance call failed: %w", err)
	}
	return unpackUint256(result), nil
}

// Approve submits an ERC-20 approval for spender and returns the tx hash.
func (m *Manager) Approve(ctx context.Context, chainID int64, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	acct, ok := m.accounts[chainID]
	if !ok {
		return common.Hash{}, fmt.Errorf("chain %d: %w", chainID, btypes.ErrNoAccount)
	}
	data, err := packApprove(spender, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return m.signAndSend(ctx, acct, btypes.TxRequest{
		To:       token,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: 0, // estimated below
	})
}

// Send signs and broadcasts a broker-materialized transaction.
func (m *Manager) Send(ctx context.Context, chainID int64, req btypes.TxRequest) (common.Hash, error) {
	acct, ok := m.accounts[chainID]
	if !ok {
		return common.Hash{}, fmt.Errorf("chain %d: %w", chainID, btypes.ErrNoAccount)
	}
	return m.signAndSend(ctx, acct, req)
}

func (m *Manager) signAndSend(ctx context.Context, acct *account, req btypes.TxRequest) (common.Hash, error) {
	nonce, err := acct.client.PendingNonceAt(ctx, m.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := acct.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = m.estimateGas(ctx, acct, req.To, value, req.Data)
	}

	tx := types.NewTransaction(nonce, req.To, value, gasLimit, gasPrice, req.Data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(acct.network.ID)), m.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := acct.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	m.log.Debug().
		Str("network", acct.network.Name).
		Str("tx", signedTx.Hash().Hex()).
		Uint64("nonce", nonce).
		Msg("transaction sent")
	return signedTx.Hash(), nil
}

func (m *Manager) estimateGas(ctx context.Context, acct *account, to common.Address, value *big.Int, data []byte) uint64 {
	if len(data) == 0 {
		return defaultTransferGas
	}
	estimated, err := acct.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  m.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return defaultApproveGas
	}
	return estimated * 120 / 100 // 20% buffer
}

// WaitMined polls for the transaction receipt until it appears or the
// bounded attempt budget runs out.
func (m *Manager) WaitMined(ctx context.Context, chainID int64, txHash common.Hash) (*types.Receipt, error) {
	acct, ok := m.accounts[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, btypes.ErrNoAccount)
	}

	for attempt := 0; attempt < m.pollAttempts; attempt++ {
		receipt, err := acct.client.TransactionReceipt(ctx, txHash)
		if receipt != nil {
			m.log.Debug().
				Str("network", acct.network.Name).
				Str("tx", txHash.Hex()).
				Uint64("block", receipt.BlockNumber.Uint64()).
				Msg("transaction mined")
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
	return nil, fmt.Errorf("tx %s: %w", txHash.Hex(), btypes.ErrConfirmTimeout)
}

// Close releases every RPC connection.
func (m *Manager) Close() {
	for _, acct := range m.accounts {
		acct.client.Close()
	}
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
