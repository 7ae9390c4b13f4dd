// Package registry holds the static table of supported networks and the
// per-network token address mappings. It is built once at startup from
// validated configuration and never mutated afterwards.
package registry

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Network describes one supported blockchain.
type Network struct {
	ID           int64
	Name         string
	RPCURL       string
	NativeSymbol string
}

// Token is a bridgeable asset with its per-network deployment addresses.
type Token struct {
	Symbol    string
	Decimals  uint8
	addresses map[int64]common.Address
}

// Address returns the token's address on the given chain. The second return
// is false when the token is not deployed there; a zero address in the
// source table is treated as "not deployed" and never escapes this lookup.
func (t Token) Address(chainID int64) (common.Address, bool) {
	addr, ok := t.addresses[chainID]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// TokenSpec is the raw input for a token table entry.
type TokenSpec struct {
	Symbol    string
	Decimals  uint8
	Addresses map[int64]common.Address
}

// Registry is the immutable network and token lookup table.
type Registry struct {
	networks []Network
	byID     map[int64]Network
	tokens   map[string]Token
}

// New validates the configured networks and token tables and builds the
// registry. A malformed network or token entry is logged and skipped so one
// bad entry never takes the process down; only duplicates (where neither
// entry can be preferred) and an empty surviving network set are fatal.
// Network iteration order follows the input order, so scans are
// deterministic for a fixed configuration.
func New(networks []Network, tokens []TokenSpec, log zerolog.Logger) (*Registry, error) {
	log = log.With().Str("component", "registry").Logger()

	byID := make(map[int64]Network, len(networks))
	valid := make([]Network, 0, len(networks))
	for _, n := range networks {
		if n.ID <= 0 {
			log.Warn().Str("network", n.Name).Int64("chain_id", n.ID).
				Msg("invalid chain id, network skipped")
			continue
		}
		if n.RPCURL == "" {
			log.Warn().Str("network", n.Name).Msg("missing rpc url, network skipped")
			continue
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate chain id %d", n.ID)
		}
		byID[n.ID] = n
		valid = append(valid, n)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid network configured")
	}

	tokenMap := make(map[string]Token, len(tokens))
	for _, spec := range tokens {
		if spec.Symbol == "" {
			log.Warn().Msg("token with empty symbol skipped")
			continue
		}
		if _, dup := tokenMap[spec.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token %q", spec.Symbol)
		}
		addrs := make(map[int64]common.Address, len(spec.Addresses))
		for chainID, addr := range spec.Addresses {
			if _, known := byID[chainID]; !known {
				log.Warn().Str("token", spec.Symbol).Int64("chain_id", chainID).
					Msg("token references unknown chain, entry skipped")
				continue
			}
			addrs[chainID] = addr
		}
		tokenMap[spec.Symbol] = Token{
			Symbol:    spec.Symbol,
			Decimals:  spec.Decimals,
			addresses: addrs,
		}
	}

	return &Registry{
		networks: valid,
		byID:     byID,
		tokens:   tokenMap,
	}, nil
}

// Networks returns all configured networks in configuration order.
func (r *Registry) Networks() []Network {
	return append([]Network(nil), r.networks...)
}

// Network looks up a network by chain id.
func (r *Registry) Network(chainID int64) (Network, bool) {
	n, ok := r.byID[chainID]
	return n, ok
}

// NetworkByName looks up a network by its display name.
func (r *Registry) NetworkByName(name string) (Network, bool) {
	for _, n := range r.networks {
		if n.Name == name {
			return n, true
		}
	}
	return Network{}, false
}

// Token looks up a token by symbol.
func (r *Registry) Token(symbol string) (Token, bool) {
	t, ok := r.tokens[symbol]
	return t, ok
}

// Tokens returns all configured tokens sorted by symbol.
func (r *Registry) Tokens() []Token {
	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
