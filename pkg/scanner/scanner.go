// Package scanner enumerates ordered network pairs for the configured
// asset, gates them on deployment, balance and profitability, and hands
// each actionable route to the execution engine in iteration order.
package scanner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"bridge-bot/pkg/registry"
	"bridge-bot/pkg/types"
)

// balances is the slice of the account manager the scanner consumes.
type balances interface {
	Address() common.Address
	Active() []registry.Network
	Balance(ctx context.Context, chainID int64, token common.Address) *big.Int
}

// routeFinder is the slice of the route broker the scanner consumes.
type routeFinder interface {
	FindRoutes(ctx context.Context, q types.RouteQuery) ([]*types.Route, error)
}

// executor runs one actionable route to completion.
type executor interface {
	Execute(ctx context.Context, route *types.Route) (*types.Outcome, error)
}

// Options wires a scanner.
type Options struct {
	Wallet       balances
	Broker       routeFinder
	Engine       executor
	Asset        registry.Token
	Notional     *big.Int
	MinProfitUSD float64
	Slippage     float64
	Log          zerolog.Logger
}

// Scanner walks every ordered pair of active networks once per Scan call.
type Scanner struct {
	wallet       balances
	broker       routeFinder
	engine       executor
	asset        registry.Token
	notional     *big.Int
	minProfitUSD float64
	slippage     float64
	log          zerolog.Logger
}

// New creates a scanner from Options.
func New(opts Options) *Scanner {
	return &Scanner{
		wallet:       opts.Wallet,
		broker:       opts.Broker,
		engine:       opts.Engine,
		asset:        opts.Asset,
		notional:     opts.Notional,
		minProfitUSD: opts.MinProfitUSD,
		slippage:     opts.Slippage,
		log:          opts.Log.With().Str("component", "scanner").Logger(),
	}
}

// Scan iterates every ordered (source, dest) pair of networks with an
// active account and executes each actionable route as it is found. Pairs
// run strictly sequentially so no two mutating operations share an account;
// balances are re-read per pair, so funds moved by an earlier execution
// gate later pairs in the same pass. The best-ranked route per pair is the
// only one considered; selection is first-actionable in iteration order,
// not globally optimal, by policy.
func (s *Scanner) Scan(ctx context.Context) ([]*types.Outcome, error) {
	networks := s.wallet.Active()
	var outcomes []*types.Outcome

	for _, src := range networks {
		for _, dst := range networks {
			if src.ID == dst.ID {
				continue
			}
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}

			route, ok := s.evaluatePair(ctx, src, dst)
			if !ok {
				continue
			}

			s.log.Info().
				Str("pair", src.Name+"->"+dst.Name).
				Str("route", route.ID).
				Float64("profit_usd", route.ProfitUSD()).
				Msg("actionable opportunity found")

			outcome, err := s.engine.Execute(ctx, route)
			if err != nil {
				s.log.Warn().Err(err).
					Str("pair", src.Name+"->"+dst.Name).
					Str("route", route.ID).
					Msg("execution failed")
			}
			if outcome != nil {
				outcomes = append(outcomes, outcome)
			}
		}
	}
	return outcomes, nil
}

// evaluatePair applies the gating rules for one ordered pair and returns
// the best route when the pair is actionable.
func (s *Scanner) evaluatePair(ctx context.Context, src, dst registry.Network) (*types.Route, bool) {
	pair := src.Name + "->" + dst.Name

	srcToken, ok := s.asset.Address(src.ID)
	if !ok {
		s.log.Debug().Str("pair", pair).Str("asset", s.asset.Symbol).
			Str("reason", "asset not deployed on source").Msg("pair skipped")
		return nil, false
	}
	dstToken, ok := s.asset.Address(dst.ID)
	if !ok {
		s.log.Debug().Str("pair", pair).Str("asset", s.asset.Symbol).
			Str("reason", "asset not deployed on destination").Msg("pair skipped")
		return nil, false
	}

	balance := s.wallet.Balance(ctx, src.ID, srcToken)
	if balance.Cmp(s.notional) < 0 {
		s.log.Debug().Str("pair", pair).
			Str("balance", balance.String()).
			Str("notional", s.notional.String()).
			Str("reason", "insufficient balance").Msg("pair skipped")
		return nil, false
	}

	routes, err := s.broker.FindRoutes(ctx, types.RouteQuery{
		FromChainID:      src.ID,
		ToChainID:        dst.ID,
		FromToken:        srcToken,
		ToToken:          dstToken,
		FromAmount:       s.notional,
		FromAddress:      s.wallet.Address(),
		ToAddress:        s.wallet.Address(),
		Slippage:         s.slippage,
		Order:            "RECOMMENDED",
		AllowSwitchChain: true,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("pair", pair).Msg("route query failed, pair skipped")
		return nil, false
	}
	if len(routes) == 0 {
		s.log.Debug().Str("pair", pair).Str("reason", "no route").Msg("pair skipped")
		return nil, false
	}

	best := routes[0]
	if profit := best.ProfitUSD(); profit < s.minProfitUSD {
		s.log.Debug().Str("pair", pair).
			Float64("profit_usd", profit).
			Float64("min_profit_usd", s.minProfitUSD).
			Str("reason", "below profit threshold").Msg("pair skipped")
		return nil, false
	}
	return best, true
}
