// Package config loads the bot configuration: the chain list, token address
// tables and trading policy. Values come from compiled-in defaults, an
// optional .bridge-bot.yaml file and BRIDGE_BOT_* environment variables, in
// that order of precedence (lowest first).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"bridge-bot/pkg/registry"
)

// Chain is one configured network.
type Chain struct {
	Name         string `mapstructure:"name"`
	ID           int64  `mapstructure:"id"`
	RPCURL       string `mapstructure:"rpc_url"`
	NativeSymbol string `mapstructure:"native_symbol"`
}

// Token is a token's decimals plus its address on each chain, keyed by
// chain name. An absent or zero address means not deployed.
type Token struct {
	Decimals  uint8             `mapstructure:"decimals"`
	Addresses map[string]string `mapstructure:"addresses"`
}

// Broker configures the routing aggregator endpoint.
type Broker struct {
	BaseURL    string        `mapstructure:"base_url"`
	Integrator string        `mapstructure:"integrator"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Bot holds the trading policy.
type Bot struct {
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	RecoveryInterval time.Duration `mapstructure:"recovery_interval"`
	MinProfitUSD     float64       `mapstructure:"min_profit_usd"`
	MaxGasPriceGwei  int64         `mapstructure:"max_gas_price_gwei"`
	Slippage         float64       `mapstructure:"slippage"`
	Asset            string        `mapstructure:"asset"`
	Notional         string        `mapstructure:"notional"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	PrivateKey string           `mapstructure:"private_key"`
	Broker     Broker           `mapstructure:"broker"`
	Bot        Bot              `mapstructure:"bot"`
	Chains     []Chain          `mapstructure:"chains"`
	Tokens     map[string]Token `mapstructure:"tokens"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".bridge-bot")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetDefault("log_level", "info")
	v.SetDefault("broker.base_url", "https://li.quest/v1")
	v.SetDefault("broker.integrator", "l2-bridge-bot")
	v.SetDefault("broker.timeout", "30s")
	v.SetDefault("bot.check_interval", "60s")
	v.SetDefault("bot.recovery_interval", "2m")
	v.SetDefault("bot.min_profit_usd", 5.0)
	v.SetDefault("bot.max_gas_price_gwei", 100)
	v.SetDefault("bot.slippage", 0.03)
	v.SetDefault("bot.asset", "USDC")
	v.SetDefault("bot.notional", "1000")

	v.SetEnvPrefix("BRIDGE_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only surfaces keys Unmarshal already knows about; the
	// secret deliberately has no default, so bind it explicitly.
	_ = v.BindEnv("private_key")

	// Config file is optional; defaults cover a full chain set.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if len(cfg.Chains) == 0 {
		cfg.Chains = defaultChains()
	}
	if len(cfg.Tokens) == 0 {
		cfg.Tokens = defaultTokens()
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Bot.CheckInterval <= 0 {
		return fmt.Errorf("bot.check_interval must be positive")
	}
	if cfg.Bot.RecoveryInterval <= 0 {
		return fmt.Errorf("bot.recovery_interval must be positive")
	}
	if cfg.Bot.Slippage < 0 || cfg.Bot.Slippage >= 1 {
		return fmt.Errorf("bot.slippage must be a fraction in [0,1)")
	}
	if cfg.Bot.MaxGasPriceGwei <= 0 {
		return fmt.Errorf("bot.max_gas_price_gwei must be positive")
	}
	if _, ok := cfg.Tokens[cfg.Bot.Asset]; !ok {
		return fmt.Errorf("bot.asset %q has no token table", cfg.Bot.Asset)
	}
	return nil
}

// BuildRegistry resolves the chain-name keyed token tables against the
// chain list and constructs the immutable registry. A malformed token
// address entry is logged and skipped, never fatal; chain entries are
// validated by the registry itself with the same per-entry degradation.
func (c *Config) BuildRegistry(log zerolog.Logger) (*registry.Registry, error) {
	networks := make([]registry.Network, 0, len(c.Chains))
	idByName := make(map[string]int64, len(c.Chains))
	for _, ch := range c.Chains {
		native := ch.NativeSymbol
		if native == "" {
			native = "ETH"
		}
		networks = append(networks, registry.Network{
			ID:           ch.ID,
			Name:         ch.Name,
			RPCURL:       ch.RPCURL,
			NativeSymbol: native,
		})
		idByName[strings.ToLower(ch.Name)] = ch.ID
	}

	specs := make([]registry.TokenSpec, 0, len(c.Tokens))
	for symbol, tok := range c.Tokens {
		addrs := make(map[int64]common.Address, len(tok.Addresses))
		for chainName, hexAddr := range tok.Addresses {
			id, ok := idByName[strings.ToLower(chainName)]
			if !ok {
				log.Warn().Str("token", symbol).Str("chain", chainName).
					Msg("token references unknown chain, entry skipped")
				continue
			}
			if hexAddr != "" && !common.IsHexAddress(hexAddr) {
				log.Warn().Str("token", symbol).Str("chain", chainName).Str("address", hexAddr).
					Msg("malformed token address, entry skipped")
				continue
			}
			addrs[id] = common.HexToAddress(hexAddr)
		}
		specs = append(specs, registry.TokenSpec{
			Symbol:    symbol,
			Decimals:  tok.Decimals,
			Addresses: addrs,
		})
	}

	return registry.New(networks, specs, log)
}

// defaultChains mirrors the public-RPC chain set the bot ships with.
func defaultChains() []Chain {
	return []Chain{
		{Name: "Ethereum", ID: 1, RPCURL: "https://eth.llamarpc.com", NativeSymbol: "ETH"},
		{Name: "Polygon", ID: 137, RPCURL: "https://polygon-rpc.com", NativeSymbol: "POL"},
		{Name: "Arbitrum", ID: 42161, RPCURL: "https://arb1.arbitrum.io/rpc", NativeSymbol: "ETH"},
		{Name: "Optimism", ID: 10, RPCURL: "https://mainnet.optimism.io", NativeSymbol: "ETH"},
		{Name: "BSC", ID: 56, RPCURL: "https://bsc-dataseed.binance.org", NativeSymbol: "BNB"},
		{Name: "Avalanche", ID: 43114, RPCURL: "https://api.avax.network/ext/bc/C/rpc", NativeSymbol: "AVAX"},
		{Name: "Base", ID: 8453, RPCURL: "https://mainnet.base.org", NativeSymbol: "ETH"},
	}
}

func defaultTokens() map[string]Token {
	return map[string]Token{
		"USDC": {
			Decimals: 6,
			Addresses: map[string]string{
				"ethereum":  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
				"polygon":   "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
				"arbitrum":  "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8",
				"optimism":  "0x7F5c764cBc14f9669B88837ca1490cCa17c31607",
				"bsc":       "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
				"avalanche": "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
				"base":      "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			},
		},
		"USDT": {
			Decimals: 6,
			Addresses: map[string]string{
				"ethereum":  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
				"polygon":   "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
				"arbitrum":  "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
				"optimism":  "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58",
				"bsc":       "0x55d398326f99059fF775485246999027B3197955",
				"avalanche": "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7",
				"base":      "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2",
			},
		},
	}
}
