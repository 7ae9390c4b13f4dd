package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bridge-bot/config"
	"bridge-bot/pkg/registry"
)

var rootCmd = &cobra.Command{
	Use:   "bridge-bot",
	Short: "An automated cross-chain bridging bot",
	Long: `bridge-bot scans routes between configured EVM networks through an
external routing aggregator, evaluates them for profitability and safety,
and executes the profitable ones.

Examples:
  bridge-bot run
  bridge-bot bridge --from Arbitrum --to Optimism --asset USDC --amount 50
  bridge-bot balances
  bridge-bot chains
  bridge-bot status 0xabc... --from Arbitrum --to Optimism --bridge hop`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// newLogger builds the zerolog logger shared by the core packages.
func newLogger(cfg *config.Config, verbose bool) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("failed to parse log level %q: %w", cfg.LogLevel, err)
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger(), nil
}

// resolveNetwork accepts either a chain name or a numeric chain id.
func resolveNetwork(reg *registry.Registry, nameOrID string) (registry.Network, error) {
	if id, err := strconv.ParseInt(nameOrID, 10, 64); err == nil {
		if n, ok := reg.Network(id); ok {
			return n, nil
		}
		return registry.Network{}, fmt.Errorf("unknown chain id %d", id)
	}
	for _, n := range reg.Networks() {
		if strings.EqualFold(n.Name, nameOrID) {
			return n, nil
		}
	}
	return registry.Network{}, fmt.Errorf("unknown chain %q", nameOrID)
}
