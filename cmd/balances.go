package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-bot/config"
	"bridge-bot/pkg/types"
	"bridge-bot/pkg/wallet"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show native and token balances across all reachable chains",
	Run:   runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	log, err := newLogger(cfg, verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	reg, err := cfg.BuildRegistry(log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Connecting to networks..."
		s.Start()
	}

	ctx := cmd.Context()
	accounts, err := wallet.NewManager(ctx, cfg.PrivateKey, reg, log)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer accounts.Close()

	type tokenBalance struct {
		Symbol string `json:"symbol"`
		Amount string `json:"amount"`
	}
	type chainBalances struct {
		Chain  string         `json:"chain"`
		Native tokenBalance   `json:"native"`
		Tokens []tokenBalance `json:"tokens"`
	}

	var all []chainBalances
	for _, n := range accounts.Active() {
		native := accounts.Balance(ctx, n.ID, types.NativeToken)
		cb := chainBalances{
			Chain:  n.Name,
			Native: tokenBalance{Symbol: n.NativeSymbol, Amount: types.FormatUnits(native, 18)},
		}
		for _, t := range reg.Tokens() {
			addr, ok := t.Address(n.ID)
			if !ok {
				continue
			}
			bal := accounts.Balance(ctx, n.ID, addr)
			cb.Tokens = append(cb.Tokens, tokenBalance{
				Symbol: t.Symbol,
				Amount: types.FormatUnits(bal, t.Decimals),
			})
		}
		all = append(all, cb)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"address":  accounts.Address().Hex(),
			"balances": all,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	fmt.Printf("\nAddress: %s\n\n", accounts.Address().Hex())
	for _, cb := range all {
		header.Printf("%s\n", cb.Chain)
		fmt.Printf("  %-5s %s\n", cb.Native.Symbol, cb.Native.Amount)
		for _, tb := range cb.Tokens {
			fmt.Printf("  %-5s %s\n", tb.Symbol, tb.Amount)
		}
		fmt.Println()
	}
}
