package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-bot/config"
	"bridge-bot/pkg/broker"
	"bridge-bot/pkg/engine"
	"bridge-bot/pkg/types"
	"bridge-bot/pkg/wallet"
)

var (
	bridgeFrom   string
	bridgeTo     string
	bridgeAsset  string
	bridgeAmount string
	bridgeYes    bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge an asset between two chains once",
	Long: `Request a route for a single bridge transfer, show the quote and
execute it after confirmation.

Use the chain's native symbol (e.g. ETH) as --asset to bridge the native
coin; any other symbol is looked up in the token table.

Examples:
  bridge-bot bridge --from Arbitrum --to Optimism --asset USDC --amount 50
  bridge-bot bridge --from Base --to Arbitrum --asset ETH --amount 0.05 --yes`,
	Run: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().StringVar(&bridgeFrom, "from", "", "Source chain name or id (required)")
	bridgeCmd.Flags().StringVar(&bridgeTo, "to", "", "Destination chain name or id (required)")
	bridgeCmd.Flags().StringVar(&bridgeAsset, "asset", "USDC", "Asset symbol to bridge")
	bridgeCmd.Flags().StringVar(&bridgeAmount, "amount", "", "Amount in human units (required)")
	bridgeCmd.Flags().BoolVarP(&bridgeYes, "yes", "y", false, "Skip confirmation prompt")
	_ = bridgeCmd.MarkFlagRequired("from")
	_ = bridgeCmd.MarkFlagRequired("to")
	_ = bridgeCmd.MarkFlagRequired("amount")
}

func runBridge(cmd *cobra.Command, args []string) {
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

	src, err := resolveNetwork(reg, bridgeFrom)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	dst, err := resolveNetwork(reg, bridgeTo)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Native coin bridges use the zero-address marker on both sides;
	// token bridges need a deployment on both chains.
	var srcToken, dstToken = types.NativeToken, types.NativeToken
	decimals := uint8(18)
	if !strings.EqualFold(bridgeAsset, src.NativeSymbol) {
		token, ok := reg.Token(strings.ToUpper(bridgeAsset))
		if !ok {
			printError(fmt.Errorf("asset %q is neither %s's native coin nor a configured token", bridgeAsset, src.Name))
			os.Exit(1)
		}
		decimals = token.Decimals
		if srcToken, ok = token.Address(src.ID); !ok {
			printError(fmt.Errorf("%s is not deployed on %s", token.Symbol, src.Name))
			os.Exit(1)
		}
		if dstToken, ok = token.Address(dst.ID); !ok {
			printError(fmt.Errorf("%s is not deployed on %s", token.Symbol, dst.Name))
			os.Exit(1)
		}
	}

	amount, err := types.ParseUnits(bridgeAmount, decimals)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := cmd.Context()
	accounts, err := wallet.NewManager(ctx, cfg.PrivateKey, reg, log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer accounts.Close()

	brokerClient := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.Integrator, cfg.Broker.Timeout, log)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching route..."
		s.Start()
	}
	routes, err := brokerClient.FindRoutes(ctx, types.RouteQuery{
		FromChainID:      src.ID,
		ToChainID:        dst.ID,
		FromToken:        srcToken,
		ToToken:          dstToken,
		FromAmount:       amount,
		FromAddress:      accounts.Address(),
		ToAddress:        accounts.Address(),
		Slippage:         cfg.Bot.Slippage,
		Order:            "RECOMMENDED",
		AllowSwitchChain: true,
	})
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if len(routes) == 0 {
		printError(fmt.Errorf("no route available for %s %s -> %s", bridgeAsset, src.Name, dst.Name))
		os.Exit(1)
	}
	route := routes[0]

	if !jsonOutput {
		displayQuote(route, src.Name, dst.Name, bridgeAsset, decimals)
	}

	if !bridgeYes && !jsonOutput {
		fmt.Print("Proceed with this bridge? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Cancelled.")
			return
		}
	}

	eng := engine.New(brokerClient, accounts, cfg.Bot.MaxGasPriceGwei, log)
	outcome, err := eng.Execute(ctx, route)
	if err != nil && outcome == nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(outcome, "", "  ")
		fmt.Println(string(data))
		return
	}

	switch outcome.FinalStatus {
	case types.StatusConfirmed:
		printSuccess(fmt.Sprintf("Bridge settled. Tx: %s", outcome.TxHash.Hex()))
	case types.StatusPending, types.StatusUnknown:
		fmt.Printf("\nBridge submitted, settlement still pending. Tx: %s\n", outcome.TxHash.Hex())
		fmt.Printf("Check later with: bridge-bot status %s --from %s --to %s --bridge %s\n\n",
			outcome.TxHash.Hex(), src.Name, dst.Name, route.Steps[0].Tool)
	default:
		printError(fmt.Errorf("bridge ended with status %s: %s", outcome.FinalStatus, outcome.ErrorDetail))
		os.Exit(1)
	}
}

func displayQuote(route *types.Route, srcName, dstName, asset string, decimals uint8) {
	bold := color.New(color.Bold)
	fmt.Println()
	bold.Printf("Bridge quote: %s -> %s\n", srcName, dstName)

	tools := make([]string, 0, len(route.Steps))
	for _, step := range route.Steps {
		tools = append(tools, step.Tool)
	}

	fmt.Printf("  Send:     %s %s (~$%.2f)\n", types.FormatUnits(route.FromAmount, decimals), asset, route.FromAmountUSD)
	fmt.Printf("  Receive:  %s %s minimum (~$%.2f)\n", types.FormatUnits(route.ToAmountMin, decimals), asset, route.ToAmountUSD)
	fmt.Printf("  Via:      %s\n", strings.Join(tools, " -> "))
	fmt.Printf("  Gas cost: ~$%.2f\n", route.GasCostUSD)
	fmt.Printf("  Duration: ~%ds\n", route.DurationSec)
	fmt.Println()
}
