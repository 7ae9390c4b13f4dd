package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-bot/config"
	"bridge-bot/pkg/broker"
	"bridge-bot/pkg/types"
)

var (
	statusBridge  string
	statusFrom    string
	statusTo      string
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the settlement status of a bridge transfer",
	Long: `Query the routing aggregator for the cross-chain status of a submitted
bridge transaction.

Examples:
  bridge-bot status 0x1234...abcd --from Arbitrum --to Optimism --bridge hop
  bridge-bot status 0x1234...abcd --from 42161 --to 10 --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusBridge, "bridge", "", "Bridge tool name from the executed route")
	statusCmd.Flags().StringVar(&statusFrom, "from", "", "Source chain name or id (required)")
	statusCmd.Flags().StringVar(&statusTo, "to", "", "Destination chain name or id (required)")
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	_ = statusCmd.MarkFlagRequired("from")
	_ = statusCmd.MarkFlagRequired("to")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if len(args[0]) != 66 {
		printError(fmt.Errorf("%q does not look like a transaction hash", args[0]))
		os.Exit(1)
	}
	txHash := common.HexToHash(args[0])

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

	src, err := resolveNetwork(reg, statusFrom)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	dst, err := resolveNetwork(reg, statusTo)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	brokerClient := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.Integrator, cfg.Broker.Timeout, log)
	ctx := cmd.Context()

	for {
		status, err := brokerClient.SettlementStatus(ctx, statusBridge, src.ID, dst.ID, txHash)
		if err != nil {
			printError(err)
			os.Exit(1)
		}

		if jsonOutput {
			data, _ := json.Marshal(map[string]string{"txHash": txHash.Hex(), "status": string(status)})
			fmt.Println(string(data))
		} else {
			printSettlement(status, txHash)
		}

		terminal := status == types.SettlementDone || status == types.SettlementFailed
		if !watchStatus || terminal {
			return
		}
		time.Sleep(time.Duration(watchInterval) * time.Second)
	}
}

func printSettlement(status types.SettlementStatus, txHash common.Hash) {
	switch status {
	case types.SettlementDone:
		color.New(color.FgGreen).Printf("Settled: %s\n", txHash.Hex())
	case types.SettlementFailed:
		color.New(color.FgRed).Printf("Failed: %s\n", txHash.Hex())
	case types.SettlementPending:
		color.New(color.FgYellow).Printf("Pending: %s\n", txHash.Hex())
	default:
		fmt.Printf("Not found: %s\n", txHash.Hex())
	}
}
