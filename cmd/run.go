package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bridge-bot/config"
	"bridge-bot/pkg/bot"
	"bridge-bot/pkg/broker"
	"bridge-bot/pkg/engine"
	"bridge-bot/pkg/scanner"
	"bridge-bot/pkg/types"
	"bridge-bot/pkg/wallet"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the automated bridging loop",
	Long: `Start the scan-select-execute loop: every check interval the bot walks
all network pairs for the configured asset, and executes any route whose
estimated profit clears the threshold.

The loop runs until interrupted. An interrupt stops the bot between
cycles; an execution already in flight always finishes first.`,
	Run: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) {
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

	asset, ok := reg.Token(cfg.Bot.Asset)
	if !ok {
		log.Fatal().Str("asset", cfg.Bot.Asset).Msg("configured asset not in token table")
	}
	notional, err := types.ParseUnits(cfg.Bot.Notional, asset.Decimals)
	if err != nil {
		log.Fatal().Err(err).Str("notional", cfg.Bot.Notional).Msg("invalid notional amount")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, err := wallet.NewManager(ctx, cfg.PrivateKey, reg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up accounts")
	}
	defer accounts.Close()

	brokerClient := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.Integrator, cfg.Broker.Timeout, log)
	eng := engine.New(brokerClient, accounts, cfg.Bot.MaxGasPriceGwei, log)

	scan := scanner.New(scanner.Options{
		Wallet:       accounts,
		Broker:       brokerClient,
		Engine:       eng,
		Asset:        asset,
		Notional:     notional,
		MinProfitUSD: cfg.Bot.MinProfitUSD,
		Slippage:     cfg.Bot.Slippage,
		Log:          log,
	})

	sched := bot.New(scan, cfg.Bot.CheckInterval, cfg.Bot.RecoveryInterval, log)
	if err := sched.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler exited with error")
		os.Exit(1)
	}
}
