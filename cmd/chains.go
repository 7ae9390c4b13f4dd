package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-bot/config"
)

var chainsCmd = &cobra.Command{
	Use:     "chains",
	Aliases: []string{"list-chains"},
	Short:   "List configured chains and token deployments",
	Run:     runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, args []string) {
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

	if jsonOutput {
		type chainInfo struct {
			Name   string            `json:"name"`
			ID     int64             `json:"id"`
			Native string            `json:"native"`
			Tokens map[string]string `json:"tokens"`
		}
		var out []chainInfo
		for _, n := range reg.Networks() {
			info := chainInfo{Name: n.Name, ID: n.ID, Native: n.NativeSymbol, Tokens: map[string]string{}}
			for _, t := range reg.Tokens() {
				if addr, ok := t.Address(n.ID); ok {
					info.Tokens[t.Symbol] = addr.Hex()
				}
			}
			out = append(out, info)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	fmt.Println()
	for _, n := range reg.Networks() {
		header.Printf("%s (%d)\n", n.Name, n.ID)
		fmt.Printf("  native: %s\n", n.NativeSymbol)
		for _, t := range reg.Tokens() {
			if addr, ok := t.Address(n.ID); ok {
				fmt.Printf("  %-5s %s\n", t.Symbol, addr.Hex())
			} else {
				dim.Printf("  %-5s not deployed\n", t.Symbol)
			}
		}
		fmt.Println()
	}
}
