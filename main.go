package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bridge-bot/cmd"
)

func main() {
	// .env is optional; BRIDGE_BOT_PRIVATE_KEY may come from the
	// environment directly.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
