package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kmatzaris/periegete/internal/cli"
)

func main() {
	// Optional .env for OPENAI_API_KEY and PERIEGETE_* overrides
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
