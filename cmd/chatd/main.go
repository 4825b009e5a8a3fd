package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/infodancer/chatd/internal/config"
)

func main() {
	// Deployment scripts put secrets in a .env next to the binary.
	// A missing file is fine; the environment may carry everything.
	_ = godotenv.Load()

	flags := config.ParseFlags()

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
