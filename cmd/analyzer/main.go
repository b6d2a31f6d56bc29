package main

import (
	"context"
	"fmt"
	"os"

	"crypto-analyzer/internal/cli"
	"crypto-analyzer/internal/logging"
)

func main() {
	// Replaced by the configured logger once the config is loaded.
	logger := logging.NewLoggerWithConfig(logging.DefaultLogConfig())

	if err := cli.NewRootCmd(logger).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
