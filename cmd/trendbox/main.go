package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rxtech-lab/trendbox/internal/config"
	"github.com/rxtech-lab/trendbox/internal/engine"
	"github.com/rxtech-lab/trendbox/internal/logger"
)

func main() {
	// Define command-line flags
	configFlag := flag.String("config", "", "Path to YAML configuration file (required)")
	symbolsFlag := flag.String("symbols", "", "Comma-separated list of symbols (overrides config)")
	intervalFlag := flag.String("interval", "", "Candlestick interval (overrides config)")
	statePathFlag := flag.String("state-path", "", "Path to the state database (overrides config)")

	flag.Parse()

	// Validate required flags
	if *configFlag == "" {
		fmt.Println("Error: --config flag is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Apply flag overrides
	if *symbolsFlag != "" {
		symbols := strings.Split(*symbolsFlag, ",")
		for i := range symbols {
			symbols[i] = strings.TrimSpace(symbols[i])
		}

		cfg.Symbols = symbols
	}

	if *intervalFlag != "" {
		cfg.Interval = *intervalFlag
	}

	if *statePathFlag != "" {
		cfg.StatePath = *statePathFlag
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	eng, err := engine.NewFromConfig(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, stopping...")
		cancel()
	}()

	fmt.Printf("Starting trendbox with %d symbols...\n", len(cfg.Symbols))

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Engine stopped with error: %v", err)
	}

	fmt.Println("Engine stopped")
}
