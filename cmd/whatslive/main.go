package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/DevRickLin/whats-live/internal/conf"
	"github.com/DevRickLin/whats-live/internal/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "whatslive",
		Short:         "Live-event message aggregation and on-air display",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serveCmd := newServeCmd()
	root.AddCommand(serveCmd, newMCPCmd(), newResetCmd())

	// bare invocation runs serve
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	}
	return root
}

// loadConfig reads .env, then the environment, and initializes logging
func loadConfig() (*conf.Config, error) {
	envErr := godotenv.Load()

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	if envErr != nil {
		logger := log.WithComponent("main")
		logger.Debug().Msg("no .env file found, using environment variables")
	}
	return cfg, nil
}
