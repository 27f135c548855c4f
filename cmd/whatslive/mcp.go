package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DevRickLin/whats-live/internal/log"
	"github.com/DevRickLin/whats-live/internal/mcp"
)

const defaultBoardURL = "http://127.0.0.1:9876"

func newMCPCmd() *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the board tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; logs go to stderr
			log.Init(log.Config{Level: log.ParseLevel(os.Getenv("LOG_LEVEL")), Output: os.Stderr})
			if apiURL == "" {
				apiURL = os.Getenv("WHATSLIVE_API_URL")
			}
			if apiURL == "" {
				apiURL = defaultBoardURL
			}
			logger := log.WithComponent("mcp")
			logger.Info().Str("api", apiURL).Msg("starting MCP server")
			return mcp.NewServer(apiURL, version).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", "board API base URL (default $WHATSLIVE_API_URL or "+defaultBoardURL+")")
	return cmd
}
