// web serves Chog Race rooms over HTTP and WebSocket.
//
// Usage:
//
//	web [--config chograce.yaml] [--port 8080]
//
// Environment variables override the config file; flags override both.
package main

import (
	"chograce/internal/config"
	"chograce/internal/server"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagPort   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "web",
	Short: "Chog Race - multiplayer race server",
	Long: `Serves Chog Race rooms. Players join a room by its four character code,
race to the hit target and watch the shared leaderboard update live.

Examples:
  web
  web --port 9000
  web --config ./chograce.yaml`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&flagPort, "port", "", "HTTP port (overrides config and PORT)")
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	return server.Run(cfg)
}
