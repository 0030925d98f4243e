package main

import (
	"os"

	"murmur/cmd/murmur/ask"
	"murmur/cmd/murmur/gateway"
	"murmur/cmd/murmur/setup"
	"murmur/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:          "murmur",
		Short:        "Murmur is a Telegram group chat assistant",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.toml (default $XDG_CONFIG_HOME/murmur/config.toml)")

	rootCmd.AddCommand(setup.Cmd)
	rootCmd.AddCommand(gateway.Cmd)
	rootCmd.AddCommand(ask.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
