package setup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"murmur/internal/config"
	"murmur/internal/db"

	"github.com/spf13/cobra"
)

var force bool

var Cmd = &cobra.Command{
	Use:   "setup",
	Short: "Write a starter config and create the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.Path()
		}

		switch _, err := os.Stat(path); {
		case err == nil && !force:
			fmt.Fprintf(cmd.OutOrStdout(), "config exists at %s (use --force to overwrite)\n", path)
		case err == nil || errors.Is(err, os.ErrNotExist):
			if err := writeDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote config to %s\n", path)
		default:
			return err
		}

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.DB.Path)
		return nil
	},
}

func init() {
	Cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
}

func writeDefault(path string) error {
	data, err := config.Default().Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
