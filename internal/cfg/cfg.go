// Package cfg provides configuration and command-line interface setup
// for Archivarr.
package cfg

import (
	"fmt"
	"os"
	"path/filepath"

	"archivarr/internal/domain/keys"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "archivarr",
	Short: "Archivarr archives channel videos, comments and metadata.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Lookup("help").Changed {
			return nil
		}
		if err := validateFlags(); err != nil {
			return err
		}
		viper.Set("execute", true)
		return nil
	},
}

func init() {
	defaultDir := defaultDataDir()

	flags := rootCmd.PersistentFlags()
	flags.String(keys.StorageDir, filepath.Join(defaultDir, "storage"), "Root directory for downloaded media")
	flags.String(keys.DBPath, filepath.Join(defaultDir, "archivarr.db"), "SQLite database location")
	flags.Int(keys.Port, 8686, "HTTP listen port")
	flags.String(keys.APIKey, "", "Catalog API key (per-channel keys override)")
	flags.String(keys.MaxQuality, "", "Override the configured max video quality, e.g. 1080p")
	flags.String(keys.YTDLPBin, "", "Path to the yt-dlp binary (default: found on PATH)")
	flags.Int(keys.DebugLevel, 0, "Debugging level (0 - 5)")
	flags.String(keys.LogFilePath, "", "Log file location (empty logs to console only)")
	flags.Bool(keys.SkipLock, false, "Skip the single-instance lock file")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	viper.SetEnvPrefix("archivarr")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetString fetches a string config value.
func GetString(key string) string { return viper.GetString(key) }

// GetInt fetches an int config value.
func GetInt(key string) int { return viper.GetInt(key) }

// GetBool fetches a bool config value.
func GetBool(key string) bool { return viper.GetBool(key) }

// ******************************** Private ********************************

func validateFlags() error {
	if viper.GetInt(keys.Port) <= 0 || viper.GetInt(keys.Port) > 65535 {
		return fmt.Errorf("invalid port %d", viper.GetInt(keys.Port))
	}
	if viper.GetInt(keys.DebugLevel) < 0 || viper.GetInt(keys.DebugLevel) > 5 {
		return fmt.Errorf("debug level must be 0 - 5")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".archivarr"
	}
	return filepath.Join(home, ".archivarr")
}
