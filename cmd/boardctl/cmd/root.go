package cmd

import (
	"fmt"
	"os"

	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "Inspect detected ports, installed boards and the board list",
	Long: `boardctl runs the board discovery of OpenBoardCore once and prints the
resulting board list, without starting the service.

Examples:
  boardctl list                              # Board list for the configured sources
  boardctl list --format json --all          # Every port, as JSON
  boardctl catalog validate boards/          # Check board definition files
  boardctl history forget 'arduino+serial:///dev/ttyACM0'`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
