// Command surveyctl is the operator CLI for the survey service: it checks
// survey configurations, seeds sample responses and lists failed deliveries.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/config"
)

var (
	logger   *zap.Logger
	logLevel string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "surveyctl",
	Short: "Operate the salon survey service",
	Long: `surveyctl manages the salon survey service.

Available subcommands:
  config         - Validate or print the active survey configuration
  seed           - Insert sample responses into MongoDB
  notifications  - Inspect staff notifications that could not be delivered`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = config.NewLogger(logLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "ログレベル (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "MongoDB 操作のタイムアウト")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	notificationsCmd.AddCommand(notificationsPendingCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
