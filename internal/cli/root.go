package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mailvoice/internal/config"
	"mailvoice/internal/logging"
)

var (
	envFile   string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailvoice",
	Short: "Voice-driven mail assistant",
	Long: `mailvoice turns spoken or typed commands into mailbox operations.

Fixed phrases such as "check inbox" run directly. Everything else is
classified by keyword and, when a language model is reachable, by the model;
anything that is not clearly a mail command is answered conversationally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")
}
