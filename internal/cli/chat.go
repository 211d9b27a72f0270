package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mailvoice/internal/speech"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Long: `Reads one command per line from standard input and prints each reply.
Say "exit" or "quit" to leave.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		console := speech.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), "> ")
		defer console.Close()
		loop := speech.NewLoop(console, console, a.dispatcher, logger.Named("speech"), speech.WithExitWords("exit", "quit"))
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
