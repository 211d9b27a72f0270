package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mailvoice/internal/credential"
)

var authTimeout time.Duration

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize mailbox access and store the token",
	Long: `Prints a consent URL, waits for the OAuth redirect on GOOGLE_REDIRECT_URL,
and stores the resulting token in the configured token store.`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "how long to wait for the consent redirect")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireGoogle(); err != nil {
		return err
	}
	redirect, err := url.Parse(cfg.GoogleRedirectURL)
	if err != nil {
		return fmt.Errorf("invalid GOOGLE_REDIRECT_URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()

	store, err := openTokenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pg, ok := store.(*credential.PGStore); ok {
		defer pg.Close()
	}
	provider := newCredentialProvider(cfg, store, logger)

	state := uuid.NewString()
	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPattern(redirect), func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "mailvoice is authorized. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("redirect server failed", zap.Error(err))
		}
	}()
	defer func() { _ = srv.Close() }()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser to grant access:\n\n%s\n\n", provider.AuthCodeURL(state))

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for authorization: %w", ctx.Err())
	case code := <-codes:
		if _, err := provider.Exchange(ctx, code); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
	return nil
}

// callbackPattern is the mux pattern for the redirect URL's path; a URL with
// no path is served at the root.
func callbackPattern(redirect *url.URL) string {
	if redirect.Path == "" {
		return "/"
	}
	return redirect.Path
}
