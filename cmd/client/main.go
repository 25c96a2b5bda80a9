package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// options shared by every command
type options struct {
	server         string
	wsPath         string
	user           string
	token          string
	websocketToken string
	verbose        bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "linkinbio-client",
		Short: "Client for the linkinbio posts service",
		Long: `linkinbio-client talks to the posts service over HTTP and follows
post updates of a user over the websocket update stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("LINKINBIO_SERVER", "http://localhost:8080"), "HTTP base URL of the service")
	flags.StringVar(&opts.wsPath, "ws-path", "/updates", "websocket path on the server")
	flags.StringVar(&opts.user, "user", envOr("LINKINBIO_USER", ""), "user id to act as")
	flags.StringVar(&opts.token, "token", envOr("LINKINBIO_TOKEN", ""), "user token (defaults to the user id)")
	flags.StringVar(&opts.websocketToken, "ws-token", envOr("WEBSOCKET_TOKEN", ""), "websocket credential")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		watchCmd(opts),
		demoCmd(opts),
		listCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
