// Package main implements the fitlog CLI, a client for the fitlogd HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the persistent flags shared by every command.
type options struct {
	serverURL   string
	sessionFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fitlog",
		Short: "Log workouts against a fitlogd server",
		Long: `fitlog is a command-line client for the fitlogd check-in API.

Log in once; the session is kept in ~/.config/fitlog/session until you log
out or it expires.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("FITLOG_SERVER", "http://localhost:8080"), "fitlogd server URL")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "session file (default ~/.config/fitlog/session)")

	root.AddCommand(
		newHealthCmd(opts),
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newCheckinCmd(opts),
		newSettingsCmd(opts),
		newCalendarCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
