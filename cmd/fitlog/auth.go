package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check fitlogd server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			var health httpapi.HealthResponse
			if _, err := c.do(http.MethodGet, "/health", nil, &health, false); err != nil {
				return err
			}
			cmd.Printf("Server Status: %s\n", health.Status)
			cmd.Printf("Server URL: %s\n", c.baseURL)
			return nil
		},
	}
}

// readPassword returns the --password flag, FITLOG_PASSWORD, or the first
// line of stdin, in that order.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("FITLOG_PASSWORD"); env != "" {
		return env, nil
	}
	cmd.PrintErr("Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func credentialsCmd(opts *options, use, short, path, done string) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			resp, err := c.do(http.MethodPost, path, httpapi.CredentialsRequest{Username: args[0], Password: pw}, nil, false)
			if err != nil {
				return err
			}
			if err := c.saveSession(resp); err != nil {
				return err
			}
			cmd.Printf("%s as %s\n", done, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (default: FITLOG_PASSWORD or stdin)")
	return cmd
}

func newRegisterCmd(opts *options) *cobra.Command {
	return credentialsCmd(opts, "register", "Create an account and log in", "/api/auth/register", "Registered and logged in")
}

func newLoginCmd(opts *options) *cobra.Command {
	return credentialsCmd(opts, "login", "Log in and store the session", "/api/auth/login", "Logged in")
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if _, err := c.loadSession(); err == nil {
				if _, err := c.do(http.MethodGet, "/api/auth/logout", nil, nil, true); err != nil {
					cmd.PrintErrf("warning: %v\n", err)
				}
			}
			if err := c.clearSession(); err != nil {
				return fmt.Errorf("failed to remove session file: %w", err)
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}
