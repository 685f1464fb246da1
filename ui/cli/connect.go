// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// connect.go holds the server pairing commands: `connect` verifies a server
// and stores its token in the OS keyring, `token` manages the stored token.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/config"
	"github.com/iamvanilka/mnemy/internal/i18n"
)

var connectCmd = &cobra.Command{
	Use:   "connect <host>",
	Short: "Pair this client with a mnemy-server",
	Long: `Probes the server's health endpoint, prompts for the API token,
verifies it, and persists the host to the config file. The token is stored
in the OS keyring, never on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := strings.TrimRight(args[0], "/")

		if !apiClient.Health(cmd.Context(), host) {
			return fmt.Errorf("%s", i18n.T("connect.unreachable", host))
		}
		fmt.Println(i18n.T("connect.reachable", host))

		token, err := promptToken()
		if err != nil {
			return err
		}
		if token == "" {
			return errors.New(i18n.T("connect.empty_token"))
		}

		apiClient.SetHost(host)
		if err := tokens.Save(token); err != nil {
			return fmt.Errorf("%s", i18n.T("token.save_failed", err))
		}

		ok, err := apiClient.CheckToken(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			// Leave nothing stale behind on a failed pairing.
			_ = tokens.Clear()
			return errors.New(i18n.T("connect.bad_token"))
		}

		appConfig.Server.Host = host
		if err := config.Write(&appConfig, false); err != nil {
			return fmt.Errorf("%s", i18n.T("connect.config_write_failed", err))
		}

		fmt.Println(i18n.T("connect.success", host))
		return nil
	},
}

// promptToken reads the API token without echo when stdin is a terminal,
// falling back to a plain line read for piped input.
func promptToken() (string, error) {
	fmt.Print(i18n.T("connect.token_prompt"))
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// newTokenCmd builds the `token` command group.
func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API token",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store a new API token in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := promptToken()
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New(i18n.T("connect.empty_token"))
			}
			if err := tokens.Save(token); err != nil {
				return fmt.Errorf("%s", i18n.T("token.save_failed", err))
			}
			fmt.Println(i18n.T("token.saved"))
			return nil
		},
	}

	var copyToken bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored API token (or copy it with --copy)",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokens.Get()
			if err != nil {
				if errors.Is(err, api.ErrNoToken) {
					return errors.New(i18n.T("token.none"))
				}
				return err
			}
			if copyToken {
				if err := clipboard.WriteAll(token); err != nil {
					return fmt.Errorf("%s", i18n.T("token.copy_failed", err))
				}
				fmt.Println(i18n.T("token.copied"))
				return nil
			}
			fmt.Println(token)
			return nil
		},
	}
	showCmd.Flags().BoolVarP(&copyToken, "copy", "c", false, "Copy the token to the clipboard instead of printing it")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token from the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tokens.Clear(); err != nil {
				return err
			}
			fmt.Println(i18n.T("token.cleared"))
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the stored token against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := apiClient.CheckToken(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(i18n.T("token.invalid"))
			}
			fmt.Println(i18n.T("token.valid"))
			return nil
		},
	}

	tokenCmd.AddCommand(setCmd, showCmd, clearCmd, checkCmd)
	return tokenCmd
}
