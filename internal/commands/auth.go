package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/auth"
	"github.com/erpdesk/erpdesk/internal/hostutil"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/tui"
)

// prompter asks for credentials on the terminal.
var prompter = tui.Credentials

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var (
		email         string
		token         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the ERP backend",
		Long: `Sign in with your dashboard email and password and store the API token
in the system keyring (or a private file when no keyring is available).

Use --token to store a token you already have, or --password-stdin to read
the password from a pipe.`,
		Example: `  erpdesk login
  erpdesk login --email kasir@toko.co.id --password-stdin < pass.txt
  erpdesk login --token "$ERP_TOKEN"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if token != "" {
				creds := &auth.Credentials{Token: strings.TrimSpace(token), Email: email}
				if err := app.Auth.Save(creds); err != nil {
					return fmt.Errorf("storing token: %w", err)
				}
				return loggedIn(app, creds)
			}

			password := ""
			switch {
			case passwordStdin:
				if email == "" {
					return output.ErrUsage("--email is required with --password-stdin")
				}
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			case app.IsInteractive():
				email, password, err = prompter("Sign in to "+app.Auth.Origin(), email)
				if errors.Is(err, tui.ErrCanceled) {
					return output.ErrUsage("Login canceled")
				}
				if err != nil {
					return err
				}
			default:
				return output.ErrUsageHint("No terminal to ask for a password",
					"Use --password-stdin or --token")
			}

			if err := hostutil.RequireSecure(app.API.BaseURL()); err != nil {
				return output.ErrUsageHint(err.Error(), "Use an https:// base URL")
			}
			res, err := app.API.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			creds := &auth.Credentials{
				Token: res.Token,
				Email: res.User.Email,
				Name:  res.User.Name,
			}
			if res.User.ID != nil {
				creds.UserID = fmt.Sprint(res.User.ID)
			}
			if creds.Email == "" {
				creds.Email = email
			}
			if err := app.Auth.Save(creds); err != nil {
				return fmt.Errorf("storing token: %w", err)
			}
			return loggedIn(app, creds)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&token, "token", "", "Store this API token instead of signing in")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", output.ErrUsage("Empty password on stdin")
	}
	return password, nil
}

func loggedIn(app *appctx.App, creds *auth.Credentials) error {
	who := creds.Name
	if who == "" {
		who = creds.Email
	}
	summary := "Logged in to " + app.Auth.Origin()
	if who != "" {
		summary = fmt.Sprintf("Logged in to %s as %s", app.Auth.Origin(), who)
	}
	return app.OK(map[string]string{
		"status":  "logged_in",
		"backend": app.Auth.Origin(),
		"user_id": creds.UserID,
		"email":   creds.Email,
		"name":    creds.Name,
	},
		output.WithSummary(summary),
		output.WithBreadcrumbs(
			output.Breadcrumb{Action: "open", Cmd: "erpdesk", Description: "Open the workspace"},
			output.Breadcrumb{Action: "features", Cmd: "erpdesk features", Description: "See what you can list"},
		),
	)
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Remove the stored API token for the current backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.Auth.Logout(); err != nil {
				return err
			}

			summary := "Logged out of " + app.Auth.Origin()
			if os.Getenv(auth.TokenEnv) != "" {
				summary += " (" + auth.TokenEnv + " is still set)"
			}
			return app.OK(map[string]string{
				"status":  "logged_out",
				"backend": app.Auth.Origin(),
			}, output.WithSummary(summary))
		},
	}
}
