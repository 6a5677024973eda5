package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/vrt/internal/client"
)

// readPassword returns the flag value, or the first line of in.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSessionCmd(app *App, use, short string, typ client.Type) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   use + " USERNAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			_, err = app.Request(cmd.Context(), client.Action{
				Type:    typ,
				Payload: client.Credentials{Username: args[0], Password: pw},
			})
			if err != nil {
				return err
			}
			s := app.Store.GetState().User
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.Username, s.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")

	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	return newSessionCmd(app, "login", "Log in to the server", client.LoginRequest)
}

func newRegisterCmd(app *App) *cobra.Command {
	return newSessionCmd(app, "register", "Create an account and log in", client.RegisterRequest)
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			// The local session is dropped even when the server cannot be
			// reached.
			_, err := app.Request(cmd.Context(), client.Action{Type: client.LogoutRequest})
			app.Store.Dispatch(client.Action{Type: client.Logout})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) id=%s\n", s.Username, s.Role, s.UserID)
			return nil
		},
	}
}

func newDeleteAccountCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete your account with all plants, notes and locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session()
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("refusing to delete the account without --yes")
			}
			out, err := app.Request(cmd.Context(), client.Action{Type: client.DeleteUserRequest, Payload: s.UserID})
			if err != nil {
				return err
			}
			var res struct {
				Notes     []string `json:"deletedNoteIds"`
				Plants    []string `json:"deletedPlantIds"`
				Locations []string `json:"deletedLocationIds"`
			}
			if err := decodeOutcome(out, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account deleted (%d plants, %d notes, %d locations).\n",
				len(res.Plants), len(res.Notes), len(res.Locations))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	return cmd
}
