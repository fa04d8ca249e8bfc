package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"taxtracker/internal/app"
	"taxtracker/internal/client"
	"taxtracker/internal/model"

	"github.com/spf13/cobra"
)

func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var creds model.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the tax tracker",
		Long:  "Sign in and keep the session in the state file. Without --password the password is read from stdin.",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		if creds.Password == "" {
			pw, err := readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			creds.Password = pw
		}

		id, err := a.Sessions.Login(cmd.Context(), creds)
		if err != nil {
			return userError(err)
		}
		return out.Emit(id, func(w io.Writer) { printIdentity(w, id) })
	})
	return cmd
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the pending calculation",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		if err := a.Sessions.Logout(cmd.Context()); err != nil {
			return err
		}
		return out.Emit(map[string]bool{"signed_out": true}, func(w io.Writer) {
			fmt.Fprintln(w, "Signed out")
		})
	})
	return cmd
}

func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		id := a.Sessions.Me(cmd.Context())
		return out.Emit(id, func(w io.Writer) { printIdentity(w, id) })
	})
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// userError replaces remote failures with the message shown to users
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(client.UserMessage(err))
}
