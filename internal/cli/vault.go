package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/absfs/spacevault/internal/terminal"
	"github.com/absfs/spacevault/internal/ui"
)

var (
	errAborted = errors.New("aborted")

	exportOutput string

	passwdCmd = &cobra.Command{
		Use:   "passwd INDEX",
		Short: "Change the password of a space",
		Long: `Re-encrypts the space at INDEX under a key derived from a new password.
The new key uses the scrypt settings currently configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			password, err := readPassword()
			if err != nil {
				return err
			}
			newPassword, err := readNewPassword(terminal.NewPasswordEnv)
			if err != nil {
				return err
			}

			return withVault(cmd, func(env *vaultEnv) error {
				session, err := unlock(cmd, env, index, password)
				if err != nil {
					return err
				}
				defer session.Close()

				s, cleanup := startSpinner(cmd, "Changing password...")
				defer cleanup()
				if err := session.ChangePassword(cmd.Context(), newPassword); err != nil {
					return err
				}
				name, _ := session.Name()
				s.FinalMSG = success("Changed password of %s", ui.Name.Sprint(name))
				return nil
			})
		},
	}

	findCmd = &cobra.Command{
		Use:   "find",
		Short: "List the spaces a password unlocks",
		Long: `Tries the password against every space. This derives one key per space,
so it takes a while for large vaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword()
			if err != nil {
				return err
			}

			return withVault(cmd, func(env *vaultEnv) error {
				_, cleanup := startSpinner(cmd, fmt.Sprintf("Trying %d spaces...", len(env.vault.Spaces())))
				sessions, err := env.vault.FindSpaces(cmd.Context(), password)
				cleanup()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, session := range sessions {
					index, err := session.Index()
					name, _ := session.Name()
					session.Close()
					if err != nil {
						continue
					}
					fmt.Fprintf(out, "%3d  %s\n", index, ui.Name.Sprint(name))
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted.Sprint("no space matches this password"))
				}
				return nil
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show where the vault is and what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, func(env *vaultEnv) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Vault:    %s\n", ui.Path.Sprint(env.fs.Root()+env.config.Path))
				fmt.Fprintf(out, "Version:  %s\n", env.vault.Version())
				fmt.Fprintf(out, "Spaces:   %d\n", len(env.vault.Spaces()))
				fmt.Fprintf(out, "Scrypt:   %s, %d byte keys\n", env.config.Scrypt, env.config.KeyLength)

				prefs := env.prefs.Load()
				if prefs.LastSpace != "" {
					fmt.Fprintf(out, "Last:     %s %s\n", ui.Name.Sprint(prefs.LastSpace),
						ui.Muted.Sprint(prefs.LastOpened.Format("2006-01-02 15:04")))
				}
				return nil
			})
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Delete every space and the vault file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, func(env *vaultEnv) error {
				n := len(env.vault.Spaces())
				if !confirmed(cmd, fmt.Sprintf("Delete all %d spaces?", n)) {
					return errAborted
				}
				if err := env.vault.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Deleted %d spaces", n))
				return nil
			})
		},
	}

	importCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the vault with an exported vault file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withVault(cmd, func(env *vaultEnv) error {
				if n := len(env.vault.Spaces()); n > 0 && !confirmed(cmd, fmt.Sprintf("Replace all %d spaces?", n)) {
					return errAborted
				}
				if err := env.vault.Import(cmd.Context(), f); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Imported %d spaces from %s",
					len(env.vault.Spaces()), ui.Path.Sprint(args[0])))
				return nil
			})
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the vault file to stdout or --output",
		Long: `Exports the vault in its file format. Spaces stay encrypted, so the
export is as safe to keep as the vault itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, func(env *vaultEnv) error {
				if exportOutput == "" || exportOutput == "-" {
					return env.vault.Export(cmd.OutOrStdout())
				}
				f, err := os.OpenFile(exportOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
				if err != nil {
					return err
				}
				if err := env.vault.Export(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Exported to %s", ui.Path.Sprint(exportOutput)))
				return nil
			})
		},
	}
)

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	importCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")
}

// confirmed reports whether the command may go ahead, asking on the
// terminal unless --yes was given.
func confirmed(cmd *cobra.Command, question string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	return terminal.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question)
}
