package cli

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/absfs/spacevault"
	"github.com/absfs/spacevault/internal/terminal"
	"github.com/absfs/spacevault/internal/ui"
)

var (
	listMatch string
	addFile   string
	editFile  string

	listCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List spaces by index and name",
		Long: `Lists every space in display order. Names are stored unencrypted, so no
password is needed. --match filters names with a glob pattern such as
"work/**".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listMatch != "" && !doublestar.ValidatePattern(listMatch) {
				return fmt.Errorf("invalid pattern %q", listMatch)
			}
			return withVault(cmd, func(env *vaultEnv) error {
				out := cmd.OutOrStdout()
				shown := 0
				for i, s := range env.vault.Spaces() {
					if listMatch != "" {
						if ok, _ := doublestar.Match(listMatch, s.Name); !ok {
							continue
						}
					}
					fmt.Fprintf(out, "%3d  %s\n", i, ui.Name.Sprint(s.Name))
					shown++
				}
				if shown == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted.Sprint("no spaces"))
				}
				return nil
			})
		},
	}

	addCmd = &cobra.Command{
		Use:   "add NAME",
		Short: "Create a space",
		Long: `Creates a space called NAME protected by a new password. The content is
read from --file, or from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := spacevault.ValidateSpaceName(name); err != nil {
				return err
			}
			plaintext, err := readInput(cmd, addFile)
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			password, err := readNewPassword(terminal.PasswordEnv)
			if err != nil {
				return err
			}

			return withVault(cmd, func(env *vaultEnv) error {
				s, cleanup := startSpinner(cmd, "Encrypting space...")
				defer cleanup()

				session, err := env.vault.CreateSpace(cmd.Context(), name, password, plaintext)
				if err != nil {
					return err
				}
				defer session.Close()
				index, _ := session.Index()

				s.FinalMSG = success("Created space %s at index %d", ui.Name.Sprint(name), index)
				return nil
			})
		},
	}

	showCmd = &cobra.Command{
		Use:   "show INDEX",
		Short: "Print the content of a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			password, err := readPassword()
			if err != nil {
				return err
			}

			return withVault(cmd, func(env *vaultEnv) error {
				session, err := unlock(cmd, env, index, password)
				if err != nil {
					return err
				}
				defer session.Close()

				content, err := session.Content()
				if err != nil {
					return err
				}
				env.remember(content.Name)
				_, err = cmd.OutOrStdout().Write(content.Plaintext)
				return err
			})
		},
	}

	editCmd = &cobra.Command{
		Use:   "edit INDEX",
		Short: "Replace the content of a space",
		Long:  `Replaces the content of the space at INDEX with --file, or with stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			plaintext, err := readInput(cmd, editFile)
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			password, err := readPassword()
			if err != nil {
				return err
			}

			return withVault(cmd, func(env *vaultEnv) error {
				session, err := unlock(cmd, env, index, password)
				if err != nil {
					return err
				}
				defer session.Close()

				if err := session.SetPlaintext(cmd.Context(), plaintext); err != nil {
					return err
				}
				name, _ := session.Name()
				env.remember(name)
				fmt.Fprintln(cmd.ErrOrStderr(), success("Updated space %s", ui.Name.Sprint(name)))
				return nil
			})
		},
	}

	renameCmd = &cobra.Command{
		Use:   "rename INDEX NAME",
		Short: "Rename a space",
		Long:  `Renames the space at INDEX. Names are not encrypted, so no password is needed.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withVault(cmd, func(env *vaultEnv) error {
				if err := env.vault.RenameSpace(cmd.Context(), index, args[1]); err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Renamed space %d to %s", index, ui.Name.Sprint(args[1])))
				return nil
			})
		},
	}

	removeCmd = &cobra.Command{
		Use:     "rm INDEX",
		Aliases: []string{"remove"},
		Short:   "Delete a space",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withVault(cmd, func(env *vaultEnv) error {
				spaces := env.vault.Spaces()
				if err := spacevault.ValidateIndex(index, len(spaces)); err != nil {
					return describe(err)
				}
				name := spaces[index].Name
				if !confirmed(cmd, fmt.Sprintf("Delete space %s?", ui.Name.Sprint(name))) {
					return errAborted
				}
				if err := env.vault.RemoveSpace(cmd.Context(), index); err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Deleted space %s", ui.Name.Sprint(name)))
				return nil
			})
		},
	}

	moveCmd = &cobra.Command{
		Use:   "move FROM TO",
		Short: "Move a space to another position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withVault(cmd, func(env *vaultEnv) error {
				if err := env.vault.MoveSpace(cmd.Context(), from, to); err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), success("Moved space %d to %d", from, to))
				return nil
			})
		},
	}
)

func init() {
	listCmd.Flags().StringVarP(&listMatch, "match", "m", "", "only list spaces whose name matches this glob")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "read the content from this file instead of stdin")
	editCmd.Flags().StringVarP(&editFile, "file", "f", "", "read the content from this file instead of stdin")
	removeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// unlock opens the space at index, showing a spinner for the key derivation
func unlock(cmd *cobra.Command, env *vaultEnv, index int, password []byte) (*spacevault.Session, error) {
	_, cleanup := startSpinner(cmd, "Unlocking space...")
	defer cleanup()

	session, err := env.vault.Unlock(cmd.Context(), index, password)
	if err != nil {
		return nil, describe(err)
	}
	return session, nil
}
