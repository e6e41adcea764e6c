// Package cli implements the spacevault command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/absfs/spacevault/internal/logging"
	"github.com/absfs/spacevault/internal/ui"
)

var (
	verbose    bool
	debug      bool
	configPath string
	vaultDir   string
	Logger     logging.Logger

	rootCmd = &cobra.Command{
		Use:   "spacevault",
		Short: "Password protected spaces in a single vault file",
		Long: `spacevault keeps any number of encrypted spaces in one vault file.
Each space has its own password; a space's name is visible without it, its
content is not.

Settings are read from the user config directory, or from --config. Passwords
are prompted for on the terminal, or taken from SPACEVAULT_PASSWORD and
SPACEVAULT_NEW_PASSWORD when set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logging.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Running %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if ui.NoColor() {
				fmt.Fprintln(out, figure.NewFigure("spacevault", "", true).String())
			} else {
				fmt.Fprintln(out, figure.NewColorFigure("spacevault", "", "green", true).ColorString())
			}
			fmt.Fprintf(out, "Run %s to see available commands.\n", ui.Code.Sprint("spacevault --help"))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", "directory holding the vault file (overrides the settings)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

// Execute runs the command line with ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}
