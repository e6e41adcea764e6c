package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/absfs/spacevault"
	"github.com/absfs/spacevault/internal/configs"
	"github.com/absfs/spacevault/internal/osfs"
	"github.com/absfs/spacevault/internal/terminal"
	"github.com/absfs/spacevault/internal/ui"
)

const preferencesPath = "/preferences.json"

// Preferences remembers CLI state between runs. It lives next to the vault
// file and holds nothing secret.
type Preferences struct {
	LastSpace  string    `json:"lastSpace,omitempty"`
	LastOpened time.Time `json:"lastOpened,omitempty"`
}

// vaultEnv is an opened vault together with what it was opened from
type vaultEnv struct {
	vault    *spacevault.Vault
	fs       *osfs.FileSystem
	settings *configs.Settings
	config   *spacevault.Config
	prefs    *spacevault.PreferenceStore[Preferences]
}

func loadSettings() (*configs.Settings, error) {
	path := configPath
	if path == "" {
		p, err := configs.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	Logger.Debugf("Loading settings from %s", path)
	return configs.Load(path)
}

// withVault opens the vault, runs fn and closes it again. Edits are written
// in the background, so closing waits for them and reports any that failed.
func withVault(cmd *cobra.Command, fn func(env *vaultEnv) error) (err error) {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	dir := settings.VaultDir
	if vaultDir != "" {
		dir = vaultDir
	}
	if dir == "" {
		return fmt.Errorf("no vault directory configured; use --vault or set vault_dir in the settings")
	}

	config, err := settings.VaultConfig()
	if err != nil {
		return err
	}
	config.WatchInterval = -1
	config.Logger = Logger

	fs, err := osfs.New(dir)
	if err != nil {
		return fmt.Errorf("failed to open vault directory %s: %w", dir, err)
	}
	v, err := spacevault.New(fs, config)
	if err != nil {
		return err
	}
	if err := v.Open(cmd.Context()); err != nil {
		return err
	}
	defer func() {
		v.Close()
		if v.IsSyncing() && err == nil {
			err = fmt.Errorf("changes could not be saved to %s", fs.Root())
		}
	}()

	prefs, err := spacevault.NewPreferenceStore(fs, preferencesPath, func() Preferences { return Preferences{} }, Logger)
	if err != nil {
		return err
	}

	Logger.Infof("Opened vault in %s", ui.Path.Sprint(fs.Root()))
	return fn(&vaultEnv{vault: v, fs: fs, settings: settings, config: config, prefs: prefs})
}

// remember records name as the last space opened
func (env *vaultEnv) remember(name string) {
	if _, err := env.prefs.Update(func(p Preferences) Preferences {
		p.LastSpace = name
		p.LastOpened = time.Now()
		return p
	}); err != nil {
		Logger.Warnf("Failed to save preferences: %v", err)
	}
}

// startSpinner shows progress on stderr while a slow step runs. The spinner
// only animates on a terminal and outside verbose mode. The returned
// cleanup stops it and prints FinalMSG, if set.
func startSpinner(cmd *cobra.Command, message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := !verbose && !debug && terminal.IsTerminal(os.Stderr)
	if animate {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		finalMsg := s.FinalMSG
		s.FinalMSG = ""
		if animate {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Fprint(cmd.ErrOrStderr(), ui.EnsureNewline(finalMsg))
		}
	}
	return s, cleanup
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid space index %q", arg)
	}
	return i, nil
}

// readInput reads file, or stdin when file is empty or "-"
func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func readPassword() ([]byte, error) {
	return terminal.ReadPassword(terminal.PasswordEnv, "Password: ")
}

func readNewPassword(env string) ([]byte, error) {
	return terminal.ReadNewPassword(env, "New password: ")
}

// describe turns library errors into messages for the terminal
func describe(err error) error {
	switch {
	case errors.Is(err, spacevault.ErrIncorrectPassword):
		return errors.New("incorrect password")
	case errors.Is(err, spacevault.ErrSpaceNotFound):
		return fmt.Errorf("no such space: %w", err)
	}
	return err
}

func success(msg string, args ...any) string {
	return ui.Success.Sprint("✓") + " " + fmt.Sprintf(msg, args...)
}
