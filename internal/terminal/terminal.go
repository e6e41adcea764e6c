// Package terminal reads passwords for the spacevault CLI
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	// PasswordEnv supplies the password non-interactively
	PasswordEnv = "SPACEVAULT_PASSWORD"

	// NewPasswordEnv supplies the new password for a password change
	NewPasswordEnv = "SPACEVAULT_NEW_PASSWORD"
)

// ReadPassword returns the password from env, or prompts for it on the
// terminal without echo. Returns an error if neither is available.
func ReadPassword(env, prompt string) ([]byte, error) {
	if pw, ok := os.LookupEnv(env); ok {
		return []byte(pw), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read password: stdin is not a terminal and %s is not set", env)
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

// ReadNewPassword reads a password twice and checks both entries match.
// The env variable, when set, is used once without confirmation.
func ReadNewPassword(env, prompt string) ([]byte, error) {
	if pw, ok := os.LookupEnv(env); ok {
		return []byte(pw), nil
	}

	pw, err := ReadPassword(env, prompt)
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword(env, "Confirm password: ")
	if err != nil {
		return nil, err
	}
	if string(pw) != string(confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return pw, nil
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Confirm asks a yes/no question on out and reads the answer from in
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
