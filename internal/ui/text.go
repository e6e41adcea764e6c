// Package ui holds the semantic text styles used by the spacevault CLI.
// Styles fall back to plain text markers when colour is disabled.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter styles a piece of output by what it means rather than by colour
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f Formatter) Sprint(a ...any) string {
	return f.style(fmt.Sprint(a...))
}

func (f Formatter) Sprintf(format string, a ...any) string {
	return f.style(fmt.Sprintf(format, a...))
}

func (f Formatter) style(text string) string {
	if NoColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// NoColor reports whether output should be plain. NO_COLOR
// (https://no-color.org/) and color's own terminal detection both count.
func NoColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

// EnsureNewline appends a newline unless s already ends with one
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

var (
	// Name formats space names. 'Quoted' without colour.
	Name = Formatter{color.New(color.FgCyan), "'", "'"}

	// Code formats commands the user can run. `Backticks` without colour.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file paths
	Path = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Muted formats secondary details. (Parenthesised) without colour.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)
