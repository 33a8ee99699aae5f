package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode represents the color output mode
type ColorMode int

const (
	// ColorAuto enables colors if output is a TTY
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever disables colors
	ColorNever
)

// Colors holds the color functions for different output types
type Colors struct {
	Title    func(format string, a ...interface{}) string
	Station  func(format string, a ...interface{}) string
	Category func(format string, a ...interface{}) string
	URL      func(format string, a ...interface{}) string
	Header   func(format string, a ...interface{}) string
	Muted    func(format string, a ...interface{}) string
	Warn     func(format string, a ...interface{}) string
	Hint     func(format string, a ...interface{}) string
}

// NewColors creates a new Colors instance based on the color mode
func NewColors(mode ColorMode) *Colors {
	useColors := false
	switch mode {
	case ColorAlways:
		useColors = true
		color.NoColor = false
	case ColorNever:
		useColors = false
	case ColorAuto:
		useColors = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	if !useColors {
		noColor := func(format string, a ...interface{}) string {
			if len(a) == 0 {
				return format
			}
			return color.New().Sprintf(format, a...)
		}
		return &Colors{
			Title:    noColor,
			Station:  noColor,
			Category: noColor,
			URL:      noColor,
			Header:   noColor,
			Muted:    noColor,
			Warn:     noColor,
			Hint:     noColor,
		}
	}

	return &Colors{
		Title:    color.New(color.FgWhite, color.Bold).SprintfFunc(),
		Station:  color.New(color.FgCyan).SprintfFunc(),
		Category: color.New(color.FgMagenta).SprintfFunc(),
		URL:      color.New(color.FgBlue, color.Underline).SprintfFunc(),
		Header:   color.New(color.FgWhite, color.Bold).SprintfFunc(),
		Muted:    color.New(color.FgHiBlack).SprintfFunc(),
		Warn:     color.New(color.FgYellow, color.Bold).SprintfFunc(),
		Hint:     color.New(color.FgGreen).SprintfFunc(),
	}
}

// ParseColorMode parses a color mode string
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}
