// Package theme defines the semantic terminal colors used by command
// output. Commands never name raw colors; they pick a semantic slot.
package theme

import "github.com/fatih/color"

// ColorScheme maps UI purposes to terminal colors.
type ColorScheme struct {
	Default   *color.Color
	Info      *color.Color
	Success   *color.Color
	Warning   *color.Color
	Error     *color.Color
	Highlight *color.Color
	Muted     *color.Color
}

// Colors is the active color scheme.
var Colors = ColorScheme{
	Default:   color.New(color.Reset),
	Info:      color.New(color.FgCyan),
	Success:   color.New(color.FgGreen),
	Warning:   color.New(color.FgYellow),
	Error:     color.New(color.FgRed),
	Highlight: color.New(color.FgBlue, color.Bold),
	Muted:     color.New(color.FgHiBlack),
}
