// Package output renders human readable run progress and results.
package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Case     *color.Color
	Mode     *color.Color
	Instance *color.Color
	Wait     *color.Color
	Pass     *color.Color
	Fail     *color.Color
	Warning  *color.Color
	Detail   *color.Color
	Summary  *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Case:     color.New(color.FgYellow, color.ReverseVideo),
		Mode:     color.New(color.FgYellow, color.Bold),
		Instance: color.New(color.FgBlue),
		Wait:     color.New(color.FgCyan),
		Pass:     color.New(color.FgGreen, color.Bold),
		Fail:     color.New(color.FgRed, color.Bold),
		Warning:  color.New(color.FgYellow),
		Detail:   color.New(color.FgRed),
		Summary:  color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	for _, c := range []*color.Color{
		scheme.Case, scheme.Mode, scheme.Instance, scheme.Wait,
		scheme.Pass, scheme.Fail, scheme.Warning, scheme.Detail, scheme.Summary,
	} {
		c.DisableColor()
	}

	return scheme
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
