package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// forcedVariant pins the theme to one variant so the settings panel's
// light/dark choice wins over the OS preference.
type forcedVariant struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

func (f *forcedVariant) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return f.Theme.Color(name, f.variant)
}

func themeForName(name string) fyne.Theme {
	variant := theme.VariantLight
	if name == "dark" {
		variant = theme.VariantDark
	}
	return &forcedVariant{Theme: theme.DefaultTheme(), variant: variant}
}
