package secureterm

import "image/color"

// Color is the color of a cell foreground or background as it appears on the
// wire: either the terminal default, one of the 16 ANSI colors, a 256-palette
// index, or a 24-bit RGB triple. Resolution to a displayable value happens
// only in ResolveColor, never inside the buffer or parser.
type Color interface {
	isColor()
}

// DefaultColor selects the terminal default foreground or background.
type DefaultColor struct{}

// AnsiColor selects one of the 16 standard ANSI colors (0-7 normal, 8-15 bright).
type AnsiColor struct {
	Index uint8 // 0-15
}

// IndexedColor selects a color from the 256-color palette.
type IndexedColor struct {
	Index uint8 // 0-255
}

// RGBColor is a 24-bit truecolor value.
type RGBColor struct {
	R, G, B uint8
}

func (DefaultColor) isColor() {}
func (AnsiColor) isColor()    {}
func (IndexedColor) isColor() {}
func (RGBColor) isColor()     {}

// DefaultPalette is the standard 256-color palette: 16 named colors (0-15),
// 216 color cube (16-231), 24 grayscale (232-255).
var DefaultPalette = [256]color.RGBA{
	// Standard colors (0-7)
	{0, 0, 0, 255},       // Black
	{205, 49, 49, 255},   // Red
	{13, 188, 121, 255},  // Green
	{229, 229, 16, 255},  // Yellow
	{36, 114, 200, 255},  // Blue
	{188, 63, 188, 255},  // Magenta
	{17, 168, 205, 255},  // Cyan
	{229, 229, 229, 255}, // White

	// Bright colors (8-15)
	{102, 102, 102, 255}, // Bright Black
	{241, 76, 76, 255},   // Bright Red
	{35, 209, 139, 255},  // Bright Green
	{245, 245, 67, 255},  // Bright Yellow
	{59, 142, 234, 255},  // Bright Blue
	{214, 112, 214, 255}, // Bright Magenta
	{41, 184, 219, 255},  // Bright Cyan
	{255, 255, 255, 255}, // Bright White

	// 216 color cube (16-231) and grayscale (232-255) are generated in init.
}

func init() {
	// Generate 216 color cube (16-231)
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				DefaultPalette[i] = color.RGBA{
					R: uint8(r * 51),
					G: uint8(g * 51),
					B: uint8(b * 51),
					A: 255,
				}
				i++
			}
		}
	}

	// Generate grayscale (232-255)
	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		DefaultPalette[232+j] = color.RGBA{gray, gray, gray, 255}
	}
}

// DefaultForeground is the default text color (light gray).
var DefaultForeground = color.RGBA{229, 229, 229, 255}

// DefaultBackground is the default background color (black).
var DefaultBackground = color.RGBA{0, 0, 0, 255}

// Theme overrides the default colors used during resolution.
type Theme struct {
	Foreground color.RGBA
	Background color.RGBA
	Palette    [256]color.RGBA
}

// DefaultTheme returns a theme populated with the standard palette and
// default foreground/background.
func DefaultTheme() *Theme {
	return &Theme{
		Foreground: DefaultForeground,
		Background: DefaultBackground,
		Palette:    DefaultPalette,
	}
}

// ResolveColor converts a Color to a displayable RGBA value. A nil theme
// resolves against DefaultPalette and the package default foreground and
// background. fg selects which default a DefaultColor resolves to.
func ResolveColor(c Color, theme *Theme, fg bool) color.RGBA {
	defaultFg := DefaultForeground
	defaultBg := DefaultBackground
	palette := &DefaultPalette
	if theme != nil {
		defaultFg = theme.Foreground
		defaultBg = theme.Background
		palette = &theme.Palette
	}

	switch v := c.(type) {
	case AnsiColor:
		if v.Index < 16 {
			return palette[v.Index]
		}
	case IndexedColor:
		return palette[v.Index]
	case RGBColor:
		return color.RGBA{R: v.R, G: v.G, B: v.B, A: 255}
	}

	if fg {
		return defaultFg
	}
	return defaultBg
}
