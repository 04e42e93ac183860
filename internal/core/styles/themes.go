package styles

import (
	"image/color"
	"slices"

	lipgloss "charm.land/lipgloss/v2"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the set of semantic colors the review screen and the CLI
// output draw from.
type Palette struct {
	Primary    color.Color
	Secondary  color.Color
	Foreground color.Color
	Muted      color.Color
	Background color.Color
	Surface    color.Color
	Success    color.Color
	Warning    color.Color
	Error      color.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// hexPalette lists a palette as hex strings in Palette field order.
type hexPalette [9]string

func (h hexPalette) palette() Palette {
	c := func(i int) color.Color { return lipgloss.Color(h[i]) }
	return Palette{
		Primary:    c(0),
		Secondary:  c(1),
		Foreground: c(2),
		Muted:      c(3),
		Background: c(4),
		Surface:    c(5),
		Success:    c(6),
		Warning:    c(7),
		Error:      c(8),
	}
}

// Box previews use Warning and the clamped box Success, so every theme keeps
// those two far apart in hue.
var themes = map[string]Palette{
	"tokyo-night":   hexPalette{"#7aa2f7", "#7dcfff", "#c0caf5", "#565f89", "#1a1b26", "#3b4261", "#9ece6a", "#e0af68", "#f7768e"}.palette(),
	"gruvbox":       hexPalette{"#83a598", "#8ec07c", "#ebdbb2", "#665c54", "#282828", "#3c3836", "#b8bb26", "#fabd2f", "#fb4934"}.palette(),
	"catppuccin":    hexPalette{"#89b4fa", "#94e2d5", "#cdd6f4", "#6c7086", "#1e1e2e", "#313244", "#a6e3a1", "#f9e2af", "#f38ba8"}.palette(),
	"high-contrast": hexPalette{"#00afff", "#00ffff", "#ffffff", "#a8a8a8", "#000000", "#303030", "#00ff00", "#ffff00", "#ff0000"}.palette(),
	"light":         hexPalette{"#1f6feb", "#0a7ea4", "#24292f", "#6e7781", "#ffffff", "#d0d7de", "#1a7f37", "#9a6700", "#cf222e"}.palette(),
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

func hexOf(c color.Color) *string {
	if c == nil {
		return nil
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return nil
	}
	hex := cc.Hex()
	return &hex
}

// GlamourStyle returns the glamour style used by inspect reports, derived
// from the active palette. Light themes start from glamour's light style.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	if bg, ok := colorful.MakeColor(ColorBackground); ok {
		if _, _, l := bg.Hcl(); l > 0.5 {
			cfg = glamourstyles.LightStyleConfig
		}
	}

	fg := hexOf(ColorForeground)
	primary := hexOf(ColorPrimary)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg
	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = hexOf(ColorSurface)
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	// Inspect reports are mostly shape tables and inline paths.
	cfg.Table.Color = fg
	cfg.Code.Color = hexOf(ColorSecondary)
	cfg.BlockQuote.Color = hexOf(ColorMuted)
	cfg.HorizontalRule.Color = hexOf(ColorMuted)

	return cfg
}
