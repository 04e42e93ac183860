// Package styles provides shared lipgloss v2 styles for CLI and TUI components.
package styles

import (
	"fmt"
	"image/color"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Exported color aliases for convenience.
var (
	ColorPrimary    color.Color
	ColorSecondary  color.Color
	ColorForeground color.Color
	ColorMuted      color.Color
	ColorBackground color.Color
	ColorSurface    color.Color
	ColorSuccess    color.Color
	ColorWarning    color.Color
	ColorError      color.Color
)

// Style exports.
var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	DividerStyle       lipgloss.Style
	AddedStyle         lipgloss.Style
	RemovedStyle       lipgloss.Style

	// Review screen.
	TitleStyle        lipgloss.Style
	ItemStyle         lipgloss.Style
	MutedStyle        lipgloss.Style
	CanvasStyle       lipgloss.Style
	PreviewBoxStyle   lipgloss.Style
	ClampedBoxStyle   lipgloss.Style
	ShapeStyle        lipgloss.Style
	CrosshairStyle    lipgloss.Style
	StatusBarStyle    lipgloss.Style
	CodeChipStyle     lipgloss.Style
	CodeSelectedStyle lipgloss.Style
	CompleteStyle     lipgloss.Style

	// Toasts.
	ToastInfoStyle    lipgloss.Style
	ToastSuccessStyle lipgloss.Style
	ToastErrorStyle   lipgloss.Style

	ModalStyle      lipgloss.Style
	ModalTitleStyle lipgloss.Style
	ModalHelpStyle  lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorForeground = p.Foreground
	ColorMuted = p.Muted
	ColorBackground = p.Background
	ColorSurface = p.Surface
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	DividerStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	AddedStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	RemovedStyle = lipgloss.NewStyle().Foreground(ColorError)

	TitleStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	ItemStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	MutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	CanvasStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSurface)
	PreviewBoxStyle = lipgloss.NewStyle().
		Foreground(ColorWarning)
	ClampedBoxStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true)
	ShapeStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary)
	CrosshairStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Background(ColorSurface).
		Padding(0, 1)
	CodeChipStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(ColorMuted)
	CodeSelectedStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorPrimary).
		Foreground(ColorBackground).
		Bold(true)
	CompleteStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true)

	ToastInfoStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	ToastSuccessStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess)
	ToastErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)
	ModalTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorForeground)
	ModalHelpStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		MarginTop(1)
}

// UseTheme activates a built-in theme by name. An empty name selects
// DefaultTheme.
func UseTheme(name string) error {
	if name == "" {
		name = DefaultTheme
	}
	p, ok := GetPalette(name)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", name, ThemeNames())
	}
	SetTheme(p)
	return nil
}

// CodeChip renders a code token on its configured color. The text color is
// picked for contrast; an invalid hex falls back to the plain chip style.
func CodeChip(token, hex string) string {
	bg, err := colorful.Hex(hex)
	if err != nil {
		return CodeChipStyle.Render(token)
	}

	fg := lipgloss.Color("#000000")
	if _, _, l := bg.Hcl(); l < 0.6 {
		fg = lipgloss.Color("#ffffff")
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Background(lipgloss.Color(bg.Hex())).
		Foreground(fg).
		Render(token)
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
