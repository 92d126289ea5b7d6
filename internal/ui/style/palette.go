package style

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Buys / success
	Red     = lipgloss.Color("#FF5555") // Errors
	Blue    = lipgloss.Color("#3B82F6") // Info

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Buy: Green,
	}
}

// Styles used by the feed viewer.
type Styles struct {
	Title     lipgloss.Style
	Header    lipgloss.Style
	Status    lipgloss.Style
	Running   lipgloss.Style
	Stopped   lipgloss.Style
	Error     lipgloss.Style
	Notice    lipgloss.Style
	Container lipgloss.Style
	LogPane   lipgloss.Style
	LogTime   lipgloss.Style
	LogError  lipgloss.Style
	LogWarn   lipgloss.Style
	LogInfo   lipgloss.Style
}

// DefaultStyles builds Styles from the default palette.
func DefaultStyles() Styles {
	p := DefaultPalette()
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		Header: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true),
		Status: lipgloss.NewStyle().
			Foreground(p.TextSecondary),
		Running: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),
		Stopped: lipgloss.NewStyle().
			Foreground(p.Warning).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		Notice: lipgloss.NewStyle().
			Foreground(p.Info),
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),
		LogPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Info).
			Padding(0, 1),
		LogTime: lipgloss.NewStyle().
			Foreground(p.TextMuted),
		LogError: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		LogWarn: lipgloss.NewStyle().
			Foreground(p.Warning),
		LogInfo: lipgloss.NewStyle().
			Foreground(p.Info),
	}
}
