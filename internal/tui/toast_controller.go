package tui

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/relabel/internal/core/styles"
)

const (
	defaultToastTTL   = 4 * time.Second
	defaultMaxToasts  = 3
	toastTickInterval = 100 * time.Millisecond
	toastWidth        = 48
)

type toastLevel int

const (
	levelInfo toastLevel = iota
	levelSuccess
	levelError
)

type toast struct {
	level     toastLevel
	message   string
	remaining time.Duration
}

type toastTickMsg time.Time

func scheduleToastTick() tea.Cmd {
	return tea.Tick(toastTickInterval, func(t time.Time) tea.Msg {
		return toastTickMsg(t)
	})
}

// toasts manages short-lived status messages.
type toasts struct {
	items   []toast
	ticking bool
}

// push adds a message, evicting the oldest beyond defaultMaxToasts. It
// returns a tick command when the countdown is not running yet.
func (c *toasts) push(level toastLevel, msg string) tea.Cmd {
	c.items = append(c.items, toast{level: level, message: msg, remaining: defaultToastTTL})
	if len(c.items) > defaultMaxToasts {
		c.items = c.items[len(c.items)-defaultMaxToasts:]
	}
	if c.ticking {
		return nil
	}
	c.ticking = true
	return scheduleToastTick()
}

// tick decrements every TTL by d and drops expired messages. It returns the
// next tick while messages remain.
func (c *toasts) tick(d time.Duration) tea.Cmd {
	alive := c.items[:0]
	for _, t := range c.items {
		t.remaining -= d
		if t.remaining > 0 {
			alive = append(alive, t)
		}
	}
	c.items = alive

	if len(c.items) == 0 {
		c.ticking = false
		return nil
	}
	return scheduleToastTick()
}

func (c *toasts) view() string {
	if len(c.items) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(c.items))
	for _, t := range c.items {
		var style lipgloss.Style
		switch t.level {
		case levelError:
			style = styles.ToastErrorStyle
		case levelSuccess:
			style = styles.ToastSuccessStyle
		default:
			style = styles.ToastInfoStyle
		}
		rendered = append(rendered, style.Width(toastWidth).Render(t.message))
	}
	return strings.Join(rendered, "\n")
}

// overlay composites the toasts over background in the lower-right corner.
func (c *toasts) overlay(background string, width, height int) string {
	content := c.view()
	if content == "" {
		return background
	}

	bgLayer := lipgloss.NewLayer(background)
	toastLayer := lipgloss.NewLayer(content)

	x := max(width-lipgloss.Width(content)-1, 0)
	y := max(height-lipgloss.Height(content)-1, 0)
	toastLayer.X(x).Y(y).Z(2)

	return lipgloss.NewCompositor(bgLayer, toastLayer).Render()
}
