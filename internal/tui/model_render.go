package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/styles"
)

// View implements tea.Model.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	var content string
	if m.complete || !m.hasItem {
		content = m.renderComplete()
	} else {
		content = m.renderReview()
	}
	content = m.toasts.overlay(content, m.width, m.height)

	v := tea.NewView(content)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	v.WindowTitle = "relabel"
	return v
}

func (m Model) renderReview() string {
	stats := m.opts.Engine.Stats()
	desired, clamped, err := m.opts.Engine.Preview(m.point, m.anchor)
	if err != nil {
		at := geometry.Region{X: m.point.X, Y: m.point.Y}
		desired, clamped = at, at
	}

	title := styles.TitleStyle.Render(m.item.Name()) + " " +
		styles.MutedStyle.Render(fmt.Sprintf("%d/%d  %s", stats.Cursor+1, stats.Total, m.item.SourceCode))

	grid := m.canvas.render(canvasLayers{
		shapes:  m.shapes,
		desired: desired,
		clamped: clamped,
		point:   m.point,
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.renderCodeBar(),
		grid,
		m.renderStatus(clamped.String()),
		m.renderFooter(stats.Cursor, stats.Total),
	)
}

func (m Model) renderCodeBar() string {
	chips := make([]string, 0, len(m.opts.Codes))
	for i, c := range m.opts.Codes {
		text := c.Token
		if i < 9 {
			text = fmt.Sprintf("%d %s", i+1, c.Token)
		}
		if i == m.codeIdx {
			chips = append(chips, styles.CodeSelectedStyle.Render(text))
			continue
		}
		if c.Color != "" {
			chips = append(chips, styles.CodeChip(text, c.Color))
			continue
		}
		chips = append(chips, styles.CodeChipStyle.Render(text))
	}
	return strings.Join(chips, "")
}

func (m Model) renderStatus(region string) string {
	parts := []string{
		fmt.Sprintf("point %d,%d", m.point.X, m.point.Y),
		"box " + region,
		"anchor " + string(m.anchor),
	}
	if code, ok := m.selectedCode(); ok {
		parts = append(parts, "→ "+code.DirName)
	}
	if m.busy {
		parts = append(parts, "working…")
	}
	return styles.StatusBarStyle.Width(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter(done, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	bar := m.progress.ViewAs(pct) + " " + styles.MutedStyle.Render(fmt.Sprintf("%d/%d", done, total))
	return bar + "\n" + m.help.View(m.keys)
}

// footerHeight is the number of rows below the canvas.
func (m Model) footerHeight() int {
	// status + progress + help
	return 2 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) renderComplete() string {
	stats := m.opts.Engine.Stats()

	var b strings.Builder
	b.WriteString(styles.CompleteStyle.Render(styles.IconDone + " review complete"))
	b.WriteString("\n\n")
	for _, kind := range history.Kinds {
		k := string(kind)
		fmt.Fprintf(&b, "%s %-7s %d\n", styles.IconFor(k), k, stats.Counters[k])
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render("u undo the last decision · q quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
