package tui

import (
	"errors"
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/styles"
	"github.com/colonyops/relabel/internal/session"
)

const coarseSteps = 8

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	keys := m.keys

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.watch.stop()
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, keys.Undo):
		return m.dispatch(session.Undo{})
	}

	if m.complete || !m.hasItem {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Commit):
		return m.commit()
	case key.Matches(msg, keys.Keep):
		return m.dispatch(session.Keep{})
	case key.Matches(msg, keys.Reject):
		return m.dispatch(session.Reject{})
	case key.Matches(msg, keys.Skip):
		return m.dispatch(session.Skip{})
	case key.Matches(msg, keys.NextCode):
		m.cycleCode(1)
	case key.Matches(msg, keys.PrevCode):
		m.cycleCode(-1)
	case key.Matches(msg, keys.Anchor):
		if m.anchor == geometry.AnchorCenter {
			m.anchor = geometry.AnchorTopLeft
		} else {
			m.anchor = geometry.AnchorCenter
		}
	case key.Matches(msg, keys.Coarse):
		m.move(msg.String(), coarseSteps)
	case key.Matches(msg, keys.Up, keys.Down, keys.Left, keys.Right):
		m.move(msg.String(), 1)
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.opts.Codes) {
				m.codeIdx = i
			}
		}
	}
	return m, nil
}

func (m Model) commit() (tea.Model, tea.Cmd) {
	code, ok := m.selectedCode()
	if !ok {
		return m, m.toasts.push(levelError, "no code selected")
	}
	return m.dispatch(session.Commit{Code: code.Token, Point: m.point, Anchor: m.anchor})
}

func (m *Model) cycleCode(delta int) {
	n := len(m.opts.Codes)
	if n == 0 {
		return
	}
	m.codeIdx = ((m.codeIdx+delta)%n + n) % n
}

// move shifts the point by steps canvas cells in the direction named by
// keystroke.
func (m *Model) move(keystroke string, steps int) {
	dx, dy := m.canvas.step()
	p := m.point
	switch keystroke {
	case "up", "k", "shift+up", "K":
		p.Y -= dy * steps
	case "down", "j", "shift+down", "J":
		p.Y += dy * steps
	case "left", "h", "shift+left", "H":
		p.X -= dx * steps
	case "right", "l", "shift+right", "L":
		p.X += dx * steps
	}
	m.point = m.canvas.clampPoint(p)
}

// pointAtScreen maps a terminal cell to an image pixel. ok is false when
// the cell is outside the canvas grid.
func (m Model) pointAtScreen(mouse tea.Mouse) (geometry.Point, bool) {
	if !m.hasItem || m.complete {
		return geometry.Point{}, false
	}
	col := mouse.X - canvasLeft
	row := mouse.Y - canvasTop
	if col < 0 || row < 0 || col >= m.canvas.cols || row >= m.canvas.rows {
		return geometry.Point{}, false
	}
	return m.canvas.pointAt(col, row), true
}

func (m Model) handleClick(mouse tea.Mouse) (tea.Model, tea.Cmd) {
	if mouse.Button != tea.MouseLeft {
		return m, nil
	}
	p, ok := m.pointAtScreen(mouse)
	if !ok {
		return m, nil
	}
	m.point = p
	return m.commit()
}

func (m Model) handleDispatched(msg dispatchedMsg) (tea.Model, tea.Cmd) {
	m.busy = false

	if msg.err != nil {
		if errors.Is(msg.err, session.ErrSessionComplete) {
			m.complete = true
		}
		return m, m.toasts.push(levelError, msg.err.Error())
	}

	out := msg.out
	var text string
	switch {
	case out.NothingToUndo:
		return m, m.toasts.push(levelInfo, "nothing to undo")
	case out.Undone:
		text = fmt.Sprintf("%s undid %s of %s", styles.IconUndo, out.Kind, out.Item.Name())
	case out.Kind == history.Commit:
		text = fmt.Sprintf("%s %s at %s", styles.IconCommit, out.Item.Name(), out.Region)
	default:
		text = fmt.Sprintf("%s %s %s", styles.IconFor(string(out.Kind)), out.Kind, out.Item.Name())
	}

	m.loadItem()
	cmds := []tea.Cmd{m.toasts.push(levelSuccess, text)}
	if m.hasItem {
		cmds = append(cmds, m.watch.follow(m.ctx, m.item.SidecarPath))
	}
	return m, tea.Batch(cmds...)
}
