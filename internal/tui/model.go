package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/internal/store/jsonfile"
)

// Engine is the part of session.Engine the review screen drives.
type Engine interface {
	Current() (catalog.WorkItem, bool)
	Stats() session.Stats
	Preview(p geometry.Point, anchor geometry.Anchor) (desired, clamped geometry.Region, err error)
	ImageSize() (geometry.Size, error)
	Dispatch(ctx context.Context, cmd session.Command) (session.Outcome, error)
}

// Options configures the review screen.
type Options struct {
	Engine         Engine
	Codes          []label.Code
	DefaultCode    string
	Anchor         geometry.Anchor
	AnnotationsKey string
	// Watcher reloads the current item's annotations when its sidecar
	// changes on disk. Optional.
	Watcher *jsonfile.FileWatcher
}

// Layout rows above the canvas grid: title, code bar, canvas border.
const (
	headerHeight = 2
	canvasLeft   = 1
	canvasTop    = headerHeight + 1
)

// dispatchedMsg carries the result of a command run off the update loop.
type dispatchedMsg struct {
	out session.Outcome
	err error
}

// Model is the bubbletea model of the review screen.
type Model struct {
	ctx  context.Context
	opts Options
	keys KeyMap

	help     help.Model
	progress progress.Model
	toasts   toasts
	watch    *sidecarWatch

	width  int
	height int

	item     catalog.WorkItem
	hasItem  bool
	imgSize  geometry.Size
	canvas   canvas
	shapes   []sidecar.Shape
	point    geometry.Point
	codeIdx  int
	anchor   geometry.Anchor
	busy     bool
	complete bool
	quitting bool
}

// New creates the review model positioned on the engine's current item.
func New(ctx context.Context, opts Options) Model {
	m := Model{
		ctx:      ctx,
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithWidth(40), progress.WithoutPercentage()),
		watch:    newSidecarWatch(opts.Watcher),
		width:    80,
		height:   24,
		anchor:   opts.Anchor,
	}
	if m.anchor == "" {
		m.anchor = geometry.AnchorCenter
	}
	for i, c := range opts.Codes {
		if c.Token == opts.DefaultCode {
			m.codeIdx = i
		}
	}
	m.loadItem()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if !m.hasItem {
		return nil
	}
	return m.watch.follow(m.ctx, m.item.SidecarPath)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(msg.Width)
		m.progress.SetWidth(max(msg.Width-24, 10))
		m.layout()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleClick(msg.Mouse())

	case tea.MouseMotionMsg:
		if p, ok := m.pointAtScreen(msg.Mouse()); ok {
			m.point = p
		}
		return m, nil

	case dispatchedMsg:
		return m.handleDispatched(msg)

	case sidecarChangedMsg:
		if m.hasItem && msg.path != "" {
			m.loadShapes()
		}
		return m, m.watch.next(msg)

	case toastTickMsg:
		return m, m.toasts.tick(toastTickInterval)
	}

	return m, nil
}

// loadItem refreshes everything derived from the engine's current item.
func (m *Model) loadItem() {
	m.item, m.hasItem = m.opts.Engine.Current()
	m.complete = m.opts.Engine.Stats().Complete
	m.shapes = nil
	if !m.hasItem {
		m.watch.stop()
		return
	}

	size, err := m.opts.Engine.ImageSize()
	if err != nil {
		log.Warn().Err(err).Str("item", m.item.ID).Msg("read image size")
		size = geometry.Size{W: 1, H: 1}
	}
	m.imgSize = size
	m.layout()
	m.point = geometry.Point{X: size.W / 2, Y: size.H / 2}
	m.loadShapes()
}

func (m *Model) loadShapes() {
	rec, err := sidecar.Read(m.item.SidecarPath)
	if err != nil {
		if !errors.Is(err, sidecar.ErrMissing) {
			log.Debug().Err(err).Str("item", m.item.ID).Msg("read sidecar for display")
		}
		m.shapes = nil
		return
	}
	m.shapes = sidecar.Shapes(rec, m.opts.AnnotationsKey)
}

// layout sizes the canvas to what is left after the header and footer.
func (m *Model) layout() {
	footer := m.footerHeight()
	maxRows := m.height - headerHeight - 2 - footer
	maxCols := m.width - 2
	m.canvas = newCanvas(m.imgSize, maxCols, maxRows)
}

func (m Model) selectedCode() (label.Code, bool) {
	if m.codeIdx < 0 || m.codeIdx >= len(m.opts.Codes) {
		return label.Code{}, false
	}
	return m.opts.Codes[m.codeIdx], true
}

// dispatch runs cmd off the update loop. Only one command runs at a time.
func (m Model) dispatch(cmd session.Command) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	ctx, engine := m.ctx, m.opts.Engine
	return m, func() tea.Msg {
		out, err := engine.Dispatch(ctx, cmd)
		return dispatchedMsg{out: out, err: err}
	}
}
