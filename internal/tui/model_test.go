package tui

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/pkg/tuitest"
)

var testBox = geometry.Size{W: 224, H: 224}

type fakeEngine struct {
	items  []catalog.WorkItem
	cursor int
	size   geometry.Size
	cmds   []session.Command
	err    error
	undo   []int
}

func newFakeEngine(n int) *fakeEngine {
	e := &fakeEngine{size: geometry.Size{W: 1024, H: 768}}
	for i := range n {
		name := []string{"dog_A1_001", "dog_A2_002", "dog_A3_003"}[i%3]
		e.items = append(e.items, catalog.WorkItem{
			ID:          "dog/" + name + ".jpg",
			PrimaryPath: "/nonexistent/dog/" + name + ".jpg",
			SidecarPath: "/nonexistent/dog/" + name + ".json",
			SourceCode:  name[4:6],
		})
	}
	return e
}

func (e *fakeEngine) Current() (catalog.WorkItem, bool) {
	if e.cursor >= len(e.items) {
		return catalog.WorkItem{}, false
	}
	return e.items[e.cursor], true
}

func (e *fakeEngine) Stats() session.Stats {
	return session.Stats{
		Cursor:   e.cursor,
		Total:    len(e.items),
		Counters: map[string]int{"commit": len(e.undo)},
		Complete: e.cursor >= len(e.items),
	}
}

func (e *fakeEngine) Preview(p geometry.Point, a geometry.Anchor) (geometry.Region, geometry.Region, error) {
	return geometry.Desired(p, a, testBox), geometry.Place(p, a, e.size, testBox), nil
}

func (e *fakeEngine) ImageSize() (geometry.Size, error) { return e.size, nil }

func (e *fakeEngine) Dispatch(_ context.Context, cmd session.Command) (session.Outcome, error) {
	e.cmds = append(e.cmds, cmd)
	if e.err != nil {
		return session.Outcome{}, e.err
	}

	if _, ok := cmd.(session.Undo); ok {
		if len(e.undo) == 0 {
			return session.Outcome{NothingToUndo: true, Cursor: e.cursor}, nil
		}
		e.cursor = e.undo[len(e.undo)-1]
		e.undo = e.undo[:len(e.undo)-1]
		return session.Outcome{Kind: history.Commit, Undone: true, Item: e.items[e.cursor], Cursor: e.cursor}, nil
	}

	item := e.items[e.cursor]
	e.undo = append(e.undo, e.cursor)
	e.cursor++
	return session.Outcome{Kind: history.Commit, Item: item, Cursor: e.cursor, Complete: e.cursor >= len(e.items)}, nil
}

func testCodes() []label.Code {
	return []label.Code{
		{Token: "A1", DirName: "A1_구진_플라크"},
		{Token: "A2", DirName: "A2_비듬_각질_상피성잔고리"},
		{Token: "A7", DirName: "A7_정상", Normal: true},
	}
}

func newTestModel(t *testing.T, e *fakeEngine) Model {
	t.Helper()
	m := New(context.Background(), Options{
		Engine:         e,
		Codes:          testCodes(),
		DefaultCode:    "A7",
		Anchor:         geometry.AnchorCenter,
		AnnotationsKey: "labelingInfo",
	})
	return send(t, m, tuitest.WindowSize(100, 40))
}

// send delivers msg and returns the updated model, discarding commands.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	out, ok := updated.(Model)
	require.True(t, ok)
	return out
}

// run delivers msg, executes the resulting command synchronously and feeds
// a dispatch result back into the model.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	require.NotNil(t, cmd, "expected a command")
	result := cmd()
	d, ok := result.(dispatchedMsg)
	require.True(t, ok, "expected dispatchedMsg, got %T", result)
	return send(t, m, d)
}

func TestNew_StartsOnCurrentItem(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	assert.True(t, m.hasItem)
	assert.Equal(t, "dog/dog_A1_001.jpg", m.item.ID)
	assert.Equal(t, geometry.Point{X: 512, Y: 384}, m.point)
	code, ok := m.selectedCode()
	require.True(t, ok)
	assert.Equal(t, "A7", code.Token)
}

func TestEnter_CommitsSelectedCodeAtPoint(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	m = run(t, m, tuitest.KeyEnter())

	require.Len(t, e.cmds, 1)
	assert.Equal(t, session.Commit{Code: "A7", Point: geometry.Point{X: 512, Y: 384}, Anchor: geometry.AnchorCenter}, e.cmds[0])
	assert.Equal(t, "dog/dog_A2_002.jpg", m.item.ID)
	assert.False(t, m.busy)
	assert.Contains(t, tuitest.StripANSI(m.toasts.view()), "dog_A1_001.jpg")
}

func TestDecisionKeys(t *testing.T) {
	tests := []struct {
		name string
		key  rune
		want session.Command
	}{
		{name: "keep", key: 'p', want: session.Keep{}},
		{name: "reject", key: 'x', want: session.Reject{}},
		{name: "skip", key: 's', want: session.Skip{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newFakeEngine(3)
			m := newTestModel(t, e)

			run(t, m, tuitest.KeyPress(tt.key))

			require.Len(t, e.cmds, 1)
			assert.Equal(t, tt.want, e.cmds[0])
		})
	}
}

func TestCodeSelection(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	m = send(t, m, tuitest.KeyPress('1'))
	assert.Equal(t, 0, m.codeIdx)

	m = send(t, m, tuitest.KeyTab())
	assert.Equal(t, 1, m.codeIdx)

	m = send(t, m, tuitest.KeyPress('3'))
	m = send(t, m, tuitest.KeyTab())
	assert.Equal(t, 0, m.codeIdx, "tab wraps around")

	m = send(t, m, tuitest.KeyPress('9'))
	assert.Equal(t, 0, m.codeIdx, "digits past the table are ignored")

	run(t, m, tuitest.KeyEnter())
	assert.Equal(t, "A1", e.cmds[0].(session.Commit).Code)
}

func TestMovement(t *testing.T) {
	e := newFakeEngine(1)
	m := newTestModel(t, e)
	dx, dy := m.canvas.step()
	start := m.point

	m = send(t, m, tuitest.KeyRight())
	assert.Equal(t, start.X+dx, m.point.X)

	m = send(t, m, tuitest.KeyUp())
	assert.Equal(t, start.Y-dy, m.point.Y)

	m = send(t, m, tuitest.KeyShift(tea.KeyDown))
	assert.Equal(t, start.Y-dy+coarseSteps*dy, m.point.Y)

	for range 200 {
		m = send(t, m, tuitest.KeyPress('h'))
	}
	assert.Equal(t, 0, m.point.X, "point stays inside the image")
}

func TestAnchorToggle(t *testing.T) {
	e := newFakeEngine(1)
	m := newTestModel(t, e)

	m = send(t, m, tuitest.KeyPress('a'))
	assert.Equal(t, geometry.AnchorTopLeft, m.anchor)

	run(t, m, tuitest.KeyEnter())
	assert.Equal(t, geometry.AnchorTopLeft, e.cmds[0].(session.Commit).Anchor)
}

func TestClick_CommitsAtCell(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)
	want := m.canvas.pointAt(2, 3)

	run(t, m, tuitest.Click(canvasLeft+2, canvasTop+3))

	require.Len(t, e.cmds, 1)
	assert.Equal(t, want, e.cmds[0].(session.Commit).Point)
}

func TestClick_OutsideCanvasIgnored(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	_, cmd := m.Update(tuitest.Click(0, 0))
	assert.Nil(t, cmd)
	assert.Empty(t, e.cmds)
}

func TestMotion_MovesPoint(t *testing.T) {
	e := newFakeEngine(1)
	m := newTestModel(t, e)

	m = send(t, m, tuitest.Motion(canvasLeft, canvasTop))
	assert.Equal(t, m.canvas.pointAt(0, 0), m.point)
	assert.Empty(t, e.cmds)
}

func TestBusy_IgnoresSecondDecision(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	updated, cmd := m.Update(tuitest.KeyEnter())
	require.NotNil(t, cmd)
	m = updated.(Model)
	assert.True(t, m.busy)

	_, second := m.Update(tuitest.KeyPress('p'))
	assert.Nil(t, second)
}

func TestUndo(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	m = run(t, m, tuitest.KeyPress('u'))
	assert.Contains(t, tuitest.StripANSI(m.toasts.view()), "nothing to undo")

	m = run(t, m, tuitest.KeyEnter())
	m = run(t, m, tuitest.KeyPress('u'))
	assert.Equal(t, "dog/dog_A1_001.jpg", m.item.ID)
	assert.Contains(t, tuitest.StripANSI(m.toasts.view()), "undid commit")
}

func TestComplete(t *testing.T) {
	e := newFakeEngine(1)
	m := newTestModel(t, e)

	m = run(t, m, tuitest.KeyEnter())
	assert.True(t, m.complete)
	assert.False(t, m.hasItem)

	_, cmd := m.Update(tuitest.KeyPress('p'))
	assert.Nil(t, cmd, "decisions are ignored once complete")

	view := tuitest.StripANSI(m.View().Content)
	assert.Contains(t, view, "review complete")
	assert.Contains(t, view, "commit  1")

	m = run(t, m, tuitest.KeyPress('u'))
	assert.False(t, m.complete, "undo reopens the session")
}

func TestDispatchError_ShowsToast(t *testing.T) {
	e := newFakeEngine(2)
	e.err = session.ErrMissingSidecar
	m := newTestModel(t, e)

	m = run(t, m, tuitest.KeyEnter())

	assert.Equal(t, "dog/dog_A1_001.jpg", m.item.ID)
	assert.Contains(t, tuitest.StripANSI(m.toasts.view()), session.ErrMissingSidecar.Error())
}

func TestView_RendersReview(t *testing.T) {
	e := newFakeEngine(3)
	m := newTestModel(t, e)

	v := m.View()
	assert.True(t, v.AltScreen)
	assert.Equal(t, tea.MouseModeAllMotion, v.MouseMode)

	content := tuitest.StripANSI(v.Content)
	assert.Contains(t, content, "dog_A1_001.jpg")
	assert.Contains(t, content, "1/3")
	assert.Contains(t, content, "A7_정상")
	assert.Contains(t, content, "+")
}

func TestQuit(t *testing.T) {
	e := newFakeEngine(1)
	m := newTestModel(t, e)

	updated, cmd := m.Update(tuitest.KeyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, updated.(Model).quitting)
}
