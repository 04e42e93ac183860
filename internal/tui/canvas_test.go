package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/pkg/tuitest"
)

func TestNewCanvas_KeepsAspect(t *testing.T) {
	tests := []struct {
		name     string
		img      geometry.Size
		maxCols  int
		maxRows  int
		wantCols int
		wantRows int
	}{
		{name: "width bound", img: geometry.Size{W: 1024, H: 768}, maxCols: 80, maxRows: 40, wantCols: 80, wantRows: 30},
		{name: "height bound", img: geometry.Size{W: 1024, H: 768}, maxCols: 200, maxRows: 30, wantCols: 80, wantRows: 30},
		{name: "tiny terminal", img: geometry.Size{W: 1024, H: 768}, maxCols: 0, maxRows: 0, wantCols: 1, wantRows: 1},
		{name: "unknown size", img: geometry.Size{}, maxCols: 20, maxRows: 10, wantCols: 20, wantRows: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCanvas(tt.img, tt.maxCols, tt.maxRows)
			assert.Equal(t, tt.wantCols, c.cols)
			assert.Equal(t, tt.wantRows, c.rows)
		})
	}
}

func TestCanvas_CellMapping(t *testing.T) {
	c := newCanvas(geometry.Size{W: 1024, H: 768}, 80, 40)

	col, row := c.cellAt(geometry.Point{X: 0, Y: 0})
	assert.Equal(t, [2]int{0, 0}, [2]int{col, row})

	col, row = c.cellAt(geometry.Point{X: 1023, Y: 767})
	assert.Equal(t, [2]int{79, 29}, [2]int{col, row})

	col, row = c.cellAt(geometry.Point{X: -50, Y: 5000})
	assert.Equal(t, [2]int{0, 29}, [2]int{col, row}, "out of range points clamp to the edge")

	// The center pixel of a cell maps back into the same cell.
	for _, cell := range [][2]int{{0, 0}, {40, 15}, {79, 29}} {
		p := c.pointAt(cell[0], cell[1])
		col, row := c.cellAt(p)
		assert.Equal(t, cell, [2]int{col, row})
	}

	dx, dy := c.step()
	assert.Equal(t, 12, dx)
	assert.Equal(t, 25, dy)
}

func TestCanvas_Grid(t *testing.T) {
	c := newCanvas(geometry.Size{W: 1000, H: 1000}, 10, 5)
	require.Equal(t, 10, c.cols)
	require.Equal(t, 5, c.rows)

	grid := c.grid(canvasLayers{
		shapes:  []sidecar.Shape{{Kind: sidecar.ShapeBox, Box: geometry.Region{X: 0, Y: 0, W: 1000, H: 1000}}},
		desired: geometry.Region{X: -100, Y: -100, W: 300, H: 300},
		clamped: geometry.Region{X: 0, Y: 0, W: 300, H: 300},
		point:   geometry.Point{X: 500, Y: 500},
	})

	assert.Equal(t, cellClamped, grid[0][0], "clamped box draws over shapes")
	assert.Equal(t, cellShape, grid[4][9], "shape outline on the far corner")
	assert.Equal(t, cellCrosshair, grid[2][5])
	assert.Equal(t, cellEmpty, grid[2][3])
}

func TestCanvas_OutlineIgnoresOffImageRegions(t *testing.T) {
	c := newCanvas(geometry.Size{W: 1000, H: 1000}, 10, 5)
	grid := c.grid(canvasLayers{
		desired: geometry.Region{X: 2000, Y: 2000, W: 10, H: 10},
		point:   geometry.Point{X: 0, Y: 0},
	})

	for _, row := range grid {
		for _, cell := range row {
			assert.NotEqual(t, cellDesired, cell)
		}
	}
}

func TestCanvas_Render(t *testing.T) {
	c := newCanvas(geometry.Size{W: 1000, H: 1000}, 10, 5)
	out := tuitest.StripANSI(c.render(canvasLayers{
		clamped: geometry.Region{X: 0, Y: 0, W: 300, H: 300},
		point:   geometry.Point{X: 500, Y: 500},
	}))

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7, "grid plus border")
	assert.Contains(t, lines[1], "███")
	assert.Contains(t, lines[3], "+")
}
