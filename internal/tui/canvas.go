package tui

import (
	"strings"

	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/sidecar"
	"github.com/colonyops/relabel/internal/core/styles"
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellShape
	cellDesired
	cellClamped
	cellCrosshair
)

var cellRunes = map[cellKind]string{
	cellEmpty:     "·",
	cellShape:     "░",
	cellDesired:   "┄",
	cellClamped:   "█",
	cellCrosshair: "+",
}

// canvas maps an image onto a grid of terminal cells. Each cell covers a
// fixed-size block of pixels; the grid keeps the image's aspect ratio with
// cells assumed to be twice as tall as they are wide.
type canvas struct {
	img  geometry.Size
	cols int
	rows int
}

func newCanvas(img geometry.Size, maxCols, maxRows int) canvas {
	c := canvas{img: img, cols: max(maxCols, 1), rows: max(maxRows, 1)}
	if img.W <= 0 || img.H <= 0 {
		return c
	}

	// rows = cols * (H/W) / 2
	rows := c.cols * img.H / (img.W * 2)
	if rows > c.rows {
		c.cols = max(c.rows*img.W*2/img.H, 1)
	} else {
		c.rows = max(rows, 1)
	}
	return c
}

// cellAt returns the cell containing image pixel p.
func (c canvas) cellAt(p geometry.Point) (col, row int) {
	if c.img.W <= 0 || c.img.H <= 0 {
		return 0, 0
	}
	col = min(max(p.X*c.cols/c.img.W, 0), c.cols-1)
	row = min(max(p.Y*c.rows/c.img.H, 0), c.rows-1)
	return col, row
}

// pointAt returns the image pixel at the center of a cell. Cells outside
// the grid are clamped onto its edge.
func (c canvas) pointAt(col, row int) geometry.Point {
	col = min(max(col, 0), c.cols-1)
	row = min(max(row, 0), c.rows-1)
	return geometry.Point{
		X: (2*col + 1) * c.img.W / (2 * c.cols),
		Y: (2*row + 1) * c.img.H / (2 * c.rows),
	}
}

// step returns the pixel distance of one cell along each axis.
func (c canvas) step() (dx, dy int) {
	return max(c.img.W/c.cols, 1), max(c.img.H/c.rows, 1)
}

// clampPoint keeps p inside the image.
func (c canvas) clampPoint(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: min(max(p.X, 0), max(c.img.W-1, 0)),
		Y: min(max(p.Y, 0), max(c.img.H-1, 0)),
	}
}

type canvasLayers struct {
	shapes  []sidecar.Shape
	desired geometry.Region
	clamped geometry.Region
	point   geometry.Point
}

func (c canvas) grid(l canvasLayers) [][]cellKind {
	grid := make([][]cellKind, c.rows)
	for r := range grid {
		grid[r] = make([]cellKind, c.cols)
	}

	for _, s := range l.shapes {
		switch s.Kind {
		case sidecar.ShapeBox:
			c.outline(grid, s.Box, cellShape)
		case sidecar.ShapePolygon:
			for _, p := range s.Points {
				col, row := c.cellAt(p)
				grid[row][col] = max(grid[row][col], cellShape)
			}
		}
	}
	if l.desired != l.clamped {
		c.outline(grid, l.desired, cellDesired)
	}
	c.outline(grid, l.clamped, cellClamped)

	col, row := c.cellAt(l.point)
	grid[row][col] = cellCrosshair
	return grid
}

// outline marks the border cells of region r. Parts outside the image are
// dropped.
func (c canvas) outline(grid [][]cellKind, r geometry.Region, kind cellKind) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	c0, r0 := c.cellAt(geometry.Point{X: r.X, Y: r.Y})
	c1, r1 := c.cellAt(geometry.Point{X: r.X + r.W - 1, Y: r.Y + r.H - 1})
	if r.X+r.W <= 0 || r.Y+r.H <= 0 || r.X >= c.img.W || r.Y >= c.img.H {
		return
	}

	mark := func(col, row int) {
		grid[row][col] = max(grid[row][col], kind)
	}
	for col := c0; col <= c1; col++ {
		mark(col, r0)
		mark(col, r1)
	}
	for row := r0; row <= r1; row++ {
		mark(c0, row)
		mark(c1, row)
	}
}

func (c canvas) render(l canvasLayers) string {
	grid := c.grid(l)

	cellStyles := map[cellKind]lipgloss.Style{
		cellEmpty:     styles.MutedStyle,
		cellShape:     styles.ShapeStyle,
		cellDesired:   styles.PreviewBoxStyle,
		cellClamped:   styles.ClampedBoxStyle,
		cellCrosshair: styles.CrosshairStyle,
	}

	var b strings.Builder
	for r, line := range grid {
		if r > 0 {
			b.WriteByte('\n')
		}
		// Render runs of equal cells with one style call.
		start := 0
		for i := 1; i <= len(line); i++ {
			if i < len(line) && line[i] == line[start] {
				continue
			}
			kind := line[start]
			b.WriteString(cellStyles[kind].Render(strings.Repeat(cellRunes[kind], i-start)))
			start = i
		}
	}
	return styles.CanvasStyle.Render(b.String())
}
