package sidecar

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/colonyops/relabel/internal/core/geometry"
)

// BoxShape is one of the box encodings seen in sidecar files. Exactly one
// of the concrete types below implements it.
type BoxShape interface {
	Region() geometry.Region
	boxShape()
}

// Direct is {x, y, width, height}.
type Direct struct{ X, Y, W, H int }

// Located is {location: [{x, y, width, height}, ...]}; the first entry wins.
type Located struct{ Location []Direct }

// Tuple is [x, y, w, h].
type Tuple [4]int

func (d Direct) Region() geometry.Region  { return geometry.Region{X: d.X, Y: d.Y, W: d.W, H: d.H} }
func (l Located) Region() geometry.Region { return l.Location[0].Region() }
func (t Tuple) Region() geometry.Region   { return geometry.Region{X: t[0], Y: t[1], W: t[2], H: t[3]} }

func (Direct) boxShape()  {}
func (Located) boxShape() {}
func (Tuple) boxShape()   {}

// ParseBox classifies a decoded box node. Missing numeric members read as 0,
// matching how the records were historically consumed.
func ParseBox(node any) (BoxShape, bool) {
	switch n := node.(type) {
	case map[string]any:
		if locs, ok := n["location"].([]any); ok {
			var out Located
			for _, l := range locs {
				if m, ok := l.(map[string]any); ok {
					out.Location = append(out.Location, directFrom(m))
				}
			}
			if len(out.Location) > 0 {
				return out, true
			}
			return nil, false
		}
		if _, ok := n["x"]; ok {
			return directFrom(n), true
		}
	case []any:
		if len(n) != len(Tuple{}) {
			return nil, false
		}
		var t Tuple
		for i := range 4 {
			v, ok := Int(n[i])
			if !ok {
				return nil, false
			}
			t[i] = v
		}
		return t, true
	}
	return nil, false
}

func directFrom(m map[string]any) Direct {
	x, _ := Int(m["x"])
	y, _ := Int(m["y"])
	w, _ := Int(m["width"])
	h, _ := Int(m["height"])
	return Direct{X: x, Y: y, W: w, H: h}
}

// NormalizeBox converts any accepted box encoding into a Region.
func NormalizeBox(node any) (geometry.Region, bool) {
	shape, ok := ParseBox(node)
	if !ok {
		return geometry.Region{}, false
	}
	return shape.Region(), true
}

// minPolygonPoints is the fewest vertices that enclose an area.
const minPolygonPoints = 3

// ParsePolygon reads vertices from {location: [{x1, y1, x2, y2, ...}]} or
// {points: [[x, y], ...]}. Fewer than three vertices is not a polygon.
func ParsePolygon(node any) ([]geometry.Point, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}

	if locs, ok := m["location"].([]any); ok && len(locs) > 0 {
		loc, ok := locs[0].(map[string]any)
		if !ok {
			return nil, false
		}
		var pts []geometry.Point
		for i := 1; ; i++ {
			xv, okx := loc["x"+strconv.Itoa(i)]
			yv, oky := loc["y"+strconv.Itoa(i)]
			if !okx || !oky {
				break
			}
			x, _ := Int(xv)
			y, _ := Int(yv)
			pts = append(pts, geometry.Point{X: x, Y: y})
		}
		return pts, len(pts) >= minPolygonPoints
	}

	if raw, ok := m["points"].([]any); ok {
		var pts []geometry.Point
		for _, p := range raw {
			pair, ok := p.([]any)
			if !ok || len(pair) < 2 {
				return nil, false
			}
			x, okx := Int(pair[0])
			y, oky := Int(pair[1])
			if !okx || !oky {
				return nil, false
			}
			pts = append(pts, geometry.Point{X: x, Y: y})
		}
		return pts, len(pts) >= minPolygonPoints
	}

	return nil, false
}

// ShapeKind tags an annotation.
type ShapeKind string

const (
	ShapeBox     ShapeKind = "box"
	ShapePolygon ShapeKind = "polygon"
)

// Shape is a normalized annotation.
type Shape struct {
	Kind   ShapeKind        `json:"kind"`
	Label  string           `json:"label,omitempty"`
	Color  string           `json:"color,omitempty"`
	Box    geometry.Region  `json:"box,omitzero"`
	Points []geometry.Point `json:"points,omitempty"`
}

// Shapes extracts every recognizable shape from the annotations list stored
// under key. Unrecognized entries are skipped.
func Shapes(r Record, key string) []Shape {
	items, _ := r[key].([]any)

	var out []Shape
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if node, ok := m[string(ShapeBox)]; ok {
			if region, ok := NormalizeBox(node); ok {
				label, color := shapeMeta(m, node)
				out = append(out, Shape{Kind: ShapeBox, Label: label, Color: color, Box: region})
			}
		}
		if node, ok := m[string(ShapePolygon)]; ok {
			if pts, ok := ParsePolygon(node); ok {
				label, color := shapeMeta(m, node)
				out = append(out, Shape{Kind: ShapePolygon, Label: label, Color: color, Points: pts})
			}
		}
	}
	return out
}

// shapeMeta reads label and color from the shape node, falling back to the
// wrapping item (older files store {label: {labelName: ...}} there).
func shapeMeta(item map[string]any, node any) (label, color string) {
	if n, ok := node.(map[string]any); ok {
		label, _ = n["label"].(string)
		color, _ = n["color"].(string)
	}
	if label == "" {
		switch l := item["label"].(type) {
		case string:
			label = l
		case map[string]any:
			label, _ = l["labelName"].(string)
		}
	}
	return label, color
}

// Int converts a decoded numeric value to int, truncating fractions.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// Describe renders shapes one per line for CLI output.
func Describe(shapes []Shape) []string {
	lines := make([]string, 0, len(shapes))
	for _, s := range shapes {
		switch s.Kind {
		case ShapeBox:
			lines = append(lines, fmt.Sprintf("box %s %s %s", s.Box, s.Label, s.Color))
		case ShapePolygon:
			lines = append(lines, fmt.Sprintf("polygon %d pts %v %s %s", len(s.Points), s.Points, s.Label, s.Color))
		}
	}
	return lines
}
