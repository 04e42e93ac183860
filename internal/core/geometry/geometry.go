// Package geometry places the fixed-size region of interest inside an image.
package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Anchor describes how a clicked point maps onto the region.
type Anchor string

const (
	AnchorTopLeft Anchor = "top-left"
	AnchorCenter  Anchor = "center"
)

// IsValid reports whether a is a known anchor.
func (a Anchor) IsValid() bool {
	return a == AnchorTopLeft || a == AnchorCenter
}

// ParseAnchor parses an anchor name. "tl" and "c" are accepted as short forms.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-left", "topleft", "tl":
		return AnchorTopLeft, nil
	case "center", "centre", "c":
		return AnchorCenter, nil
	}
	return "", fmt.Errorf("invalid anchor %q (want top-left or center)", s)
}

// Point is a pixel position in image coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ParsePoint parses "x,y" (whitespace tolerant).
func ParsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("invalid point %q (want x,y)", s)
	}

	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Point{}, fmt.Errorf("invalid point x %q: %w", xs, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Point{}, fmt.Errorf("invalid point y %q: %w", ys, err)
	}

	return Point{X: x, Y: y}, nil
}

// Size is a width/height pair.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Region is an axis-aligned rectangle in image pixel coordinates.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Corners returns the four corners clockwise starting at the top-left.
func (r Region) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
}

// Clamp keeps a boxW x boxH rectangle with the desired top-left inside an
// imageW x imageH image. An axis where the box does not fit is pinned to 0.
func Clamp(desiredX, desiredY, imageW, imageH, boxW, boxH int) Region {
	return Region{
		X: clampAxis(desiredX, imageW, boxW),
		Y: clampAxis(desiredY, imageH, boxH),
		W: boxW,
		H: boxH,
	}
}

func clampAxis(desired, image, box int) int {
	if image < box {
		return 0
	}
	return max(0, min(desired, image-box))
}

// Desired returns the unclamped rectangle for a point interpreted with anchor a.
func Desired(p Point, a Anchor, box Size) Region {
	x, y := p.X, p.Y
	if a == AnchorCenter {
		x -= box.W / 2
		y -= box.H / 2
	}
	return Region{X: x, Y: y, W: box.W, H: box.H}
}

// Place computes the committed region for a clicked point.
func Place(p Point, a Anchor, img Size, box Size) Region {
	d := Desired(p, a, box)
	return Clamp(d.X, d.Y, img.W, img.H, box.W, box.H)
}
