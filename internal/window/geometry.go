// Package window computes overlay geometry from session content and
// manages show/hide transitions through a platform Manager.
package window

import (
	"strings"

	"golang.org/x/text/width"
)

// Layout constants for the overlay. Width is fixed; only height and
// anchor position vary with content.
const (
	// wrapCells is the effective line width in character cells at the
	// fixed overlay width.
	wrapCells = 48

	// lineHeight is the rendered height of one wrapped line.
	lineHeight = 22

	// edgeMargin keeps the overlay off the display edges.
	edgeMargin = 10

	// anchorOffset places the overlay below and right of the gesture.
	anchorOffset = 20

	// maxHeightFraction caps the overlay at this share of the display.
	maxHeightFraction = 0.8
)

// Rect is a display or window rectangle in logical pixels.
type Rect struct {
	X, Y, W, H int
}

// Size is a window size in logical pixels.
type Size struct {
	W, H int
}

// Point is a screen coordinate in logical pixels.
type Point struct {
	X, Y int
}

// Coordinator turns session content into overlay geometry. It holds only
// fixed layout inputs; all methods are pure.
type Coordinator struct {
	width     int
	minHeight int
}

// NewCoordinator creates a coordinator with the fixed overlay width and
// minimum footprint height.
func NewCoordinator(overlayWidth, minHeight int) *Coordinator {
	if overlayWidth <= 0 {
		overlayWidth = 420
	}
	if minHeight <= 0 {
		minHeight = 72
	}
	return &Coordinator{width: overlayWidth, minHeight: minHeight}
}

// CompactSize returns the fixed footprint for the candidate strip shown
// while awaiting a selection.
func (c *Coordinator) CompactSize() Size {
	return Size{W: c.width, H: c.minHeight}
}

// ResultSize estimates the overlay size needed to show result text.
// The compact footprint already fits one line of text plus chrome, so a
// single-line result keeps the minimum height; each additional wrapped
// line adds one line height, capped at 80% of the display height.
func (c *Coordinator) ResultSize(text string, displayHeight int) Size {
	lines := estimateLines(text)
	h := c.minHeight + (lines-1)*lineHeight

	if displayHeight > 0 {
		max := int(float64(displayHeight) * maxHeightFraction)
		if h > max {
			h = max
		}
	}
	return Size{W: c.width, H: h}
}

// Anchor positions the overlay near the gesture origin: below-right with
// a small offset, flipping above when the bottom would overflow, and
// clamped inside the display with an edge margin.
func (c *Coordinator) Anchor(origin Point, win Size, display Rect) Point {
	x := origin.X + anchorOffset
	y := origin.Y + anchorOffset

	right := display.X + display.W
	bottom := display.Y + display.H

	if x+win.W > right {
		x = right - win.W - edgeMargin
	}
	if y+win.H > bottom {
		y = origin.Y - win.H - edgeMargin
		if y < display.Y+edgeMargin {
			y = bottom - win.H - edgeMargin
		}
	}

	if x < display.X+edgeMargin {
		x = display.X + edgeMargin
	}
	if y < display.Y+edgeMargin {
		y = display.Y + edgeMargin
	}
	return Point{X: x, Y: y}
}

// estimateLines counts wrapped display lines for the text at the fixed
// wrap width. East Asian wide runes occupy two cells.
func estimateLines(text string) int {
	if text == "" {
		return 1
	}
	total := 0
	for _, line := range strings.Split(text, "\n") {
		cells := 0
		for _, r := range line {
			cells += runeCells(r)
		}
		n := (cells + wrapCells - 1) / wrapCells
		if n < 1 {
			n = 1
		}
		total += n
	}
	return total
}

func runeCells(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
