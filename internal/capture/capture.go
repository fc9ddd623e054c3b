// Package capture obtains the user's current text selection and the
// identity of the application it came from.
package capture

import (
	"context"
	"errors"
	"strings"
)

// Capture errors.
var (
	// ErrNoSelection means no text was selected when the trigger fired.
	ErrNoSelection = errors.New("no text selected")
)

// Point is a screen coordinate in logical pixels.
type Point struct {
	X float64
	Y float64
}

// Context is one captured selection. It is produced once per trigger,
// never mutated, and consumed exactly once by the matcher.
type Context struct {
	// Text is the selected text.
	Text string

	// AppID is the canonical identifier of the foreground application the
	// selection came from. Empty when the platform cannot tell.
	AppID string

	// Origin is the screen position of the gesture that triggered the
	// capture, when one was supplied.
	Origin *Point
}

// Empty reports whether the captured text is empty or whitespace-only.
func (c Context) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Source produces capture contexts on demand.
type Source interface {
	// Capture grabs the current selection. Returns ErrNoSelection when
	// nothing is selected.
	Capture(ctx context.Context) (Context, error)
}
