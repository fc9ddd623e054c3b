package window

import "context"

// OverlayLabel identifies the overlay window to the platform Manager.
const OverlayLabel = "popup"

// Manager is the platform window backend. The coordinator computes
// geometry; the manager applies it.
type Manager interface {
	// SetVisible shows or hides the labelled window.
	SetVisible(ctx context.Context, label string, visible bool) error

	// SetPosition moves the labelled window to a screen position.
	SetPosition(ctx context.Context, label string, pos Point) error

	// SetSize resizes the labelled window.
	SetSize(ctx context.Context, label string, size Size) error

	// Display returns the rectangle of the display containing the point,
	// or the primary display when pos is nil.
	Display(ctx context.Context, pos *Point) (Rect, error)
}

// NopManager is a Manager that records nothing and always succeeds.
// Used when no platform backend is wired, and in tests.
type NopManager struct{}

// SetVisible implements Manager.
func (NopManager) SetVisible(context.Context, string, bool) error { return nil }

// SetPosition implements Manager.
func (NopManager) SetPosition(context.Context, string, Point) error { return nil }

// SetSize implements Manager.
func (NopManager) SetSize(context.Context, string, Size) error { return nil }

// Display implements Manager.
func (NopManager) Display(context.Context, *Point) (Rect, error) {
	return Rect{W: 1920, H: 1080}, nil
}
