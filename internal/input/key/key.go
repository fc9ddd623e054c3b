// Package key models the small set of keyboard input the overlay reacts
// to. Platform event sources translate native key codes into these
// events before handing them to the overlay.
package key

import "fmt"

// Key represents a keyboard key the overlay cares about.
// For character keys, use KeyRune and set the Rune field in Event.
type Key uint16

const (
	// KeyNone represents no key.
	KeyNone Key = iota

	KeyEscape
	KeyEnter

	// Arrow keys
	KeyLeft
	KeyRight

	// KeyRune is used for character keys (digits, letters).
	// The actual character is stored in Event.Rune.
	KeyRune
)

// String returns a human-readable name for the key.
func (k Key) String() string {
	switch k {
	case KeyNone:
		return "None"
	case KeyEscape:
		return "Escape"
	case KeyEnter:
		return "Enter"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyRune:
		return "Rune"
	default:
		return fmt.Sprintf("Key(%d)", uint16(k))
	}
}

// Event is one key press delivered to the overlay.
type Event struct {
	// Key identifies the pressed key.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune
}

// Digit returns the numeric value of a digit rune event, or -1 when the
// event is not a digit key.
func (e Event) Digit() int {
	if e.Key != KeyRune || e.Rune < '0' || e.Rune > '9' {
		return -1
	}
	return int(e.Rune - '0')
}

// RuneEvent builds a character key event.
func RuneEvent(r rune) Event {
	return Event{Key: KeyRune, Rune: r}
}
