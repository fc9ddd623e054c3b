// Package scanner turns raw global input events into pipeline triggers:
// a double press of the configured modifier, or a mouse move shortly
// after a drag-selection. Platform hooks feed events in; the scanner
// funnels every recognized gesture into the controller's single entry
// point.
package scanner

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dshills/selact/internal/event"
	"github.com/dshills/selact/internal/logging"
)

// Gesture thresholds.
const (
	// selectionDragDist is the minimum drag distance treated as a text
	// selection.
	selectionDragDist = 40.0

	// selectMoveDist is how far the pointer must travel after a
	// selection to fire the select-move trigger.
	selectMoveDist = 30.0

	// selectMoveWindow is how long a finished selection stays armed.
	selectMoveWindow = 2 * time.Second

	// defaultPressInterval is the double-press window.
	defaultPressInterval = 400 * time.Millisecond
)

// TriggerMode selects which gesture fires the pipeline.
type TriggerMode string

// Trigger modes.
const (
	ModeDoublePress TriggerMode = "double_press"
	ModeSelectMove  TriggerMode = "select_move"
)

// Triggerer receives recognized gestures. Satisfied by the pipeline
// controller.
type Triggerer interface {
	Trigger(ctx context.Context)
	TriggerAt(ctx context.Context, pt event.Point)
}

// Config tunes gesture recognition.
type Config struct {
	// Mode is the active trigger gesture.
	Mode TriggerMode

	// PressKey is the modifier watched for double presses
	// ("ctrl", "shift", "alt").
	PressKey string

	// PressInterval is the double-press window; zero means the default.
	PressInterval time.Duration
}

// Scanner recognizes trigger gestures from a raw event stream.
type Scanner struct {
	mu  sync.Mutex
	cfg Config

	mousePos  event.Point
	dragStart *event.Point

	selectionEnd   *event.Point
	selectionTime  time.Time
	lastPress      time.Time
	pressCount     int

	target Triggerer
	log    *logging.Logger
	now    func() time.Time
}

// New creates a scanner feeding the triggerer.
func New(cfg Config, target Triggerer, log *logging.Logger) *Scanner {
	if cfg.PressInterval <= 0 {
		cfg.PressInterval = defaultPressInterval
	}
	if log == nil {
		log = logging.NullLogger
	}
	return &Scanner{
		cfg:    cfg,
		target: target,
		log:    log.WithComponent("scanner"),
		now:    time.Now,
	}
}

// SetConfig replaces the gesture configuration at runtime.
func (s *Scanner) SetConfig(cfg Config) {
	if cfg.PressInterval <= 0 {
		cfg.PressInterval = defaultPressInterval
	}
	s.mu.Lock()
	s.cfg = cfg
	s.pressCount = 0
	s.selectionEnd = nil
	s.mu.Unlock()
}

// MouseMove feeds a pointer position. In select-move mode, moving far
// enough away from a fresh selection fires the trigger at the pointer.
func (s *Scanner) MouseMove(ctx context.Context, pt event.Point) {
	s.mu.Lock()
	s.mousePos = pt

	if s.cfg.Mode != ModeSelectMove || s.selectionEnd == nil {
		s.mu.Unlock()
		return
	}
	if s.now().Sub(s.selectionTime) >= selectMoveWindow {
		s.selectionEnd = nil
		s.mu.Unlock()
		return
	}
	if dist(pt, *s.selectionEnd) <= selectMoveDist {
		s.mu.Unlock()
		return
	}
	s.selectionEnd = nil
	s.mu.Unlock()

	s.log.Debug("select-move trigger at (%.0f, %.0f)", pt.X, pt.Y)
	s.target.TriggerAt(ctx, pt)
}

// ButtonDown starts tracking a potential drag-selection.
func (s *Scanner) ButtonDown(_ context.Context) {
	s.mu.Lock()
	start := s.mousePos
	s.dragStart = &start
	s.selectionEnd = nil
	s.mu.Unlock()
}

// ButtonUp finishes a drag. A drag beyond the selection threshold arms
// the select-move trigger at the release point.
func (s *Scanner) ButtonUp(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragStart == nil {
		return
	}
	if dist(s.mousePos, *s.dragStart) > selectionDragDist {
		end := s.mousePos
		s.selectionEnd = &end
		s.selectionTime = s.now()
		s.log.Debug("selection armed at (%.0f, %.0f)", end.X, end.Y)
	}
	s.dragStart = nil
}

// KeyPress feeds a modifier press. Two presses of the configured key
// within the interval fire the trigger at the current pointer position.
func (s *Scanner) KeyPress(ctx context.Context, keyName string) {
	s.mu.Lock()
	if s.cfg.Mode != ModeDoublePress || !keyMatches(keyName, s.cfg.PressKey) {
		s.mu.Unlock()
		return
	}

	now := s.now()
	if now.Sub(s.lastPress) < s.cfg.PressInterval {
		s.pressCount++
	} else {
		s.pressCount = 1
	}
	s.lastPress = now

	if s.pressCount < 2 {
		s.mu.Unlock()
		return
	}
	s.pressCount = 0
	pos := s.mousePos
	s.mu.Unlock()

	s.log.Debug("double %s trigger", keyName)
	s.target.TriggerAt(ctx, pos)
}

func keyMatches(pressed, configured string) bool {
	switch configured {
	case "ctrl", "Ctrl":
		return pressed == "ctrl_left" || pressed == "ctrl_right" || pressed == "ctrl"
	case "shift", "Shift":
		return pressed == "shift_left" || pressed == "shift_right" || pressed == "shift"
	case "alt", "Alt":
		return pressed == "alt" || pressed == "alt_gr"
	default:
		return pressed == configured
	}
}

func dist(a, b event.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
