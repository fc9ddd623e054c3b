// Package overlay drives the transient action window: one session per
// trigger, a strict phase machine from candidate list to result or
// dismissal, and structural rejection of stale async results.
package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/selact/internal/capture"
	"github.com/dshills/selact/internal/dispatch"
	"github.com/dshills/selact/internal/input/key"
	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/window"
)

// Phase is the overlay lifecycle state.
type Phase int

const (
	// PhaseClosed is the resting state: window hidden, no session.
	PhaseClosed Phase = iota

	// PhaseAwaitingSelection shows the candidate strip.
	PhaseAwaitingSelection

	// PhaseExecuting has one action in flight; input is disabled.
	PhaseExecuting

	// PhaseShowingResult displays the action's text output.
	PhaseShowingResult
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "Closed"
	case PhaseAwaitingSelection:
		return "AwaitingSelection"
	case PhaseExecuting:
		return "Executing"
	case PhaseShowingResult:
		return "ShowingResult"
	default:
		return "Unknown"
	}
}

// copyConfirmDelay lets the user see the copied acknowledgement before
// the overlay closes.
const copyConfirmDelay = 300 * time.Millisecond

// Session is the state of one trigger-to-dismissal lifecycle. The
// generation stamp makes stale async results structurally rejectable:
// a result tagged with an older generation is dropped on arrival.
type Session struct {
	generation   uint64
	capturedText string
	candidates   []rule.Rule
	selected     int
	result       *rule.ActionResult
	phase        Phase
}

// Phase returns the session phase.
func (s Session) Phase() Phase { return s.phase }

// Candidates returns the ranked candidate rules.
func (s Session) Candidates() []rule.Rule { return s.candidates }

// Selected returns the keyboard index.
func (s Session) Selected() int { return s.selected }

// Result returns the displayed result, nil before one arrives.
func (s Session) Result() *rule.ActionResult { return s.result }

// Dispatcher executes a chosen action. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, r rule.Rule, capturedText string) (dispatch.Outcome, error)
}

// Overlay owns the session and the window it is rendered in.
type Overlay struct {
	mu      sync.Mutex
	session Session
	shown   bool

	dispatcher Dispatcher
	coord      *window.Coordinator
	manager    window.Manager
	log        *logging.Logger

	copyFn    func(string) error
	copyDelay time.Duration
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithCopyFunc overrides the clipboard write used for copy-result.
func WithCopyFunc(fn func(string) error) Option {
	return func(o *Overlay) { o.copyFn = fn }
}

// WithCopyDelay overrides the copied-acknowledgement delay.
func WithCopyDelay(d time.Duration) Option {
	return func(o *Overlay) { o.copyDelay = d }
}

// WithLogger sets the overlay's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Overlay) { o.log = l }
}

// New creates an overlay over the dispatcher and window backend.
func New(d Dispatcher, coord *window.Coordinator, mgr window.Manager, opts ...Option) *Overlay {
	o := &Overlay{
		dispatcher: d,
		coord:      coord,
		manager:    mgr,
		log:        logging.NullLogger,
		copyFn:     capture.CopyText,
		copyDelay:  copyConfirmDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithComponent("overlay")
	return o
}

// Snapshot returns a copy of the current session for inspection.
func (o *Overlay) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Show starts a new session from a capture message. Receiving a new
// message in any phase discards the current session and restarts at
// AwaitingSelection; the old session's in-flight work is invalidated by
// the generation bump.
func (o *Overlay) Show(ctx context.Context, capturedText string, candidates []rule.Rule) {
	o.mu.Lock()
	restart := o.shown
	o.session = Session{
		generation:   o.session.generation + 1,
		capturedText: capturedText,
		candidates:   candidates,
		phase:        PhaseAwaitingSelection,
	}
	o.shown = true
	o.mu.Unlock()

	if restart {
		// Back to the minimal footprint before any content resize.
		o.applySize(ctx, o.coord.CompactSize())
	}
	if err := o.manager.SetVisible(ctx, window.OverlayLabel, true); err != nil {
		o.log.Warn("show overlay: %v", err)
	}
}

// HandleKey processes one key event according to the current phase.
func (o *Overlay) HandleKey(ctx context.Context, ev key.Event) {
	o.mu.Lock()
	phase := o.session.phase
	o.mu.Unlock()

	if ev.Key == key.KeyEscape {
		o.Close(ctx)
		return
	}

	switch phase {
	case PhaseAwaitingSelection:
		o.handleSelectionKey(ctx, ev)
	case PhaseShowingResult:
		if ev.Key == key.KeyRune && (ev.Rune == 'c' || ev.Rune == 'C') {
			o.CopyResult(ctx)
		}
	default:
		// Executing ignores everything but Escape; Closed ignores all.
	}
}

func (o *Overlay) handleSelectionKey(ctx context.Context, ev key.Event) {
	switch {
	case ev.Key == key.KeyEnter:
		o.mu.Lock()
		idx := o.session.selected
		o.mu.Unlock()
		o.Select(ctx, idx)
	case ev.Key == key.KeyLeft:
		o.moveSelection(-1)
	case ev.Key == key.KeyRight:
		o.moveSelection(1)
	default:
		// Digits 1-9 select index 0-8; out-of-range digits are ignored.
		if d := ev.Digit(); d >= 1 && d <= 9 {
			o.mu.Lock()
			inRange := d <= len(o.session.candidates)
			o.mu.Unlock()
			if inRange {
				o.Select(ctx, d-1)
			}
		}
	}
}

// moveSelection shifts the keyboard index, clamped with no wraparound.
func (o *Overlay) moveSelection(delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session.phase != PhaseAwaitingSelection {
		return
	}
	next := o.session.selected + delta
	if next < 0 {
		next = 0
	}
	if max := len(o.session.candidates) - 1; next > max {
		next = max
	}
	if next >= 0 {
		o.session.selected = next
	}
}

// Select dispatches the candidate at index. The session moves to
// Executing; the dispatch runs asynchronously and its outcome is applied
// only if the session generation is unchanged on arrival.
func (o *Overlay) Select(ctx context.Context, index int) {
	o.mu.Lock()
	if o.session.phase != PhaseAwaitingSelection || index < 0 || index >= len(o.session.candidates) {
		o.mu.Unlock()
		return
	}
	o.session.selected = index
	o.session.phase = PhaseExecuting
	gen := o.session.generation
	chosen := o.session.candidates[index]
	text := o.session.capturedText
	o.mu.Unlock()

	go func() {
		outcome, err := o.dispatcher.Dispatch(ctx, chosen, text)
		o.applyOutcome(ctx, gen, chosen, outcome, err)
	}()
}

// applyOutcome folds a dispatch result back into the session, dropping
// it when the generation no longer matches.
func (o *Overlay) applyOutcome(ctx context.Context, gen uint64, chosen rule.Rule, outcome dispatch.Outcome, err error) {
	o.mu.Lock()
	if o.session.generation != gen {
		o.mu.Unlock()
		o.log.Debug("dropping stale result for rule %q", chosen.Meta.ID)
		return
	}

	if err != nil {
		// Non-script failures are logged and the user may retry.
		o.session.phase = PhaseAwaitingSelection
		o.mu.Unlock()
		o.log.Warn("dispatch %q failed: %v", chosen.Meta.ID, err)
		return
	}

	switch outcome.Kind {
	case dispatch.OutcomeClosed:
		o.mu.Unlock()
		o.Close(ctx)
	case dispatch.OutcomeResult:
		res := outcome.Result
		o.session.result = &res
		o.session.phase = PhaseShowingResult
		o.mu.Unlock()
		o.resizeForResult(ctx, res.Text)
	default:
		o.session.phase = PhaseAwaitingSelection
		o.mu.Unlock()
	}
}

// HandleResult applies an externally produced result (e.g. one bundled
// with the capture message) to the current session.
func (o *Overlay) HandleResult(ctx context.Context, res rule.ActionResult) {
	o.mu.Lock()
	if !o.shown || o.session.phase == PhaseClosed {
		o.mu.Unlock()
		return
	}
	o.session.result = &res
	o.session.phase = PhaseShowingResult
	o.mu.Unlock()
	o.resizeForResult(ctx, res.Text)
}

// CopyResult puts the displayed text on the clipboard and closes after a
// short confirmation delay.
func (o *Overlay) CopyResult(ctx context.Context) {
	o.mu.Lock()
	if o.session.phase != PhaseShowingResult || o.session.result == nil {
		o.mu.Unlock()
		return
	}
	text := o.session.result.Text
	gen := o.session.generation
	o.mu.Unlock()

	if err := o.copyFn(text); err != nil {
		o.log.Warn("copy result: %v", err)
		return
	}

	time.AfterFunc(o.copyDelay, func() {
		o.mu.Lock()
		stale := o.session.generation != gen
		o.mu.Unlock()
		if !stale {
			o.Close(ctx)
		}
	})
}

// Blur closes the overlay on focus loss, from any phase.
func (o *Overlay) Blur(ctx context.Context) {
	o.Close(ctx)
}

// Close hides the window and discards the session. The generation bump
// invalidates any in-flight dispatch.
func (o *Overlay) Close(ctx context.Context) {
	o.mu.Lock()
	o.session = Session{generation: o.session.generation + 1, phase: PhaseClosed}
	o.mu.Unlock()

	if err := o.manager.SetVisible(ctx, window.OverlayLabel, false); err != nil {
		o.log.Warn("hide overlay: %v", err)
	}
}

// resizeForResult grows the window to fit result text, clamped to the
// current display.
func (o *Overlay) resizeForResult(ctx context.Context, text string) {
	display, err := o.manager.Display(ctx, nil)
	if err != nil {
		o.log.Warn("display lookup: %v", err)
	}
	o.applySize(ctx, o.coord.ResultSize(text, display.H))
}

func (o *Overlay) applySize(ctx context.Context, size window.Size) {
	if err := o.manager.SetSize(ctx, window.OverlayLabel, size); err != nil {
		o.log.Warn("resize overlay: %v", err)
	}
}
