// Package pipeline owns the trigger lifecycle: capture the selection,
// match rules, position the overlay, and publish the candidate list.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/selact/internal/capture"
	"github.com/dshills/selact/internal/event"
	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/match"
	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/window"
)

// RuleSource supplies the latest rule snapshot. Matching always runs
// against a fresh snapshot, never a cached copy.
type RuleSource interface {
	Actions() []rule.Rule
}

// Blacklist reports apps whose selections must not reach the AI backend.
type Blacklist interface {
	Blacklisted(appID string) bool
}

// Controller is the single entry point for all trigger paths. Redundant
// external listeners (hotkey, double-press, select-move) are thin
// adapters that funnel into Trigger; overlapping invocations are dropped
// through the busy flag, never queued.
type Controller struct {
	busy atomic.Bool

	source    capture.Source
	rules     RuleSource
	matcher   *match.Matcher
	bus       *event.Bus
	coord     *window.Coordinator
	manager   window.Manager
	blacklist Blacklist
	log       *logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithBlacklist enables AI-candidate filtering for blacklisted apps.
func WithBlacklist(b Blacklist) Option {
	return func(c *Controller) { c.blacklist = b }
}

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New creates a controller over its collaborators.
func New(source capture.Source, rules RuleSource, matcher *match.Matcher, bus *event.Bus, coord *window.Coordinator, mgr window.Manager, opts ...Option) *Controller {
	c := &Controller{
		source:  source,
		rules:   rules,
		matcher: matcher,
		bus:     bus,
		coord:   coord,
		manager: mgr,
		log:     logging.NullLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("pipeline")
	return c
}

// Trigger runs one pipeline cycle. A call arriving while another cycle
// is in flight is a no-op. Capture failure aborts the cycle silently.
func (c *Controller) Trigger(ctx context.Context) {
	c.trigger(ctx, nil)
}

// TriggerAt runs one cycle anchored at a gesture position.
func (c *Controller) TriggerAt(ctx context.Context, pt event.Point) {
	c.trigger(ctx, &pt)
}

// TriggerSpotlight decodes a raw spotlight payload and triggers at its
// position. Both the [x,y] and {x,y} encodings are accepted; a malformed
// payload falls back to an unanchored trigger.
func (c *Controller) TriggerSpotlight(ctx context.Context, raw []byte) {
	pt, err := event.DecodePoint(raw)
	if err != nil {
		c.log.Warn("spotlight payload: %v", err)
		c.Trigger(ctx)
		return
	}
	c.TriggerAt(ctx, pt)
}

// Busy reports whether a cycle is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

func (c *Controller) trigger(ctx context.Context, origin *event.Point) {
	if !c.busy.CompareAndSwap(false, true) {
		c.log.Debug("trigger dropped: cycle in flight")
		return
	}
	// Released on every exit path or future triggers wedge permanently.
	defer c.busy.Store(false)

	captured, err := c.source.Capture(ctx)
	if err != nil {
		if !errors.Is(err, capture.ErrNoSelection) {
			c.log.Warn("capture: %v", err)
		}
		return
	}
	if origin != nil {
		captured.Origin = &capture.Point{X: origin.X, Y: origin.Y}
	}

	result := c.matcher.Match(captured, c.rules.Actions())
	candidates := c.filterBlacklisted(captured.AppID, result.Rules)
	if len(candidates) == 0 {
		return
	}

	if captured.Origin != nil {
		c.positionOverlay(ctx, *captured.Origin)
	}

	payload := event.SelectionPayload{
		Actions:      candidates,
		CapturedText: captured.Text,
		AIResult:     nil,
	}
	if err := c.bus.Publish(ctx, event.TopicTriggerSelection, payload); err != nil {
		c.log.Warn("publish selection: %v", err)
	}
}

// filterBlacklisted removes AI-backed candidates when the source app is
// blacklisted. Offline actions are unaffected.
func (c *Controller) filterBlacklisted(appID string, rules []rule.Rule) []rule.Rule {
	if c.blacklist == nil || !c.blacklist.Blacklisted(appID) {
		return rules
	}
	kept := rules[:0]
	for _, r := range rules {
		if _, isAI := r.Action.(rule.AIAction); isAI {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// positionOverlay anchors the compact overlay near the gesture before it
// becomes visible.
func (c *Controller) positionOverlay(ctx context.Context, origin capture.Point) {
	pt := window.Point{X: int(origin.X), Y: int(origin.Y)}
	display, err := c.manager.Display(ctx, &pt)
	if err != nil {
		c.log.Warn("display lookup: %v", err)
		return
	}
	anchor := c.coord.Anchor(pt, c.coord.CompactSize(), display)
	if err := c.manager.SetPosition(ctx, window.OverlayLabel, anchor); err != nil {
		c.log.Warn("position overlay: %v", err)
	}
}
