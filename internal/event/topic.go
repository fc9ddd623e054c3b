package event

import "strings"

// Topic represents a hierarchical event type using dot notation.
// Examples: "trigger.selection", "overlay.hide"
type Topic string

// Topics used by the selection pipeline.
const (
	// TopicTriggerSelection carries matched actions from the pipeline
	// controller to the overlay. Receivers treat it as idempotent: a
	// re-delivered message simply restarts the overlay session.
	TopicTriggerSelection Topic = "trigger.selection"

	// TopicTriggerSpotlight carries the screen point of a gesture trigger
	// from a raw listener to the pipeline controller.
	TopicTriggerSpotlight Topic = "trigger.spotlight"

	// TopicOverlayHide asks the overlay to hide without a new session
	// (Escape pressed or a click outside the selection).
	TopicOverlayHide Topic = "overlay.hide"

	// TopicRulesReloaded is published after the rule store swaps in a new
	// rule set.
	TopicRulesReloaded Topic = "rules.reloaded"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the dot separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), ".")
}

// HasPrefix returns true if the topic starts with the given prefix
// on a segment boundary.
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	if t == prefix {
		return true
	}
	return strings.HasPrefix(string(t), string(prefix)+".")
}
