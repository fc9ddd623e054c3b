// Package rule defines the declarative match-and-act units the pipeline
// evaluates, and the store that loads and persists them.
package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Rule errors.
var (
	ErrMissingID      = errors.New("rule is missing meta.id")
	ErrMissingPattern = errors.New("rule trigger has no pattern")
)

// ID uniquely identifies a rule within a loaded rule set.
type ID string

// Meta carries rule identity.
type Meta struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Scope restricts where a rule applies and orders it among matches.
// Include entries are app-identifier patterns; "*" matches any app.
// Higher priority wins; declaration order breaks ties.
type Scope struct {
	Include  []string `json:"include"`
	Priority int      `json:"priority"`
}

// TriggerKind selects how a trigger pattern is evaluated.
type TriggerKind string

// Trigger kinds.
const (
	// TriggerRegex matches the pattern anywhere in the captured text.
	TriggerRegex TriggerKind = "regex"

	// TriggerKeyword matches by case-insensitive substring containment.
	TriggerKeyword TriggerKind = "keyword"

	// TriggerContext is reserved for future semantic matchers.
	// It parses and validates but never matches.
	TriggerContext TriggerKind = "context"
)

// Trigger decides whether a rule applies to a captured text span.
type Trigger struct {
	Kind              TriggerKind `json:"type"`
	Pattern           string      `json:"pattern"`
	ExtractionPattern string      `json:"extraction_pattern,omitempty"`
}

// Rule is a declarative match-and-act unit. Rules are immutable once
// loaded; the store replaces the whole set on reload.
type Rule struct {
	Meta    Meta    `json:"meta"`
	Scope   Scope   `json:"scope"`
	Trigger Trigger `json:"trigger"`
	Action  Action  `json:"-"`

	// compiled is the pre-compiled trigger regex for TriggerRegex rules.
	// nil with compileErr set means the pattern failed to compile and the
	// rule is excluded from matching.
	compiled   *regexp.Regexp
	compileErr error
}

// Compile pre-compiles the trigger pattern. A compile failure disables the
// rule for matching but is never fatal to the set.
func (r *Rule) Compile() error {
	if r.Trigger.Kind != TriggerRegex {
		return nil
	}
	re, err := regexp.Compile(r.Trigger.Pattern)
	if err != nil {
		r.compiled = nil
		r.compileErr = err
		return fmt.Errorf("rule %q: %w", r.Meta.ID, err)
	}
	r.compiled = re
	r.compileErr = nil
	return nil
}

// CompileErr returns the trigger compile error, if any.
func (r *Rule) CompileErr() error {
	return r.compileErr
}

// TriggerMatches reports whether the rule's trigger fires for the text.
func (r *Rule) TriggerMatches(text string) bool {
	switch r.Trigger.Kind {
	case TriggerRegex:
		if r.compiled == nil {
			return false
		}
		return r.compiled.MatchString(text)
	case TriggerKeyword:
		return containsFold(text, r.Trigger.Pattern)
	case TriggerContext:
		// Reserved; never matches.
		return false
	default:
		return false
	}
}

// Validate checks structural invariants of a single rule.
func (r *Rule) Validate() error {
	if r.Meta.ID == "" {
		return ErrMissingID
	}
	if r.Trigger.Pattern == "" {
		return fmt.Errorf("rule %q: %w", r.Meta.ID, ErrMissingPattern)
	}
	return nil
}

// ruleWire is the on-disk shape of a rule.
type ruleWire struct {
	Meta    Meta       `json:"meta"`
	Scope   Scope      `json:"scope"`
	Trigger Trigger    `json:"trigger"`
	Action  actionWire `json:"action"`
}

// UnmarshalJSON decodes a rule, turning the action object into its
// kind-specific type.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Meta = w.Meta
	r.Scope = w.Scope
	r.Trigger = w.Trigger
	r.Action = w.Action.toAction()
	return nil
}

// MarshalJSON encodes a rule in the on-disk shape.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleWire{
		Meta:    r.Meta,
		Scope:   r.Scope,
		Trigger: r.Trigger,
		Action:  wireFromAction(r.Action),
	})
}

// ActionResult is the rendered output of a dispatched action, or an error
// payload with Kind "error".
type ActionResult struct {
	Text       string `json:"result"`
	Kind       string `json:"action_type"`
	SourceText string `json:"source_text,omitempty"`
}

// ErrorResult builds an ActionResult carrying a failure message as
// displayable text.
func ErrorResult(msg, sourceText string) ActionResult {
	return ActionResult{Text: msg, Kind: "error", SourceText: sourceText}
}

// containsFold reports case-insensitive substring containment.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
