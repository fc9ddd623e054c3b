// Package match ranks rules against a captured selection.
package match

import (
	"sort"
	"strings"

	"github.com/dshills/selact/internal/capture"
	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/rule"
)

// Result is the ranked list of rules that matched one capture, ordered by
// priority descending with declaration order breaking ties. It is never
// re-sorted after creation.
type Result struct {
	Rules []rule.Rule
}

// Empty reports whether nothing matched.
func (r Result) Empty() bool { return len(r.Rules) == 0 }

// Matcher evaluates a rule snapshot against a capture context. Matching is
// pure: the matcher holds no state beyond its logger.
type Matcher struct {
	log *logging.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(log *logging.Logger) *Matcher {
	if log == nil {
		log = logging.NullLogger
	}
	return &Matcher{log: log.WithComponent("matcher")}
}

// Match returns the ranked rules applicable to the capture. Empty or
// whitespace-only text short-circuits to an empty result without
// evaluating any rule. Rules whose trigger pattern failed to compile are
// skipped, never fatal.
func (m *Matcher) Match(ctx capture.Context, rules []rule.Rule) Result {
	if ctx.Empty() {
		return Result{}
	}

	matched := make([]rule.Rule, 0, len(rules))
	for i := range rules {
		r := rules[i]
		if !scopeIncludes(r.Scope.Include, ctx.AppID) {
			continue
		}
		if err := r.CompileErr(); err != nil {
			m.log.Debug("skipping rule %q: %v", r.Meta.ID, err)
			continue
		}
		if !r.TriggerMatches(ctx.Text) {
			continue
		}
		matched = append(matched, r)
	}

	// Stable keeps declaration order among equal priorities.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Scope.Priority > matched[j].Scope.Priority
	})
	return Result{Rules: matched}
}

// scopeIncludes reports whether any include pattern covers the app
// identifier. Patterns use simple glob semantics: "*" matches anything,
// a leading or trailing "*" matches a suffix or prefix, and anything else
// compares whole. Comparison is case-insensitive. An empty include list
// matches nothing.
func scopeIncludes(patterns []string, appID string) bool {
	id := strings.ToLower(appID)
	for _, p := range patterns {
		if globMatch(strings.ToLower(p), id) {
			return true
		}
	}
	return false
}

func globMatch(pattern, s string) bool {
	switch {
	case pattern == "*":
		return true
	case pattern == "":
		return s == ""
	}

	leading := strings.HasPrefix(pattern, "*")
	trailing := strings.HasSuffix(pattern, "*")
	core := strings.Trim(pattern, "*")
	switch {
	case leading && trailing:
		return strings.Contains(s, core)
	case leading:
		return strings.HasSuffix(s, core)
	case trailing:
		return strings.HasPrefix(s, core)
	default:
		return s == pattern
	}
}
