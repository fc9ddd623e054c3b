// Package dispatch executes the action a user picked from the overlay.
// Each action kind has its own extraction, templating, and error policy;
// the dispatcher itself performs no I/O beyond delegating to the
// collaborating services.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/script"
	"github.com/dshills/selact/internal/textfmt"
)

// ErrNoMirror means no Sci-Hub mirror answered for a DOI action.
var ErrNoMirror = errors.New("no reachable mirror")

// OutcomeKind classifies what the overlay should do after a dispatch.
type OutcomeKind int

const (
	// OutcomeClosed means the action was fire-and-forget: the overlay
	// closes immediately without waiting for the OS call.
	OutcomeClosed OutcomeKind = iota

	// OutcomeResult means displayable text came back.
	OutcomeResult

	// OutcomeNoOp means the action kind is unrecognized; nothing ran.
	OutcomeNoOp
)

// Outcome is the dispatcher's verdict for one action.
type Outcome struct {
	Kind   OutcomeKind
	Result rule.ActionResult
}

// Opener hands URLs and filesystem paths to the OS shell.
type Opener interface {
	OpenURL(url string) error
	OpenPath(path string) error
}

// Transformer is the AI backend surface the dispatcher needs.
type Transformer interface {
	Translate(ctx context.Context, text string) (rule.ActionResult, error)
	Summarize(ctx context.Context, text string) (rule.ActionResult, error)
	Process(ctx context.Context, text, intent string) (rule.ActionResult, error)
}

// DOIResolver finds a live mirror URL for a DOI. Empty means none.
type DOIResolver interface {
	OpenURL(ctx context.Context, doi string) string
}

// Dispatcher routes one selected action to its handler.
type Dispatcher struct {
	opener   Opener
	ai       Transformer
	scripts  script.Runner
	resolver DOIResolver
	log      *logging.Logger
}

// New creates a dispatcher over the collaborating services.
func New(opener Opener, ai Transformer, scripts script.Runner, resolver DOIResolver, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NullLogger
	}
	return &Dispatcher{
		opener:   opener,
		ai:       ai,
		scripts:  scripts,
		resolver: resolver,
		log:      log.WithComponent("dispatch"),
	}
}

// Dispatch runs the rule's action against the captured text.
//
// Error policy: script failures come back as an Outcome carrying an
// ActionResult with Kind "error" so the user can read the diagnostic;
// every other failure returns a plain error, which the overlay logs
// before returning to its selection state.
func (d *Dispatcher) Dispatch(ctx context.Context, r rule.Rule, capturedText string) (Outcome, error) {
	switch a := r.Action.(type) {
	case rule.URLAction:
		return d.dispatchURL(r, a, capturedText)
	case rule.PathAction:
		if err := d.opener.OpenPath(strings.TrimSpace(capturedText)); err != nil {
			return Outcome{}, fmt.Errorf("open path: %w", err)
		}
		return Outcome{Kind: OutcomeClosed}, nil
	case rule.SciHubAction:
		return d.dispatchDOI(ctx, r, capturedText)
	case rule.LocalFormatAction:
		res := rule.ActionResult{
			Text:       textfmt.Format(capturedText),
			Kind:       string(rule.ActionLocalFormat),
			SourceText: capturedText,
		}
		return Outcome{Kind: OutcomeResult, Result: res}, nil
	case rule.AIAction:
		return d.dispatchAI(ctx, a, capturedText)
	case rule.ScriptAction:
		return d.dispatchScript(ctx, a, capturedText)
	case nil:
		return Outcome{Kind: OutcomeNoOp}, nil
	default:
		d.log.Warn("unrecognized action kind %q", r.Action.Kind())
		return Outcome{Kind: OutcomeNoOp}, nil
	}
}

// dispatchURL substitutes the effective text into the template and opens
// the result. A template that is exactly the placeholder token takes the
// effective text verbatim; otherwise the substitution is percent-encoded.
func (d *Dispatcher) dispatchURL(r rule.Rule, a rule.URLAction, capturedText string) (Outcome, error) {
	effective := extractEffective(r.Trigger.ExtractionPattern, capturedText)

	var target string
	if a.Template == rule.PlaceholderToken {
		target = effective
	} else {
		target = strings.ReplaceAll(a.Template, rule.PlaceholderToken, percentEncode(effective))
	}

	if err := d.opener.OpenURL(target); err != nil {
		return Outcome{}, fmt.Errorf("open url: %w", err)
	}
	return Outcome{Kind: OutcomeClosed}, nil
}

func (d *Dispatcher) dispatchDOI(ctx context.Context, r rule.Rule, capturedText string) (Outcome, error) {
	doi := extractEffective(r.Trigger.ExtractionPattern, capturedText)
	target := d.resolver.OpenURL(ctx, strings.TrimSpace(doi))
	if target == "" {
		return Outcome{}, ErrNoMirror
	}
	if err := d.opener.OpenURL(target); err != nil {
		return Outcome{}, fmt.Errorf("open mirror: %w", err)
	}
	return Outcome{Kind: OutcomeClosed}, nil
}

func (d *Dispatcher) dispatchAI(ctx context.Context, a rule.AIAction, capturedText string) (Outcome, error) {
	var (
		res rule.ActionResult
		err error
	)
	switch a.Op {
	case rule.AITranslate:
		res, err = d.ai.Translate(ctx, capturedText)
	case rule.AISummarize:
		res, err = d.ai.Summarize(ctx, capturedText)
	case rule.AIProcess:
		res, err = d.ai.Process(ctx, capturedText, a.Intent)
	default:
		d.log.Warn("unrecognized ai op %q", a.Op)
		return Outcome{Kind: OutcomeNoOp}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeResult, Result: res}, nil
}

// dispatchScript is the one kind whose failures surface to the user.
func (d *Dispatcher) dispatchScript(ctx context.Context, a rule.ScriptAction, capturedText string) (Outcome, error) {
	res, err := d.scripts.Run(ctx, script.Call{
		Path:       a.Path,
		Arguments:  a.Arguments,
		SourceText: capturedText,
	})
	if err != nil {
		return Outcome{
			Kind:   OutcomeResult,
			Result: rule.ErrorResult(err.Error(), capturedText),
		}, nil
	}
	return Outcome{Kind: OutcomeResult, Result: res}, nil
}

// extractEffective applies the extraction pattern to the captured text
// and returns the first match. A malformed pattern or no match falls
// back to the raw text.
func extractEffective(pattern, capturedText string) string {
	if pattern == "" {
		return capturedText
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return capturedText
	}
	if m := re.FindString(capturedText); m != "" {
		return m
	}
	return capturedText
}

// percentEncode escapes text for substitution inside a URL template,
// encoding spaces as %20.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
