package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/script"
)

type fakeOpener struct {
	urls  []string
	paths []string
	err   error
}

func (f *fakeOpener) OpenURL(url string) error {
	f.urls = append(f.urls, url)
	return f.err
}

func (f *fakeOpener) OpenPath(path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

type fakeAI struct {
	result rule.ActionResult
	err    error
	intent string
}

func (f *fakeAI) Translate(_ context.Context, text string) (rule.ActionResult, error) {
	return f.result, f.err
}

func (f *fakeAI) Summarize(_ context.Context, text string) (rule.ActionResult, error) {
	return f.result, f.err
}

func (f *fakeAI) Process(_ context.Context, text, intent string) (rule.ActionResult, error) {
	f.intent = intent
	return f.result, f.err
}

type fakeRunner struct {
	result rule.ActionResult
	err    error
	call   script.Call
}

func (f *fakeRunner) Run(_ context.Context, call script.Call) (rule.ActionResult, error) {
	f.call = call
	return f.result, f.err
}

type fakeResolver struct{ url string }

func (f *fakeResolver) OpenURL(context.Context, string) string { return f.url }

func newTestDispatcher(opener *fakeOpener, ai *fakeAI, runner *fakeRunner, resolver *fakeResolver) *Dispatcher {
	if opener == nil {
		opener = &fakeOpener{}
	}
	if ai == nil {
		ai = &fakeAI{}
	}
	if runner == nil {
		runner = &fakeRunner{}
	}
	if resolver == nil {
		resolver = &fakeResolver{}
	}
	return New(opener, ai, runner, resolver, nil)
}

func urlRule(template, extraction string) rule.Rule {
	return rule.Rule{
		Meta:    rule.Meta{ID: "u"},
		Trigger: rule.Trigger{Kind: rule.TriggerRegex, Pattern: ".+", ExtractionPattern: extraction},
		Action:  rule.URLAction{Template: template},
	}
}

func TestDispatch_URLBarePlaceholderVerbatim(t *testing.T) {
	opener := &fakeOpener{}
	d := newTestDispatcher(opener, nil, nil, nil)

	out, err := d.Dispatch(context.Background(), urlRule("${0}", `\d+`), "order #4821 ready")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeClosed {
		t.Errorf("Kind = %v, want OutcomeClosed", out.Kind)
	}
	if len(opener.urls) != 1 || opener.urls[0] != "4821" {
		t.Errorf("opened %v, want [4821] (verbatim, no encoding)", opener.urls)
	}
}

func TestDispatch_URLTemplateEncodesSubstitution(t *testing.T) {
	opener := &fakeOpener{}
	d := newTestDispatcher(opener, nil, nil, nil)

	_, err := d.Dispatch(context.Background(), urlRule("https://x.com/s?q=${0}", ""), "a b")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if want := "https://x.com/s?q=a%20b"; opener.urls[0] != want {
		t.Errorf("opened %q, want %q", opener.urls[0], want)
	}
}

func TestDispatch_URLExtractionFallsBackOnNoMatch(t *testing.T) {
	opener := &fakeOpener{}
	d := newTestDispatcher(opener, nil, nil, nil)

	d.Dispatch(context.Background(), urlRule("${0}", `\d+`), "no digits here")
	if opener.urls[0] != "no digits here" {
		t.Errorf("opened %q, want raw text fallback", opener.urls[0])
	}
}

func TestDispatch_URLExtractionFallsBackOnBadPattern(t *testing.T) {
	opener := &fakeOpener{}
	d := newTestDispatcher(opener, nil, nil, nil)

	d.Dispatch(context.Background(), urlRule("${0}", `([`), "whole text")
	if opener.urls[0] != "whole text" {
		t.Errorf("opened %q, want raw text fallback", opener.urls[0])
	}
}

func TestDispatch_URLOpenerFailureIsError(t *testing.T) {
	opener := &fakeOpener{err: errors.New("no browser")}
	d := newTestDispatcher(opener, nil, nil, nil)

	if _, err := d.Dispatch(context.Background(), urlRule("${0}", ""), "x"); err == nil {
		t.Error("Dispatch() swallowed opener failure")
	}
}

func TestDispatch_PathTrimsWhitespace(t *testing.T) {
	opener := &fakeOpener{}
	d := newTestDispatcher(opener, nil, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "p"}, Action: rule.PathAction{}}
	out, err := d.Dispatch(context.Background(), r, "  /tmp/file.txt \n")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeClosed {
		t.Errorf("Kind = %v, want OutcomeClosed", out.Kind)
	}
	if opener.paths[0] != "/tmp/file.txt" {
		t.Errorf("opened %q, want trimmed path", opener.paths[0])
	}
}

func TestDispatch_LocalFormat(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "f"}, Action: rule.LocalFormatAction{}}
	out, err := d.Dispatch(context.Background(), r, "a  \n\n  b")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeResult {
		t.Fatalf("Kind = %v, want OutcomeResult", out.Kind)
	}
	if out.Result.Text != "a\nb" {
		t.Errorf("Text = %q, want %q", out.Result.Text, "a\nb")
	}
	if out.Result.SourceText != "a  \n\n  b" {
		t.Errorf("SourceText = %q", out.Result.SourceText)
	}
}

func TestDispatch_AIRoutesOps(t *testing.T) {
	ai := &fakeAI{result: rule.ActionResult{Text: "out", Kind: "ai_process"}}
	d := newTestDispatcher(nil, ai, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "a"}, Action: rule.AIAction{Op: rule.AIProcess, Intent: "format_text"}}
	out, err := d.Dispatch(context.Background(), r, "text")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeResult {
		t.Errorf("Kind = %v, want OutcomeResult", out.Kind)
	}
	if ai.intent != "format_text" {
		t.Errorf("intent = %q, want format_text", ai.intent)
	}
}

func TestDispatch_AIFailureIsPlainError(t *testing.T) {
	ai := &fakeAI{err: errors.New("rate limited")}
	d := newTestDispatcher(nil, ai, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "a"}, Action: rule.AIAction{Op: rule.AITranslate}}
	out, err := d.Dispatch(context.Background(), r, "text")
	if err == nil {
		t.Fatal("Dispatch() swallowed AI failure")
	}
	if out.Kind == OutcomeResult {
		t.Error("AI failure must not produce a displayable result")
	}
}

func TestDispatch_UnknownAIOpIsNoOp(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "a"}, Action: rule.AIAction{Op: "ai_hallucinate"}}
	out, err := d.Dispatch(context.Background(), r, "text")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeNoOp {
		t.Errorf("Kind = %v, want OutcomeNoOp", out.Kind)
	}
}

func TestDispatch_ScriptSuccess(t *testing.T) {
	runner := &fakeRunner{result: rule.ActionResult{Text: "done", Kind: "script"}}
	d := newTestDispatcher(nil, nil, runner, nil)

	r := rule.Rule{
		Meta:   rule.Meta{ID: "s"},
		Action: rule.ScriptAction{Path: "x.lua", Arguments: []string{"-v"}},
	}
	out, err := d.Dispatch(context.Background(), r, "sel")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Result.Text != "done" {
		t.Errorf("Text = %q, want done", out.Result.Text)
	}
	if runner.call.SourceText != "sel" {
		t.Errorf("SourceText = %q, want sel", runner.call.SourceText)
	}
	if len(runner.call.Arguments) != 1 || runner.call.Arguments[0] != "-v" {
		t.Errorf("Arguments = %v", runner.call.Arguments)
	}
}

func TestDispatch_ScriptFailureBecomesErrorResult(t *testing.T) {
	runner := &fakeRunner{err: errors.New("script exploded")}
	d := newTestDispatcher(nil, nil, runner, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "s"}, Action: rule.ScriptAction{Path: "x.lua"}}
	out, err := d.Dispatch(context.Background(), r, "sel")
	if err != nil {
		t.Fatalf("script failure must not be a plain error, got %v", err)
	}
	if out.Kind != OutcomeResult {
		t.Fatalf("Kind = %v, want OutcomeResult", out.Kind)
	}
	if out.Result.Kind != "error" {
		t.Errorf("Result.Kind = %q, want error", out.Result.Kind)
	}
	if out.Result.Text != "script exploded" {
		t.Errorf("Result.Text = %q, want diagnostic", out.Result.Text)
	}
}

func TestDispatch_DOIOpensMirror(t *testing.T) {
	opener := &fakeOpener{}
	resolver := &fakeResolver{url: "https://sci-hub.se/10.1000/x"}
	d := newTestDispatcher(opener, nil, nil, resolver)

	r := rule.Rule{
		Meta:    rule.Meta{ID: "doi"},
		Trigger: rule.Trigger{Kind: rule.TriggerRegex, Pattern: ".+", ExtractionPattern: `10\.\d{4,9}/\S+`},
		Action:  rule.SciHubAction{},
	}
	out, err := d.Dispatch(context.Background(), r, "see 10.1000/x for details")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeClosed {
		t.Errorf("Kind = %v, want OutcomeClosed", out.Kind)
	}
	if opener.urls[0] != "https://sci-hub.se/10.1000/x" {
		t.Errorf("opened %q", opener.urls[0])
	}
}

func TestDispatch_DOINoMirrorIsError(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, &fakeResolver{url: ""})

	r := rule.Rule{Meta: rule.Meta{ID: "doi"}, Action: rule.SciHubAction{}}
	if _, err := d.Dispatch(context.Background(), r, "10.1/x"); !errors.Is(err, ErrNoMirror) {
		t.Errorf("err = %v, want ErrNoMirror", err)
	}
}

func TestDispatch_UnknownActionIsNoOp(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)

	r := rule.Rule{Meta: rule.Meta{ID: "x"}, Action: rule.UnknownAction{Type: "teleport"}}
	out, err := d.Dispatch(context.Background(), r, "text")
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if out.Kind != OutcomeNoOp {
		t.Errorf("Kind = %v, want OutcomeNoOp", out.Kind)
	}
}
