package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/selact/internal/capture"
	"github.com/dshills/selact/internal/event"
	"github.com/dshills/selact/internal/match"
	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/window"
)

type fakeRules struct {
	mu    sync.Mutex
	rules []rule.Rule
	reads atomic.Int32
}

func (f *fakeRules) Actions() []rule.Rule {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rule.Rule, len(f.rules))
	copy(out, f.rules)
	return out
}

type staticBlacklist struct{ apps map[string]bool }

func (b staticBlacklist) Blacklisted(appID string) bool { return b.apps[appID] }

func compiled(id string, priority int, action rule.Action) rule.Rule {
	r := rule.Rule{
		Meta:    rule.Meta{ID: rule.ID(id)},
		Scope:   rule.Scope{Include: []string{"*"}, Priority: priority},
		Trigger: rule.Trigger{Kind: rule.TriggerRegex, Pattern: `.+`},
		Action:  action,
	}
	_ = r.Compile()
	return r
}

type env struct {
	bus      *event.Bus
	payloads chan event.SelectionPayload
	rules    *fakeRules
}

func newEnv(t *testing.T, source capture.Source, rules []rule.Rule, opts ...Option) (*Controller, *env) {
	t.Helper()
	bus := event.NewBus()
	if err := bus.Start(); err != nil {
		t.Fatalf("bus start: %v", err)
	}
	t.Cleanup(func() { bus.Stop(context.Background()) })

	payloads := make(chan event.SelectionPayload, 8)
	bus.Subscribe(event.TopicTriggerSelection, func(_ context.Context, env event.Envelope) {
		payloads <- env.Payload.(event.SelectionPayload)
	})

	fr := &fakeRules{rules: rules}
	c := New(source, fr, match.NewMatcher(nil), bus, window.NewCoordinator(420, 72), window.NopManager{}, opts...)
	return c, &env{bus: bus, payloads: payloads, rules: fr}
}

func staticSource(ctx capture.Context, err error) capture.Source {
	return capture.SourceFunc(func(context.Context) (capture.Context, error) {
		return ctx, err
	})
}

func TestTrigger_PublishesCandidates(t *testing.T) {
	rules := []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})}
	c, e := newEnv(t, staticSource(capture.Context{Text: "hello"}, nil), rules)

	c.Trigger(context.Background())

	select {
	case p := <-e.payloads:
		if p.CapturedText != "hello" {
			t.Errorf("CapturedText = %q", p.CapturedText)
		}
		if len(p.Actions) != 1 || p.Actions[0].Meta.ID != "a" {
			t.Errorf("Actions = %+v", p.Actions)
		}
		if p.AIResult != nil {
			t.Errorf("AIResult = %+v, want nil", p.AIResult)
		}
	case <-time.After(time.Second):
		t.Fatal("no selection published")
	}
}

func TestTrigger_EmptyMatchPublishesNothing(t *testing.T) {
	c, e := newEnv(t, staticSource(capture.Context{Text: "   "}, nil), []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})})

	c.Trigger(context.Background())

	select {
	case p := <-e.payloads:
		t.Fatalf("published %+v for whitespace selection", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTrigger_CaptureFailureSilent(t *testing.T) {
	c, e := newEnv(t, staticSource(capture.Context{}, capture.ErrNoSelection), []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})})

	c.Trigger(context.Background())

	select {
	case <-e.payloads:
		t.Fatal("published despite capture failure")
	case <-time.After(50 * time.Millisecond):
	}
	if c.Busy() {
		t.Error("busy flag not released after capture failure")
	}
}

func TestTrigger_SingleFlight(t *testing.T) {
	var matcherRuns atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	source := capture.SourceFunc(func(context.Context) (capture.Context, error) {
		matcherRuns.Add(1)
		close(started)
		<-release
		return capture.Context{Text: "hello"}, nil
	})

	rules := []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})}
	c, e := newEnv(t, source, rules)

	go c.Trigger(context.Background())
	<-started

	// Second trigger while the first cycle is capturing: dropped.
	c.Trigger(context.Background())
	close(release)

	select {
	case <-e.payloads:
	case <-time.After(time.Second):
		t.Fatal("first trigger never published")
	}
	select {
	case p := <-e.payloads:
		t.Fatalf("second publish %+v, want exactly one", p)
	case <-time.After(50 * time.Millisecond):
	}
	if got := matcherRuns.Load(); got != 1 {
		t.Errorf("pipeline ran %d times, want 1", got)
	}
}

func TestTrigger_BusyReleasedOnEveryPath(t *testing.T) {
	c, _ := newEnv(t, staticSource(capture.Context{Text: "x"}, nil), nil)
	c.Trigger(context.Background())
	if c.Busy() {
		t.Error("busy after empty-match cycle")
	}
}

func TestTrigger_FreshSnapshotPerTrigger(t *testing.T) {
	rules := []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})}
	c, e := newEnv(t, staticSource(capture.Context{Text: "x"}, nil), rules)

	c.Trigger(context.Background())
	c.Trigger(context.Background())
	if got := e.rules.reads.Load(); got != 2 {
		t.Errorf("rule snapshot read %d times, want one per trigger", got)
	}
}

func TestTrigger_BlacklistDropsAICandidates(t *testing.T) {
	rules := []rule.Rule{
		compiled("translate", 50, rule.AIAction{Op: rule.AITranslate}),
		compiled("format", 35, rule.LocalFormatAction{}),
	}
	bl := staticBlacklist{apps: map[string]bool{"com.bank.app": true}}
	c, e := newEnv(t, staticSource(capture.Context{Text: "secret", AppID: "com.bank.app"}, nil), rules, WithBlacklist(bl))

	c.Trigger(context.Background())

	select {
	case p := <-e.payloads:
		if len(p.Actions) != 1 || p.Actions[0].Meta.ID != "format" {
			t.Errorf("Actions = %+v, want only the offline rule", p.Actions)
		}
	case <-time.After(time.Second):
		t.Fatal("no selection published")
	}
}

func TestTriggerSpotlight_AcceptsBothEncodings(t *testing.T) {
	rules := []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})}

	for _, raw := range []string{`[100, 200]`, `{"x": 100, "y": 200}`} {
		c, e := newEnv(t, staticSource(capture.Context{Text: "x"}, nil), rules)
		c.TriggerSpotlight(context.Background(), []byte(raw))
		select {
		case <-e.payloads:
		case <-time.After(time.Second):
			t.Fatalf("payload %s: no selection published", raw)
		}
	}
}

func TestTriggerSpotlight_MalformedFallsBack(t *testing.T) {
	rules := []rule.Rule{compiled("a", 10, rule.LocalFormatAction{})}
	c, e := newEnv(t, staticSource(capture.Context{Text: "x"}, nil), rules)

	c.TriggerSpotlight(context.Background(), []byte(`"garbage"`))
	select {
	case <-e.payloads:
	case <-time.After(time.Second):
		t.Fatal("malformed spotlight payload should still trigger")
	}
}
