package scihub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFind_RespectsLimit(t *testing.T) {
	a := NewAccessor(nil)
	a.probe = func(context.Context, string) bool { return true }

	got := a.FindAvailable(context.Background(), 2)
	if len(got) != 2 {
		t.Fatalf("FindAvailable(2) returned %d mirrors", len(got))
	}
	for _, u := range got {
		if !strings.HasPrefix(u, "https://") {
			t.Errorf("mirror %q missing scheme", u)
		}
	}
}

func TestFind_AllDown(t *testing.T) {
	a := NewAccessor(nil)
	a.probe = func(context.Context, string) bool { return false }

	if got := a.FindAvailable(context.Background(), 3); len(got) != 0 {
		t.Errorf("FindAvailable() = %v, want none", got)
	}
}

func TestFind_StopsProbingAfterLimit(t *testing.T) {
	a := NewAccessor(nil)
	var probes atomic.Int32
	a.probe = func(context.Context, string) bool {
		probes.Add(1)
		return true
	}

	a.FastFindAvailable(context.Background(), 1)
	// The first batch of concurrent probes may all launch, but the full
	// list must not be walked once a mirror answered.
	if int(probes.Load()) > len(fastDomains) {
		t.Errorf("probed %d domains, more than the fast list", probes.Load())
	}
}

func TestOpenURL_BuildsDOIPath(t *testing.T) {
	a := NewAccessor(nil)
	a.probe = func(_ context.Context, domain string) bool { return domain == "sci-hub.se" }

	got := a.OpenURL(context.Background(), "10.1000/xyz123")
	if want := "https://sci-hub.se/10.1000/xyz123"; got != want {
		t.Errorf("OpenURL() = %q, want %q", got, want)
	}
}

func TestOpenURL_NoMirror(t *testing.T) {
	a := NewAccessor(nil)
	a.probe = func(context.Context, string) bool { return false }

	if got := a.OpenURL(context.Background(), "10.1/1"); got != "" {
		t.Errorf("OpenURL() = %q, want empty", got)
	}
}

func TestProbeDomain_ChecksIndicators(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>Sci-Hub: research papers for all</html>"))
	}))
	defer live.Close()
	parked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>This domain is for sale</html>"))
	}))
	defer parked.Close()

	a := NewAccessor(nil)
	if !a.probeURL(context.Background(), live.URL) {
		t.Error("live mirror page not recognized")
	}
	if a.probeURL(context.Background(), parked.URL) {
		t.Error("parked page recognized as a mirror")
	}
}
