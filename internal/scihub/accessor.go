// Package scihub locates a reachable Sci-Hub mirror for a DOI.
package scihub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dshills/selact/internal/logging"
)

// Probe settings.
const (
	probeTimeout    = 5 * time.Second
	probeUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxProbeBody    = 256 << 10
	probeConcurrent = 10
)

// domains is the full mirror list, roughly ordered by reliability.
var domains = []string{
	"sci-hub.se",
	"sci-hub.st",
	"sci-hub.ru",
	"sci-hub.ren",
	"sci-hub.shop",
	"sci-hub.wf",
	"sci-hub.ee",
	"sci-hub.do",
	"sci-hub.al",
	"sci-hub.mk",
	"sci-hub.box",
	"sci-hub.in",
	"sci-hub.cat",
	"www.wellesu.com",
	"www.pismin.com",
	"www.tesble.com",
	"sci-hub.usualwant.com",
	"sci-hub.sidesgame.com",
}

// fastDomains is the short head of the list used when only one mirror is
// needed quickly.
var fastDomains = domains[:8]

// indicators are page fragments that distinguish a live mirror from a
// parked domain.
var indicators = []string{"sci-hub", "scihub", "research papers", "download"}

// Accessor probes mirrors and builds DOI URLs.
type Accessor struct {
	client *http.Client
	log    *logging.Logger

	// probe is swappable for tests.
	probe func(ctx context.Context, domain string) bool
}

// NewAccessor creates an accessor with a bounded-timeout HTTP client.
func NewAccessor(log *logging.Logger) *Accessor {
	if log == nil {
		log = logging.NullLogger
	}
	a := &Accessor{
		client: &http.Client{Timeout: probeTimeout},
		log:    log.WithComponent("scihub"),
	}
	a.probe = a.probeDomain
	return a
}

// FindAvailable probes the full mirror list and returns up to limit
// reachable mirror URLs, earliest-listed first.
func (a *Accessor) FindAvailable(ctx context.Context, limit int) []string {
	return a.find(ctx, domains, limit)
}

// FastFindAvailable probes only the most reliable mirrors.
func (a *Accessor) FastFindAvailable(ctx context.Context, limit int) []string {
	return a.find(ctx, fastDomains, limit)
}

// OpenURL returns the mirror URL for a DOI, probing for a live mirror
// first. An empty string means no mirror responded.
func (a *Accessor) OpenURL(ctx context.Context, doi string) string {
	urls := a.FastFindAvailable(ctx, 1)
	if len(urls) == 0 {
		urls = a.FindAvailable(ctx, 1)
	}
	if len(urls) == 0 {
		return ""
	}
	return fmt.Sprintf("%s/%s", urls[0], doi)
}

// find probes candidate domains concurrently, at most probeConcurrent at
// a time, and stops handing out work once limit mirrors have answered.
func (a *Accessor) find(ctx context.Context, candidates []string, limit int) []string {
	if limit <= 0 {
		limit = 1
	}

	sem := semaphore.NewWeighted(probeConcurrent)
	var (
		mu    sync.Mutex
		found []string
		wg    sync.WaitGroup
	)

	for _, domain := range candidates {
		mu.Lock()
		enough := len(found) >= limit
		mu.Unlock()
		if enough {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			defer sem.Release(1)

			if !a.probe(ctx, domain) {
				a.log.Debug("mirror down: %s", domain)
				return
			}
			mu.Lock()
			if len(found) < limit {
				found = append(found, "https://"+domain)
			}
			mu.Unlock()
			a.log.Debug("mirror up: %s", domain)
		}(domain)
	}

	wg.Wait()
	return found
}

// probeDomain fetches the mirror's front page and checks it for the
// indicator fragments.
func (a *Accessor) probeDomain(ctx context.Context, domain string) bool {
	return a.probeURL(ctx, "https://"+domain)
}

func (a *Accessor) probeURL(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false
	}

	html := strings.ToLower(string(body))
	for _, ind := range indicators {
		if strings.Contains(html, ind) {
			return true
		}
	}
	return false
}
