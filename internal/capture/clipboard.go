package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"

	"github.com/dshills/selact/internal/logging"
)

// settleDelay gives the platform's copy shortcut time to land in the
// clipboard before we read it back.
const settleDelay = 50 * time.Millisecond

// CopySimulator asks the OS to send the copy shortcut to the foreground
// application. Platform backends live outside this package.
type CopySimulator interface {
	SimulateCopy(ctx context.Context) error
}

// AppIdentifier reports the foreground application's canonical identifier.
type AppIdentifier interface {
	ForegroundApp(ctx context.Context) (string, error)
}

// ClipboardSource captures the selection by simulating a copy into the
// system clipboard and reading it back, restoring the user's previous
// clipboard contents afterwards.
type ClipboardSource struct {
	sim   CopySimulator
	ident AppIdentifier
	log   *logging.Logger
}

// ClipboardOption configures a ClipboardSource.
type ClipboardOption func(*ClipboardSource)

// WithCopySimulator sets the copy-shortcut backend. Without one the
// source reads whatever is already on the clipboard.
func WithCopySimulator(sim CopySimulator) ClipboardOption {
	return func(s *ClipboardSource) { s.sim = sim }
}

// WithAppIdentifier sets the foreground-app backend.
func WithAppIdentifier(ident AppIdentifier) ClipboardOption {
	return func(s *ClipboardSource) { s.ident = ident }
}

// WithCaptureLogger sets the source's logger.
func WithCaptureLogger(l *logging.Logger) ClipboardOption {
	return func(s *ClipboardSource) { s.log = l }
}

// NewClipboardSource creates a clipboard-backed capture source.
func NewClipboardSource(opts ...ClipboardOption) *ClipboardSource {
	s := &ClipboardSource{log: logging.NullLogger}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("capture")
	return s
}

// Capture implements Source.
func (s *ClipboardSource) Capture(ctx context.Context) (Context, error) {
	prev, prevErr := clipboard.ReadAll()

	if s.sim != nil {
		if err := s.sim.SimulateCopy(ctx); err != nil {
			return Context{}, fmt.Errorf("simulate copy: %w", err)
		}
		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return Context{}, ctx.Err()
		}
	}

	text, err := clipboard.ReadAll()
	if err != nil {
		return Context{}, fmt.Errorf("read clipboard: %w", err)
	}

	// Put the user's clipboard back once we have what we need.
	if s.sim != nil && prevErr == nil && prev != text {
		if err := clipboard.WriteAll(prev); err != nil {
			s.log.Warn("restore clipboard: %v", err)
		}
	}

	out := Context{Text: text}
	if out.Empty() {
		return Context{}, ErrNoSelection
	}

	if s.ident != nil {
		appID, err := s.ident.ForegroundApp(ctx)
		if err != nil {
			s.log.Debug("foreground app lookup failed: %v", err)
		} else {
			out.AppID = appID
		}
	}
	return out, nil
}

// CopyText places text on the system clipboard. Used by the overlay's
// copy-result action.
func CopyText(text string) error {
	return clipboard.WriteAll(text)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Context, error)

// Capture implements Source.
func (f SourceFunc) Capture(ctx context.Context) (Context, error) {
	return f(ctx)
}
