// Package app wires the selection pipeline together and manages the
// application lifecycle: settings, rule store, event bus, pipeline
// controller, overlay, and the gesture scanner.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dshills/selact/internal/ai"
	"github.com/dshills/selact/internal/capture"
	"github.com/dshills/selact/internal/config"
	"github.com/dshills/selact/internal/dispatch"
	"github.com/dshills/selact/internal/event"
	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/match"
	"github.com/dshills/selact/internal/overlay"
	"github.com/dshills/selact/internal/pipeline"
	"github.com/dshills/selact/internal/rule"
	"github.com/dshills/selact/internal/scanner"
	"github.com/dshills/selact/internal/scihub"
	"github.com/dshills/selact/internal/script"
	"github.com/dshills/selact/internal/window"
)

// actionsFileName is the rule file under the config directory.
const actionsFileName = "actions.json"

// Application is the central coordinator for all components.
type Application struct {
	log      *logging.Logger
	settings *config.Manager
	store    *rule.Store
	bus      *event.Bus

	controller *pipeline.Controller
	overlay    *overlay.Overlay
	scanner    *scanner.Scanner
	aiService  *ai.Service
	scripts    *script.ExecRunner

	running atomic.Bool
}

// Options configures the application.
type Options struct {
	// ConfigDir overrides the settings/rules directory.
	ConfigDir string

	// LogLevel sets the logging verbosity; overrides settings.
	LogLevel string

	// Source overrides the capture backend. Nil uses the clipboard.
	Source capture.Source

	// WindowManager overrides the platform window backend.
	WindowManager window.Manager
}

// New creates an application and wires its components.
func New(opts Options) (*Application, error) {
	configDir, err := resolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	settings := config.NewManager(filepath.Join(configDir, "settings.json"))
	s := settings.Settings()

	logLevel := s.Logging.Level
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	log, err := buildLogger(logLevel, s.Logging.File)
	if err != nil {
		return nil, err
	}

	a := &Application{
		log:      log,
		settings: settings,
		bus:      event.NewBus(),
	}

	a.store = rule.NewStore(
		filepath.Join(configDir, actionsFileName),
		rule.WithLogger(log),
		rule.WithReloadHook(func(count int) {
			if err := a.bus.Publish(context.Background(), event.TopicRulesReloaded, count); err != nil {
				a.log.Debug("publish rules reload: %v", err)
			}
		}),
	)

	a.aiService = ai.NewService(settings, log)

	scriptsDir := s.Scripts.Dir
	if !filepath.IsAbs(scriptsDir) {
		scriptsDir = filepath.Join(configDir, scriptsDir)
	}
	a.scripts = script.NewExecRunner(scriptsDir, time.Duration(s.Scripts.TimeoutSeconds)*time.Second, log)

	mgr := opts.WindowManager
	if mgr == nil {
		mgr = window.NopManager{}
	}
	coord := window.NewCoordinator(s.Window.Width, s.Window.MinHeight)

	dispatcher := dispatch.New(
		dispatch.BrowserOpener{},
		a.aiService,
		a.scripts,
		scihub.NewAccessor(log),
		log,
	)
	a.overlay = overlay.New(dispatcher, coord, mgr, overlay.WithLogger(log))

	source := opts.Source
	if source == nil {
		source = capture.NewClipboardSource(capture.WithCaptureLogger(log))
	}
	a.controller = pipeline.New(
		source,
		a.store,
		match.NewMatcher(log),
		a.bus,
		coord,
		mgr,
		pipeline.WithBlacklist(a.aiService),
		pipeline.WithLogger(log),
	)

	a.scanner = scanner.New(scannerConfig(s.Hotkey), a.controller, log)
	return a, nil
}

// Start runs the event bus and subscribes the overlay to capture
// messages.
func (a *Application) Start() error {
	if a.running.Swap(true) {
		return nil
	}
	if err := a.bus.Start(); err != nil {
		return err
	}

	_, err := a.bus.Subscribe(event.TopicTriggerSelection, func(ctx context.Context, env event.Envelope) {
		payload, ok := env.Payload.(event.SelectionPayload)
		if !ok {
			a.log.Warn("unexpected selection payload %T", env.Payload)
			return
		}
		a.overlay.Show(ctx, payload.CapturedText, payload.Actions)
		if payload.AIResult != nil {
			a.overlay.HandleResult(ctx, *payload.AIResult)
		}
	})
	if err != nil {
		return err
	}

	// Spotlight triggers arrive as raw point payloads from platform hooks.
	_, err = a.bus.Subscribe(event.TopicTriggerSpotlight, func(ctx context.Context, env event.Envelope) {
		raw, ok := env.Payload.([]byte)
		if !ok {
			a.log.Warn("unexpected spotlight payload %T", env.Payload)
			return
		}
		a.controller.TriggerSpotlight(ctx, raw)
	})
	if err != nil {
		return err
	}

	_, err = a.bus.Subscribe(event.TopicOverlayHide, func(ctx context.Context, _ event.Envelope) {
		a.overlay.Close(ctx)
	})
	if err != nil {
		return err
	}

	if err := a.store.Watch(); err != nil {
		a.log.Warn("rule watcher unavailable: %v", err)
	}
	a.log.Info("application started")
	return nil
}

// Shutdown stops the bus and releases resources. Safe to call twice.
func (a *Application) Shutdown() {
	if !a.running.Swap(false) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.bus.Stop(ctx); err != nil {
		a.log.Warn("bus stop: %v", err)
	}
	a.store.Close()
	a.scripts.Close()
	a.log.Info("application stopped")
}

// Controller returns the pipeline entry point for trigger adapters.
func (a *Application) Controller() *pipeline.Controller { return a.controller }

// Overlay returns the overlay for input adapters.
func (a *Application) Overlay() *overlay.Overlay { return a.overlay }

// Scanner returns the gesture scanner for raw input hooks.
func (a *Application) Scanner() *scanner.Scanner { return a.scanner }

// Store returns the rule store.
func (a *Application) Store() *rule.Store { return a.store }

// Settings returns the settings manager.
func (a *Application) Settings() *config.Manager { return a.settings }

// AI returns the AI service.
func (a *Application) AI() *ai.Service { return a.aiService }

// resolveConfigDir picks the config directory: explicit override, then
// the user config dir, then the executable's directory, then the cwd.
func resolveConfigDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "selact"), nil
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe), nil
	}
	return os.Getwd()
}

// buildLogger creates the application logger from settings.
func buildLogger(level, file string) (*logging.Logger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLogLevel(level)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cfg.Output = f
	}
	return logging.NewLogger(cfg), nil
}

// scannerConfig translates hotkey settings into scanner config.
func scannerConfig(h config.HotkeyConfig) scanner.Config {
	cfg := scanner.Config{
		Mode:          scanner.ModeDoublePress,
		PressKey:      h.DoublePressKey,
		PressInterval: time.Duration(h.DoublePressIntervalMS) * time.Millisecond,
	}
	if !h.DoublePressEnabled && h.SelectMoveEnabled {
		cfg.Mode = scanner.ModeSelectMove
	}
	return cfg
}
