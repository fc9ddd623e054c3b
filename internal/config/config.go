// Package config loads and persists user settings from settings.json.
// Reads are tolerant: a missing or partially-malformed file yields
// defaults for the affected sections rather than an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// settingsTTL bounds how long a loaded settings snapshot is served before
// the file is consulted again.
const settingsTTL = 5 * time.Minute

// Manager owns the settings file and hands out section snapshots.
// Snapshots are values; mutating one does not modify stored settings.
type Manager struct {
	mu       sync.Mutex
	path     string
	cached   Settings
	loadedAt time.Time
}

// Settings is the full settings document.
type Settings struct {
	AI      AIConfig      `json:"ai"`
	Hotkey  HotkeyConfig  `json:"hotkey"`
	Window  WindowConfig  `json:"window"`
	Logging LoggingConfig `json:"logging"`
	Scripts ScriptsConfig `json:"scripts"`
}

// NewManager creates a settings manager backed by the file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// DefaultPath returns the settings file location under the user's config
// directory, falling back to the working directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(dir, "selact", "settings.json")
}

// Path returns the backing file path.
func (m *Manager) Path() string { return m.path }

// Settings returns the current settings, re-reading the file when the
// cached snapshot is older than the TTL.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.loadedAt) < settingsTTL && !m.loadedAt.IsZero() {
		return m.cached
	}
	m.cached = m.loadLocked()
	m.loadedAt = time.Now()
	return m.cached
}

// Invalidate drops the cached snapshot so the next read hits the file.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadedAt = time.Time{}
}

// Save writes the settings document atomically and refreshes the cache.
func (m *Manager) Save(s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}

	m.mu.Lock()
	m.cached = s
	m.loadedAt = time.Now()
	m.mu.Unlock()
	return nil
}

// loadLocked reads the settings file section by section. Each section
// falls back to its defaults independently, so one bad section never
// poisons the rest.
func (m *Manager) loadLocked() Settings {
	s := DefaultSettings()
	content, err := os.ReadFile(m.path)
	if err != nil {
		return s
	}
	doc := gjson.ParseBytes(content)
	if !doc.IsObject() {
		return s
	}

	readAI(doc.Get("ai"), &s.AI)
	readHotkey(doc.Get("hotkey"), &s.Hotkey)
	readWindow(doc.Get("window"), &s.Window)
	readLogging(doc.Get("logging"), &s.Logging)
	readScripts(doc.Get("scripts"), &s.Scripts)
	return s
}

func readAI(sec gjson.Result, c *AIConfig) {
	if !sec.IsObject() {
		return
	}
	strField(sec, "provider", &c.Provider)
	strField(sec, "api_key", &c.APIKey)
	strField(sec, "base_url", &c.BaseURL)
	strField(sec, "model", &c.Model)
	strField(sec, "target_language", &c.TargetLanguage)
	if v := sec.Get("blacklist"); v.IsArray() {
		c.Blacklist = c.Blacklist[:0]
		for _, item := range v.Array() {
			c.Blacklist = append(c.Blacklist, item.String())
		}
	}
}

func readHotkey(sec gjson.Result, c *HotkeyConfig) {
	if !sec.IsObject() {
		return
	}
	strField(sec, "shortcut", &c.Shortcut)
	boolField(sec, "double_press_enabled", &c.DoublePressEnabled)
	strField(sec, "double_press_key", &c.DoublePressKey)
	intField(sec, "double_press_interval_ms", &c.DoublePressIntervalMS)
	boolField(sec, "select_move_enabled", &c.SelectMoveEnabled)
}

func readWindow(sec gjson.Result, c *WindowConfig) {
	if !sec.IsObject() {
		return
	}
	intField(sec, "width", &c.Width)
	intField(sec, "min_height", &c.MinHeight)
	intField(sec, "display_height", &c.DisplayHeight)
}

func readLogging(sec gjson.Result, c *LoggingConfig) {
	if !sec.IsObject() {
		return
	}
	strField(sec, "level", &c.Level)
	strField(sec, "file", &c.File)
}

func readScripts(sec gjson.Result, c *ScriptsConfig) {
	if !sec.IsObject() {
		return
	}
	strField(sec, "dir", &c.Dir)
	intField(sec, "timeout_seconds", &c.TimeoutSeconds)
}

func strField(sec gjson.Result, key string, dst *string) {
	if v := sec.Get(key); v.Exists() && v.Type == gjson.String {
		*dst = v.String()
	}
}

func boolField(sec gjson.Result, key string, dst *bool) {
	if v := sec.Get(key); v.IsBool() {
		*dst = v.Bool()
	}
}

func intField(sec gjson.Result, key string, dst *int) {
	if v := sec.Get(key); v.Exists() && v.Type == gjson.Number {
		*dst = int(v.Int())
	}
}
