package config

// Section accessor types are snapshot structs. Mutating a returned struct
// does not modify the underlying settings file; use Manager.Save to
// persist changes.

// AIConfig configures the AI transform backend.
type AIConfig struct {
	// Provider selects the backend: "openai", "anthropic", or "gemini".
	// Any OpenAI-compatible endpoint works with "openai" plus BaseURL.
	Provider string `json:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model"`

	// TargetLanguage is the translation target ("Chinese", "English", ...).
	TargetLanguage string `json:"target_language"`

	// Blacklist lists app identifiers whose selections are never sent to
	// the AI backend.
	Blacklist []string `json:"blacklist,omitempty"`
}

// HotkeyConfig configures the trigger gestures.
type HotkeyConfig struct {
	// Shortcut is the global hotkey in accelerator syntax.
	Shortcut string `json:"shortcut"`

	// DoublePressEnabled turns on the double-press modifier trigger.
	DoublePressEnabled bool `json:"double_press_enabled"`

	// DoublePressKey is the modifier watched for double presses.
	DoublePressKey string `json:"double_press_key"`

	// DoublePressIntervalMS is the double-press window in milliseconds.
	// Zero means the built-in default.
	DoublePressIntervalMS int `json:"double_press_interval_ms,omitempty"`

	// SelectMoveEnabled turns on the select-then-move mouse trigger.
	SelectMoveEnabled bool `json:"select_move_enabled"`
}

// WindowConfig configures overlay geometry constants.
type WindowConfig struct {
	// Width is the fixed overlay width in logical pixels.
	Width int `json:"width"`

	// MinHeight is the minimum overlay footprint height.
	MinHeight int `json:"min_height"`

	// DisplayHeight is the available display height used for clamping.
	// Zero means ask the platform at runtime.
	DisplayHeight int `json:"display_height,omitempty"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level"`

	// File is an optional log file path; empty logs to stderr.
	File string `json:"file,omitempty"`
}

// ScriptsConfig configures the external script runner.
type ScriptsConfig struct {
	// Dir is the directory relative script paths resolve against.
	Dir string `json:"dir"`

	// TimeoutSeconds bounds a single script run.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		AI: AIConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			TargetLanguage: "Chinese",
		},
		Hotkey: HotkeyConfig{
			Shortcut:           "CmdOrCtrl+Shift+Space",
			DoublePressEnabled: true,
			DoublePressKey:     "ctrl",
			SelectMoveEnabled:  true,
		},
		Window: WindowConfig{
			Width:     420,
			MinHeight: 72,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Scripts: ScriptsConfig{
			Dir:            "scripts",
			TimeoutSeconds: 30,
		},
	}
}
