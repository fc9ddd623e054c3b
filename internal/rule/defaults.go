package rule

// Defaults returns the built-in rule set used when no actions file exists
// anywhere. Patterns and priorities mirror the bundled defaults the app
// ships with.
func Defaults() []Rule {
	rules := []Rule{
		{
			Meta:  Meta{ID: "builtin-url", Name: "Open URL", Version: "1.0.0"},
			Scope: Scope{Include: []string{"*"}, Priority: 90},
			Trigger: Trigger{
				Kind:              TriggerRegex,
				Pattern:           `(https?://|www\.)([\w_-]+(?:(?:\.[\w_-]+)+))([\w.,@?^=%&:/~+#-]*[\w@?^=%&/~+#-])?`,
				ExtractionPattern: `(https?://|www\.)[\x21-\x7e]+`,
			},
			Action: URLAction{Template: PlaceholderToken},
		},
		{
			Meta:  Meta{ID: "builtin-doi", Name: "Open DOI", Version: "1.0.0"},
			Scope: Scope{Include: []string{"*"}, Priority: 95},
			Trigger: Trigger{
				Kind:              TriggerRegex,
				Pattern:           `\b10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`,
				ExtractionPattern: `10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`,
			},
			Action: SciHubAction{},
		},
		{
			Meta:  Meta{ID: "builtin-path-windows", Name: "Open File Path", Version: "1.0.0"},
			Scope: Scope{Include: []string{"*"}, Priority: 90},
			Trigger: Trigger{
				Kind:              TriggerRegex,
				Pattern:           `^[a-zA-Z]:\\(?:[^\\/:*?"<>|\r\n]+\\)*[^\\/:*?"<>|\r\n]*$`,
				ExtractionPattern: `[a-zA-Z]:\\(?:[^\\/:*?"<>|\r\n]+\\)*[^\\/:*?"<>|\r\n]*`,
			},
			Action: PathAction{},
		},
		{
			Meta:    Meta{ID: "builtin-ai-translate", Name: "Translate", Version: "1.0.0"},
			Scope:   Scope{Include: []string{"*"}, Priority: 50},
			Trigger: Trigger{Kind: TriggerRegex, Pattern: `.{5,}`},
			Action:  AIAction{Op: AITranslate},
		},
		{
			Meta:    Meta{ID: "builtin-ai-summarize", Name: "Summarize", Version: "1.0.0"},
			Scope:   Scope{Include: []string{"*"}, Priority: 40},
			Trigger: Trigger{Kind: TriggerRegex, Pattern: `.{100,}`},
			Action:  AIAction{Op: AISummarize},
		},
		{
			Meta:    Meta{ID: "builtin-local-format", Name: "Local Format", Version: "1.0.0"},
			Scope:   Scope{Include: []string{"*"}, Priority: 35},
			Trigger: Trigger{Kind: TriggerRegex, Pattern: `.{50,}`},
			Action:  LocalFormatAction{},
		},
		{
			Meta:    Meta{ID: "builtin-ai-format", Name: "AI Format", Version: "1.0.0"},
			Scope:   Scope{Include: []string{"*"}, Priority: 30},
			Trigger: Trigger{Kind: TriggerRegex, Pattern: `.{50,}`},
			Action:  AIAction{Op: AIProcess, Intent: "format_text"},
		},
		{
			Meta:    Meta{ID: "builtin-google-search", Name: "Google Search", Version: "1.0.0"},
			Scope:   Scope{Include: []string{"*"}, Priority: 10},
			Trigger: Trigger{Kind: TriggerRegex, Pattern: `.+`},
			Action:  URLAction{Template: "https://www.google.com/search?q=" + PlaceholderToken},
		},
	}

	for i := range rules {
		// Built-in patterns are known good; Compile cannot fail here.
		_ = rules[i].Compile()
	}
	return rules
}
