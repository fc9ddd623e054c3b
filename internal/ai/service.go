// Package ai invokes a configured language-model backend for the text
// transforms: translate, summarize, and free-form process, plus rule
// generation from a natural-language description.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/selact/internal/config"
	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/rule"
)

// Service errors.
var (
	ErrNotConfigured   = errors.New("ai backend is not configured")
	ErrUnknownProvider = errors.New("unknown ai provider")
	ErrEmptyResponse   = errors.New("ai backend returned no content")
)

// Request is one completion request to a provider client.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
}

// Client is a provider backend. Implementations wrap one vendor SDK.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Service routes transforms to the provider selected in settings.
type Service struct {
	settings *config.Manager
	log      *logging.Logger

	// newClient is swappable for tests.
	newClient func(cfg config.AIConfig) (Client, error)
}

// NewService creates an AI service reading provider settings from the
// manager on every call, so settings edits apply without restart.
func NewService(settings *config.Manager, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NullLogger
	}
	return &Service{
		settings:  settings,
		log:       log.WithComponent("ai"),
		newClient: newProviderClient,
	}
}

// Blacklisted reports whether selections from the app should never be
// sent to the backend. Matching is case-insensitive; a blacklist entry
// matches on equality or substring containment.
func (s *Service) Blacklisted(appID string) bool {
	if appID == "" {
		return false
	}
	id := strings.ToLower(appID)
	for _, entry := range s.settings.Settings().AI.Blacklist {
		e := strings.ToLower(entry)
		if e == "" {
			continue
		}
		if id == e || strings.Contains(id, e) {
			return true
		}
	}
	return false
}

// Translate renders text into the other language per the bilingual
// translation prompt.
func (s *Service) Translate(ctx context.Context, text string) (rule.ActionResult, error) {
	out, err := s.complete(ctx, translateSystemPrompt, "翻译以下文本："+text, translateTemperature)
	if err != nil {
		return rule.ActionResult{}, err
	}
	return rule.ActionResult{Text: out, Kind: string(rule.ActionAITranslate), SourceText: text}, nil
}

// Summarize produces a concise summary of text.
func (s *Service) Summarize(ctx context.Context, text string) (rule.ActionResult, error) {
	out, err := s.complete(ctx, summarizeSystemPrompt, "Summarize the following text: "+text, summarizeTemperature)
	if err != nil {
		return rule.ActionResult{}, err
	}
	return rule.ActionResult{Text: out, Kind: string(rule.ActionAISummarize), SourceText: text}, nil
}

// Process applies a free-form intent to text.
func (s *Service) Process(ctx context.Context, text, intent string) (rule.ActionResult, error) {
	user := fmt.Sprintf("Intent: %s\nText: %s", intent, text)
	out, err := s.complete(ctx, processSystemPrompt, user, processTemperature)
	if err != nil {
		return rule.ActionResult{}, err
	}
	return rule.ActionResult{Text: out, Kind: string(rule.ActionAIProcess), SourceText: text}, nil
}

// GenerateRule asks the backend to draft a rule from a natural-language
// description. The result is validated and compiled before return.
func (s *Service) GenerateRule(ctx context.Context, description string) (rule.Rule, error) {
	out, err := s.complete(ctx, ruleGenSystemPrompt, description, ruleGenTemperature)
	if err != nil {
		return rule.Rule{}, err
	}

	var r rule.Rule
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &r); err != nil {
		return rule.Rule{}, fmt.Errorf("generated rule is not valid JSON: %w", err)
	}
	if err := r.Validate(); err != nil {
		return rule.Rule{}, fmt.Errorf("generated rule: %w", err)
	}
	if err := r.Compile(); err != nil {
		return rule.Rule{}, fmt.Errorf("generated rule: %w", err)
	}
	return r, nil
}

func (s *Service) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	cfg := s.settings.Settings().AI
	if cfg.APIKey == "" || strings.HasPrefix(cfg.APIKey, "YOUR") {
		return "", ErrNotConfigured
	}

	client, err := s.newClient(cfg)
	if err != nil {
		return "", err
	}

	s.log.Debug("ai request: provider=%s model=%s", cfg.Provider, cfg.Model)
	out, err := client.Complete(ctx, Request{
		Model:       cfg.Model,
		System:      system,
		User:        user,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", cfg.Provider, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// newProviderClient builds the SDK client for the configured provider.
func newProviderClient(cfg config.AIConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIClient(cfg), nil
	case "anthropic":
		return newAnthropicClient(cfg), nil
	case "gemini", "google":
		return newGeminiClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// stripCodeFence removes a surrounding markdown code fence, which models
// add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
