package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"clearpath-hq/sentinel/pkg/providers"
	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/synth"
)

const (
	// apiVersion is the Anthropic API version header value.
	apiVersion = "2023-06-01"
)

// Generator implements synth.Generator against the Anthropic Messages API.
type Generator struct {
	*providers.Client
	model     string
	maxTokens int
}

// NewGenerator creates an Anthropic-backed rule generator.
func NewGenerator(cfg providers.ClientConfig, model string, maxTokens int) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, &providers.ConfigError{
			Adapter: "anthropic",
			Field:   "api_key",
			Message: "API key is required",
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if model == "" {
		return nil, &providers.ConfigError{
			Adapter: "anthropic",
			Field:   "model",
			Message: "model is required",
		}
	}
	if maxTokens == 0 {
		maxTokens = 8192
	}

	g := &Generator{
		Client:    providers.NewClient(cfg),
		model:     model,
		maxTokens: maxTokens,
	}

	slog.Info("anthropic generator initialized",
		"model", model,
		"base_url", cfg.BaseURL,
	)

	return g, nil
}

// Generate produces draft rules for the request. In revision mode (request
// carries a PriorFailure) the model is asked for exactly one revised rule.
func (g *Generator) Generate(ctx context.Context, req synth.Request) ([]rules.DraftRule, error) {
	if req.PolicyText == "" {
		return nil, fmt.Errorf("anthropic: empty policy text")
	}

	var userMsg string
	if req.PriorFailure != nil {
		userMsg = revisionPrompt(req.FirmName, req.PolicyText, req.PriorFailure)
	} else {
		userMsg = generationPrompt(req.FirmName, req.PolicyText)
	}

	apiReq := &messagesRequest{
		Model:       g.model,
		System:      systemPrompt,
		MaxTokens:   g.maxTokens,
		Temperature: 0, // pinned for reproducibility
		Messages:    []message{{Role: "user", Content: userMsg}},
		Tools:       []tool{emitRulesTool()},
		ToolChoice:  map[string]any{"type": "tool", "name": "emit_rules"},
	}

	url := fmt.Sprintf("%s/v1/messages", g.Config().BaseURL)
	headers := map[string]string{
		"x-api-key":         g.Config().APIKey,
		"anthropic-version": apiVersion,
		"Content-Type":      "application/json",
	}

	var apiResp messagesResponse
	if err := g.DoJSONRequest(ctx, "POST", url, apiReq, &apiResp, headers); err != nil {
		return nil, err
	}

	drafts, err := extractRules(&apiResp)
	if err != nil {
		return nil, &providers.ParseError{Adapter: g.Name(), Cause: err}
	}

	slog.Debug("rule generation completed",
		"firm", req.FirmName,
		"rules", len(drafts),
		"revision", req.PriorFailure != nil,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)

	return drafts, nil
}

// extractRules pulls the draft rules out of the forced tool call.
func extractRules(resp *messagesResponse) ([]rules.DraftRule, error) {
	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != "emit_rules" {
			continue
		}

		raw, err := json.Marshal(block.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to re-marshal tool input: %w", err)
		}

		var payload struct {
			Rules []rules.DraftRule `json:"rules"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("tool input does not match the rule schema: %w", err)
		}

		drafts := payload.Rules[:0]
		for _, d := range payload.Rules {
			if err := d.Validate(); err != nil {
				slog.Warn("generator emitted malformed draft, skipping",
					"rule_id", d.RuleID,
					"error", err,
				)
				continue
			}
			drafts = append(drafts, d)
		}
		return drafts, nil
	}

	return nil, fmt.Errorf("response contains no emit_rules tool call (stop_reason %q)", resp.StopReason)
}
