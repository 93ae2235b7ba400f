package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/providers"
	"clearpath-hq/sentinel/pkg/synth"
)

func toolUseResponse(t *testing.T, rulesPayload []map[string]any) []byte {
	t.Helper()
	resp := map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "test-model",
		"stop_reason": "tool_use",
		"content": []map[string]any{
			{
				"type":  "tool_use",
				"id":    "toolu_test",
				"name":  "emit_rules",
				"input": map[string]any{"rules": rulesPayload},
			},
		},
		"usage": map[string]any{"input_tokens": 100, "output_tokens": 50},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	g, err := NewGenerator(providers.ClientConfig{
		Name:    "anthropic",
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Timeout: 5 * time.Second,
	}, "test-model", 4096)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGenerate(t *testing.T) {
	t.Run("extracts rules from the forced tool call", func(t *testing.T) {
		var captured messagesRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/messages" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.Header.Get("x-api-key") != "sk-test" {
				t.Error("missing api key header")
			}
			if r.Header.Get("anthropic-version") == "" {
				t.Error("missing anthropic-version header")
			}
			_ = json.NewDecoder(r.Body).Decode(&captured)
			w.Write(toolUseResponse(t, []map[string]any{
				{
					"rule_id":          "restricted_list_block",
					"rule_name":        "Restricted List Block",
					"description":      "Blocks trades in restricted tickers",
					"policy_reference": "Section 2",
					"code":             "def rule(employee, security, trade_date):\n    return {'allowed': True}",
				},
			}))
		}))
		defer srv.Close()

		g := newTestGenerator(t, srv.URL)
		defer g.Close()

		drafts, err := g.Generate(context.Background(), synth.Request{
			PolicyText: "No trading restricted names.",
			FirmName:   "Meridian",
		})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(drafts) != 1 {
			t.Fatalf("got %d drafts, want 1", len(drafts))
		}
		if drafts[0].RuleID != "restricted_list_block" {
			t.Errorf("rule_id = %q", drafts[0].RuleID)
		}

		if captured.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", captured.Temperature)
		}
		if len(captured.Tools) != 1 || captured.Tools[0].Name != "emit_rules" {
			t.Error("expected a single emit_rules tool")
		}
	})

	t.Run("revision prompt carries failure context", func(t *testing.T) {
		var captured messagesRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&captured)
			w.Write(toolUseResponse(t, []map[string]any{
				{
					"rule_id":          "r1",
					"rule_name":        "R1",
					"description":      "d",
					"policy_reference": "p",
					"code":             "def rule(e, s, d):\n    return {'allowed': True}",
				},
			}))
		}))
		defer srv.Close()

		g := newTestGenerator(t, srv.URL)
		defer g.Close()

		_, err := g.Generate(context.Background(), synth.Request{
			PolicyText: "policy",
			FirmName:   "Meridian",
			PriorFailure: &synth.PriorFailure{
				Code:       "def rule(e, s, d): retrun True",
				Error:      "SyntaxError: invalid syntax",
				TestOutput: "",
			},
		})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		if len(captured.Messages) != 1 {
			t.Fatalf("got %d messages", len(captured.Messages))
		}
		body := captured.Messages[0].Content
		for _, want := range []string{"retrun True", "SyntaxError: invalid syntax", "exactly one revised rule"} {
			if !strings.Contains(body, want) {
				t.Errorf("revision prompt missing %q", want)
			}
		}
	})

	t.Run("skips malformed drafts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(toolUseResponse(t, []map[string]any{
				{"rule_id": "", "rule_name": "broken", "description": "", "policy_reference": "", "code": "x"},
				{"rule_id": "ok_rule", "rule_name": "ok", "description": "d", "policy_reference": "p", "code": "def rule(e,s,d): return {'allowed': True}"},
			}))
		}))
		defer srv.Close()

		g := newTestGenerator(t, srv.URL)
		defer g.Close()

		drafts, err := g.Generate(context.Background(), synth.Request{PolicyText: "p", FirmName: "f"})
		if err != nil {
			t.Fatal(err)
		}
		if len(drafts) != 1 || drafts[0].RuleID != "ok_rule" {
			t.Errorf("drafts = %+v", drafts)
		}
	})

	t.Run("errors when no tool call is present", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"m","type":"message","role":"assistant","model":"m","stop_reason":"end_turn","content":[{"type":"text","text":"sorry"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
		}))
		defer srv.Close()

		g := newTestGenerator(t, srv.URL)
		defer g.Close()

		if _, err := g.Generate(context.Background(), synth.Request{PolicyText: "p", FirmName: "f"}); err == nil {
			t.Error("expected error for missing tool call")
		}
	})
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewGenerator(providers.ClientConfig{}, "model", 0)
		if err == nil {
			t.Error("expected error for missing API key")
		}
	})

	t.Run("requires model", func(t *testing.T) {
		_, err := NewGenerator(providers.ClientConfig{APIKey: "k"}, "", 0)
		if err == nil {
			t.Error("expected error for missing model")
		}
	})
}
