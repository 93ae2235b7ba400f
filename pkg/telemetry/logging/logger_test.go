package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("json format emits parseable records", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		logger.Info("bundle persisted", "firm", "acme", "rules", 3)

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if record["msg"] != "bundle persisted" || record["firm"] != "acme" {
			t.Errorf("record = %v", record)
		}
	})

	t.Run("level filters records", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{Level: "warn", Writer: &buf})
		if err != nil {
			t.Fatal(err)
		}

		logger.Info("hidden")
		logger.Warn("visible")

		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		if _, err := New(Config{Level: "loud"}); err == nil {
			t.Error("invalid level accepted")
		}
		if _, err := New(Config{Format: "xml"}); err == nil {
			t.Error("invalid format accepted")
		}
	})
}
