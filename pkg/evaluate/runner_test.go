package evaluate

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		if _, err := exec.LookPath("python"); err != nil {
			t.Skip("no python interpreter on PATH")
		}
	}
}

func TestLocalRunner(t *testing.T) {
	requirePython(t)
	ctx := context.Background()
	runner := NewLocalRunner("", "", 0)

	input := RunInput{
		Employee:  rules.Employee{"id": "EMP001", "role": "analyst", "restricted_tickers": []string{"TSLA"}},
		Security:  rules.Security{"ticker": "TSLA", "requested_action": "buy"},
		TradeDate: "2026-08-26",
	}

	t.Run("denying rule round trips", func(t *testing.T) {
		code := `def check_restricted(employee, security, trade_date):
    if security["ticker"] in employee.get("restricted_tickers", []):
        return {"allowed": False, "reason": "restricted ticker", "policy_ref": "Section 2"}
    return {"allowed": True}`

		res, err := runner.Run(ctx, code, input)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.Allowed || res.Reason != "restricted ticker" || res.PolicyRef != "Section 2" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("rule sees every employee field", func(t *testing.T) {
		code := `def check(employee, security, trade_date):
    return {"allowed": True, "reason": employee["role"] + ":" + trade_date}`

		res, err := runner.Run(ctx, code, input)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.Reason != "analyst:2026-08-26" {
			t.Errorf("reason = %q", res.Reason)
		}
	})

	t.Run("raising rule reports an execution error", func(t *testing.T) {
		code := `def check(employee, security, trade_date):
    raise ValueError("bad input")`

		if _, err := runner.Run(ctx, code, input); err == nil {
			t.Fatal("expected error")
		} else if !strings.Contains(err.Error(), "rule execution failed") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("non-dict output violates the contract", func(t *testing.T) {
		code := `def check(employee, security, trade_date):
    return True`

		if _, err := runner.Run(ctx, code, input); err == nil {
			t.Fatal("expected contract error")
		}
	})

	t.Run("hung rule is killed at the timeout", func(t *testing.T) {
		short := NewLocalRunner("", "", 500*time.Millisecond)
		code := `import time
def check(employee, security, trade_date):
    time.sleep(30)
    return {"allowed": True}`

		start := time.Now()
		_, err := short.Run(ctx, code, input)
		if err == nil {
			t.Fatal("expected timeout error")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("kill took %s", elapsed)
		}
	})
}
