package validate

import (
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

// Fixture is the canonical input set for the functional validation phase.
// It is a single smoke-test case, not a proof: a rule that passes here can
// still misbehave on other inputs.
type Fixture struct {
	Employee  rules.Employee `json:"employee"`
	Security  rules.Security `json:"security"`
	TradeDate string         `json:"trade_date"`
}

// CanonicalFixture returns the fixture every functional run uses: an
// analyst persona with restrictions and coverage across the mega-cap
// tickers, one live IPO deal, and a TSLA trade dated today (UTC).
func CanonicalFixture() Fixture {
	return Fixture{
		Employee: rules.Employee{
			"id":                 "EMP_FIXTURE",
			"role":               "analyst",
			"division":           "equity_research",
			"tier":               2,
			"can_trade":          true,
			"restricted_tickers": []string{"AAPL", "TSLA", "MSFT", "GOOGL"},
			"coverage_stocks":    []string{"AAPL", "TSLA", "MSFT", "GOOGL"},
			"active_deals": []map[string]any{
				{"company": "Nimbus Robotics", "ticker": "NMBR", "type": "IPO", "status": "active"},
			},
		},
		Security: rules.Security{
			"ticker":           "TSLA",
			"requested_action": "buy",
			"earnings_date":    "2025-11-20",
			"market_cap":       1e9,
			"is_covered":       true,
		},
		TradeDate: time.Now().UTC().Format("2006-01-02"),
	}
}
