// Package directory resolves employee IDs to their profile records.
//
// Production deployments would back this with an HR system; the built-in
// directory ships a demo roster so the service is usable out of the box.
package directory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"clearpath-hq/sentinel/pkg/rules"
)

// NotFoundError reports an unknown employee ID.
type NotFoundError struct {
	EmployeeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("employee %q not found", e.EmployeeID)
}

// Directory resolves employee IDs. Lookup returns a copy the caller may
// annotate freely.
type Directory interface {
	Lookup(ctx context.Context, employeeID string) (rules.Employee, error)
}

// Static is an in-memory directory.
type Static struct {
	mu        sync.RWMutex
	employees map[string]rules.Employee
}

// NewStatic creates a directory over the given roster, keyed by the
// employees' "id" field. Records without an id are skipped.
func NewStatic(roster []rules.Employee) *Static {
	employees := make(map[string]rules.Employee, len(roster))
	for _, e := range roster {
		if id := e.ID(); id != "" {
			employees[id] = e
		}
	}
	return &Static{employees: employees}
}

// NewDemo creates a directory preloaded with the demo roster.
func NewDemo() *Static {
	return NewStatic(demoRoster())
}

// Lookup returns a copy of the employee record.
func (s *Static) Lookup(ctx context.Context, employeeID string) (rules.Employee, error) {
	s.mu.RLock()
	e, ok := s.employees[employeeID]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{EmployeeID: employeeID}
	}
	return maps.Clone(e), nil
}

// Add inserts or replaces an employee record.
func (s *Static) Add(e rules.Employee) error {
	id := e.ID()
	if id == "" {
		return fmt.Errorf("employee record missing id")
	}
	s.mu.Lock()
	s.employees[id] = e
	s.mu.Unlock()
	return nil
}

// Annotate injects firm-level context into an employee record so rule code
// can consult it alongside personal fields. The record itself is copied;
// existing keys are never overwritten.
func Annotate(e rules.Employee, firmRestrictions []string, quickReference map[string]any) rules.Employee {
	annotated := maps.Clone(e)
	if _, ok := annotated["firm_restrictions"]; !ok && firmRestrictions != nil {
		annotated["firm_restrictions"] = firmRestrictions
	}
	if _, ok := annotated["quick_reference"]; !ok && quickReference != nil {
		annotated["quick_reference"] = quickReference
	}
	return annotated
}

// demoRoster covers the personas the built-in firm policies talk about:
// research analysts with restricted and covered tickers, a banker with a
// live deal, and back-office staff who cannot trade at all.
func demoRoster() []rules.Employee {
	return []rules.Employee{
		{
			"id":                 "EMP001",
			"role":               "analyst",
			"division":           "equity_research",
			"tier":               2,
			"can_trade":          true,
			"restricted_tickers": []string{"TSLA"},
			"coverage_stocks":    []string{"TSLA", "NVDA"},
		},
		{
			"id":                 "EMP002",
			"role":               "analyst",
			"division":           "equity_research",
			"tier":               2,
			"can_trade":          true,
			"restricted_tickers": []string{"AAPL"},
			"coverage_stocks":    []string{"AAPL", "MSFT"},
		},
		{
			"id":        "EMP003",
			"role":      "banker",
			"division":  "investment_banking",
			"tier":      1,
			"can_trade": true,
			"active_deals": []map[string]any{
				{"company": "Nimbus Robotics", "ticker": "NMBR", "type": "IPO", "status": "active"},
			},
		},
		{
			"id":        "EMP004",
			"role":      "trader",
			"division":  "markets",
			"tier":      3,
			"can_trade": true,
		},
		{
			"id":        "EMP005",
			"role":      "operations",
			"division":  "back_office",
			"tier":      1,
			"can_trade": false,
		},
		{
			"id":        "EMP006",
			"role":      "compliance",
			"division":  "legal",
			"tier":      2,
			"can_trade": true,
		},
	}
}
