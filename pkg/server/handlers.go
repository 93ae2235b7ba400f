package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clearpath-hq/sentinel/pkg/audit"
	"clearpath-hq/sentinel/pkg/directory"
	"clearpath-hq/sentinel/pkg/evaluate"
	"clearpath-hq/sentinel/pkg/nlquery"
	"clearpath-hq/sentinel/pkg/quota"
	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/server/middleware"
)

type ingestRequest struct {
	FirmName   string `json:"firm_name"`
	PolicyText string `json:"policy_text"`
}

type ingestRuleSummary struct {
	RuleName    string `json:"rule_name"`
	Description string `json:"description"`
	Attempts    int    `json:"attempts"`
	Validated   bool   `json:"validated"`
}

type ingestResponse struct {
	Status          string              `json:"status"`
	FirmName        string              `json:"firm_name"`
	RulesDeployed   int                 `json:"rules_deployed"`
	TotalIterations int                 `json:"total_iterations"`
	PolicyVersion   string              `json:"policy_version"`
	Rules           []ingestRuleSummary `json:"rules"`
}

// handleIngest runs the synthesis pipeline for one firm. The connection is
// held open for the duration; the server's write timeout is sized for it.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON")
		return
	}
	req.FirmName = strings.TrimSpace(req.FirmName)
	req.PolicyText = strings.TrimSpace(req.PolicyText)
	if req.FirmName == "" || req.PolicyText == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "firm_name and policy_text are required")
		return
	}

	bundle, err := s.pipeline.Ingest(r.Context(), req.FirmName, req.PolicyText)
	if err != nil {
		s.recordAudit(&audit.Record{
			RequestID: middleware.GetRequestID(r.Context()),
			Kind:      audit.KindIngest,
			FirmName:  req.FirmName,
			Error:     err.Error(),
		})
		var exhausted *quota.ExhaustedError
		if errors.As(err, &exhausted) {
			writeError(w, http.StatusTooManyRequests, codeQuotaExceeded, exhausted.Error())
			return
		}
		s.logger.Error("ingestion failed", "firm", req.FirmName, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "policy ingestion failed")
		return
	}

	summaries := make([]ingestRuleSummary, 0, len(bundle.Rules))
	for i := range bundle.Rules {
		rule := &bundle.Rules[i]
		summaries = append(summaries, ingestRuleSummary{
			RuleName:    rule.RuleName,
			Description: rule.Description,
			Attempts:    rule.GenerationAttempt,
			Validated:   rule.Validated(),
		})
	}

	s.recordAudit(&audit.Record{
		RequestID:  middleware.GetRequestID(r.Context()),
		Kind:       audit.KindIngest,
		FirmName:   req.FirmName,
		RuleCount:  len(bundle.Rules),
		Iterations: bundle.TotalIterations,
		Allowed:    true,
		DurationMS: time.Since(start).Milliseconds(),
	})

	writeJSON(w, http.StatusOK, ingestResponse{
		Status:          "SUCCESS",
		FirmName:        bundle.FirmName,
		RulesDeployed:   len(bundle.Rules),
		TotalIterations: bundle.TotalIterations,
		PolicyVersion:   bundle.PolicyVersion,
		Rules:           summaries,
	})
}

type checkRequest struct {
	FirmName   string `json:"firm_name"`
	EmployeeID string `json:"employee_id"`
	Query      string `json:"query"`
	TradeDate  string `json:"trade_date,omitempty"`
}

type checkResponse struct {
	Status      string                   `json:"status"`
	FirmName    string                   `json:"firm_name"`
	EmployeeID  string                   `json:"employee_id"`
	ParsedQuery nlquery.ParsedQuery      `json:"parsed_query"`
	Compliance  *rules.ComplianceVerdict `json:"compliance"`
}

// handleCheck answers one trade question against the firm's stored rules.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON")
		return
	}
	req.FirmName = strings.TrimSpace(req.FirmName)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.Query = strings.TrimSpace(req.Query)
	if req.FirmName == "" || req.EmployeeID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "firm_name, employee_id, and query are required")
		return
	}

	parsed, err := s.parser.Parse(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeParseError, err.Error())
		return
	}

	employee, err := s.directory.Lookup(r.Context(), req.EmployeeID)
	if err != nil {
		var notFound *directory.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, codeEmployeeNotFound, notFound.Error())
			return
		}
		s.logger.Error("directory lookup failed", "employee", req.EmployeeID, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "directory lookup failed")
		return
	}

	// Explicit trade_date wins, then the date parsed from the question,
	// then today.
	tradeDate := strings.TrimSpace(req.TradeDate)
	if tradeDate == "" {
		tradeDate = parsed.TradeDate
	}
	if tradeDate == "" {
		tradeDate = time.Now().UTC().Format("2006-01-02")
	}
	parsed.TradeDate = tradeDate

	input := evaluate.RunInput{
		Employee: employee,
		Security: rules.Security{
			"ticker":           parsed.Ticker,
			"requested_action": parsed.Action,
		},
		TradeDate: tradeDate,
	}
	verdict, err := s.evaluator.Evaluate(r.Context(), req.FirmName, input)
	if err != nil {
		s.logger.Error("compliance check failed", "firm", req.FirmName, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "compliance check failed")
		return
	}

	s.recordAudit(&audit.Record{
		RequestID:    middleware.GetRequestID(r.Context()),
		Kind:         audit.KindCheck,
		FirmName:     req.FirmName,
		EmployeeID:   req.EmployeeID,
		Query:        req.Query,
		Ticker:       parsed.Ticker,
		Action:       parsed.Action,
		TradeDate:    tradeDate,
		Allowed:      verdict.Allowed,
		Reasons:      verdict.Reasons,
		RulesChecked: len(verdict.RulesChecked),
		DurationMS:   time.Since(start).Milliseconds(),
	})

	writeJSON(w, http.StatusOK, checkResponse{
		Status:      "SUCCESS",
		FirmName:    req.FirmName,
		EmployeeID:  req.EmployeeID,
		ParsedQuery: *parsed,
		Compliance:  verdict,
	})
}

type firmRulesResponse struct {
	Status string             `json:"status"`
	Bundle *rules.RulesBundle `json:"bundle"`
}

// handleFirmRules returns a firm's stored bundle for inspection.
func (s *Server) handleFirmRules(w http.ResponseWriter, r *http.Request) {
	firm := r.PathValue("firm")
	if strings.TrimSpace(firm) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "firm name is required")
		return
	}

	bundle, err := s.store.Load(r.Context(), firm)
	if err != nil {
		s.logger.Error("bundle load failed", "firm", firm, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to load rules")
		return
	}
	if bundle == nil {
		writeError(w, http.StatusNotFound, "FIRM_NOT_FOUND",
			fmt.Sprintf("no rules ingested for firm %q", firm))
		return
	}
	writeJSON(w, http.StatusOK, firmRulesResponse{Status: "SUCCESS", Bundle: bundle})
}

func (s *Server) recordAudit(record *audit.Record) {
	if s.recorder != nil {
		s.recorder.Record(record)
	}
}
