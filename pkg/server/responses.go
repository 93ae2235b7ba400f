package server

import (
	"encoding/json"
	"net/http"
)

// Error codes on the wire.
const (
	codeInvalidRequest   = "INVALID_REQUEST"
	codeParseError       = "PARSE_ERROR"
	codeEmployeeNotFound = "EMPLOYEE_NOT_FOUND"
	codeQuotaExceeded    = "QUOTA_EXCEEDED"
	codeInternalError    = "INTERNAL_ERROR"
)

type errorResponse struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Status: "ERROR", Code: code, Error: message})
}
