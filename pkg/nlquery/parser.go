// Package nlquery extracts the structured trade question from free-form
// text: which ticker, which action, and for which date.
//
// This is deliberately a small lexical extractor, not language
// understanding. It recognizes uppercase ticker symbols, a table of
// well-known company names, the buy/sell verbs, and a few date forms.
package nlquery

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParsedQuery is the extractor's output contract. Ticker is required;
// Action defaults to "trade" when no verb is found; TradeDate is empty
// when the text names no date.
type ParsedQuery struct {
	Ticker    string `json:"ticker"`
	Action    string `json:"action"`
	TradeDate string `json:"trade_date,omitempty"`
}

// ParseError reports text the extractor could not resolve to a ticker.
type ParseError struct {
	Query string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not extract a ticker from query %q", e.Query)
}

// companyTickers maps lowercase company names to symbols. Longer names are
// matched first so "goldman sachs" wins over a hypothetical "goldman".
var companyTickers = []struct {
	name   string
	ticker string
}{
	{"berkshire hathaway", "BRK.B"},
	{"jpmorgan", "JPM"},
	{"microsoft", "MSFT"},
	{"alphabet", "GOOGL"},
	{"facebook", "META"},
	{"google", "GOOGL"},
	{"nvidia", "NVDA"},
	{"netflix", "NFLX"},
	{"amazon", "AMZN"},
	{"apple", "AAPL"},
	{"tesla", "TSLA"},
	{"meta", "META"},
}

// stopwords are uppercase tokens that look like tickers but are prose.
var stopwords = map[string]bool{
	"A": true, "I": true, "CAN": true, "THE": true, "BUY": true,
	"SELL": true, "TRADE": true, "OK": true, "IPO": true, "CEO": true,
	"ETF": true, "USD": true, "TODAY": true, "STOCK": true,
}

var (
	tickerPattern  = regexp.MustCompile(`\b[A-Z]{1,5}(?:\.[A-Z])?\b`)
	isoDatePattern = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// Parser extracts ParsedQuery values. The zero value is not usable; use
// NewParser.
type Parser struct {
	now func() time.Time
}

// NewParser creates a parser that resolves relative dates against the
// current UTC date.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Parse extracts the ticker, action, and trade date from a question.
func (p *Parser) Parse(query string) (*ParsedQuery, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, &ParseError{Query: query}
	}

	ticker := extractTicker(trimmed)
	if ticker == "" {
		return nil, &ParseError{Query: query}
	}

	return &ParsedQuery{
		Ticker:    ticker,
		Action:    extractAction(trimmed),
		TradeDate: p.extractDate(trimmed),
	}, nil
}

func extractTicker(query string) string {
	// An explicit symbol in the text wins over a company-name match.
	for _, candidate := range tickerPattern.FindAllString(query, -1) {
		if !stopwords[candidate] {
			return candidate
		}
	}
	lowered := strings.ToLower(query)
	for _, c := range companyTickers {
		if strings.Contains(lowered, c.name) {
			return c.ticker
		}
	}
	return ""
}

func extractAction(query string) string {
	lowered := strings.ToLower(query)
	switch {
	case containsWord(lowered, "buy") || containsWord(lowered, "purchase") || containsWord(lowered, "buying"):
		return "buy"
	case containsWord(lowered, "sell") || containsWord(lowered, "selling") || containsWord(lowered, "short"):
		return "sell"
	default:
		return "trade"
	}
}

func (p *Parser) extractDate(query string) string {
	if m := isoDatePattern.FindString(query); m != "" {
		if _, err := time.Parse("2006-01-02", m); err == nil {
			return m
		}
	}
	today := p.now().UTC()
	lowered := strings.ToLower(query)
	switch {
	case strings.Contains(lowered, "tomorrow"):
		return today.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(lowered, "today"):
		return today.Format("2006-01-02")
	case strings.Contains(lowered, "next week"):
		return today.AddDate(0, 0, 7).Format("2006-01-02")
	}
	return ""
}

func containsWord(text, word string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isLetter(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		start = i + len(word)
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
