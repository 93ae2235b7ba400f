package validate

import "strings"

// denylist holds substrings whose presence rejects a draft outright:
// OS access, process spawning, file I/O, dynamic imports, and standard
// stream tampering. Matching is case-insensitive.
var denylist = []string{
	"import os",
	"import subprocess",
	"from subprocess",
	"import socket",
	"import shutil",
	"open(",
	"exec(",
	"eval(",
	"compile(",
	"__import__",
	"importlib",
	"os.system",
	"os.popen",
	"sys.stdout",
	"sys.stderr",
	"sys.stdin",
	"globals(",
	"locals(",
}

// Screener rejects rule source containing forbidden syntactic patterns
// before it reaches the sandbox. Failing cheaply here avoids paying for
// sandbox provisioning on drafts that could never be accepted.
type Screener struct {
	patterns []string
}

// NewScreener creates a screener with the canonical denylist.
func NewScreener() *Screener {
	return &Screener{patterns: denylist}
}

// NewScreenerWithPatterns creates a screener with extra patterns appended
// to the canonical denylist.
func NewScreenerWithPatterns(extra ...string) *Screener {
	return &Screener{patterns: append(append([]string{}, denylist...), extra...)}
}

// Screen scans the source text and returns the first matched forbidden
// pattern, or ok=true if the code passes.
func (s *Screener) Screen(code string) (pattern string, ok bool) {
	lowered := strings.ToLower(code)
	for _, p := range s.patterns {
		if strings.Contains(lowered, p) {
			return p, false
		}
	}
	return "", true
}
