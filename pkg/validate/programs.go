package validate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Sentinel tokens in program output.
const (
	syntaxOKToken    = "SYNTAX_OK"
	outputStartToken = "__RULE_OUTPUT__"
	outputEndToken   = "__RULE_OUTPUT_END__"
)

// syntaxProgram compiles the rule body as source. It prints SYNTAX_OK on
// success and exits non-zero with the parse error otherwise. The rule code
// travels as a base64 literal so no quoting can corrupt it.
const syntaxProgramTemplate = `import base64
src = base64.b64decode("%s").decode("utf-8")
try:
    compile(src, "<rule>", "exec")
    print("SYNTAX_OK")
except SyntaxError as exc:
    print("SYNTAX_ERROR line {}: {}".format(exc.lineno, exc.msg))
    raise SystemExit(1)
`

// functionalProgram executes the rule body in a fresh namespace, invokes
// the first callable it defined with the fixture, and prints the result as
// JSON between sentinel markers. The source is dedented first to tolerate
// indented generator output.
const functionalProgramTemplate = `import base64, json, textwrap
src = base64.b64decode("%s").decode("utf-8")
payload = json.loads(base64.b64decode("%s").decode("utf-8"))
namespace = {}
exec(textwrap.dedent(src), namespace)
rule_fn = None
for name, value in namespace.items():
    if name.startswith("__"):
        continue
    if callable(value):
        rule_fn = value
        break
if rule_fn is None:
    raise SystemExit("rule code defines no callable")
result = rule_fn(payload["employee"], payload["security"], payload["trade_date"])
print("__RULE_OUTPUT__")
print(json.dumps(result))
print("__RULE_OUTPUT_END__")
`

// buildSyntaxProgram renders the syntax-phase program for a rule body.
func buildSyntaxProgram(code string) string {
	return fmt.Sprintf(syntaxProgramTemplate,
		base64.StdEncoding.EncodeToString([]byte(code)))
}

// buildFunctionalProgram renders the functional-phase program for a rule
// body and fixture.
func buildFunctionalProgram(code string, fixture Fixture) (string, error) {
	payload, err := json.Marshal(fixture)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fixture: %w", err)
	}
	return fmt.Sprintf(functionalProgramTemplate,
		base64.StdEncoding.EncodeToString([]byte(code)),
		base64.StdEncoding.EncodeToString(payload)), nil
}

// bootstrapCommand wraps a program into a shell command that carries the
// whole program as one base64 literal, sidestepping shell quoting entirely.
func bootstrapCommand(program string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(program))
	return fmt.Sprintf(`python3 -c "import base64; exec(base64.b64decode('%s').decode('utf-8'))"`, encoded)
}

// extractRuleOutput returns the text between the output sentinels, or
// ok=false when either sentinel is missing.
func extractRuleOutput(stdout string) (string, bool) {
	start := strings.Index(stdout, outputStartToken)
	if start < 0 {
		return "", false
	}
	start += len(outputStartToken)
	end := strings.Index(stdout[start:], outputEndToken)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(stdout[start : start+end]), true
}
