// Sentinel turns written compliance policies into executable, sandbox
// validated trade rules and answers employee trade questions against them.
//
// Usage:
//
//	# Start the service with default configuration
//	sentinel run
//
//	# Start with a custom configuration file
//	sentinel run --config /etc/sentinel/config.yaml
//
//	# Ingest a policy document for a firm
//	sentinel ingest "Acme Corp" --file policies/acme.txt
//
//	# Ingest straight from a policy repository
//	sentinel ingest "Acme Corp" --git-repo https://example.com/policies.git --git-path acme/policy.md
//
//	# Ask a trade question from the terminal
//	sentinel check --firm "Acme Corp" --employee EMP001 --query "Can I buy AAPL tomorrow?"
//
//	# Inspect a firm's deployed rules
//	sentinel rules "Acme Corp"
package main

func main() {
	Execute()
}
