package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clearpath-hq/sentinel/pkg/cli"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/evaluate"
	"clearpath-hq/sentinel/pkg/nlquery"
	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/store"
)

var checkFlags struct {
	firm     string
	employee string
	query    string
	date     string
	output   string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a trade question against a firm's rules",
	Long: `Parse a natural-language trade question and evaluate it against the
firm's deployed rules, without going through the HTTP API.

Examples:
  sentinel check --firm "Acme Corp" --employee EMP001 --query "Can I buy AAPL?"
  sentinel check --firm "Acme Corp" --employee EMP003 --query "short Tesla next week" --output json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.firm, "firm", "", "firm whose rules apply (required)")
	checkCmd.Flags().StringVar(&checkFlags.employee, "employee", "", "employee identifier (required)")
	checkCmd.Flags().StringVar(&checkFlags.query, "query", "", "trade question (required)")
	checkCmd.Flags().StringVar(&checkFlags.date, "date", "", "trade date (YYYY-MM-DD, default from query or today)")
	checkCmd.Flags().StringVarP(&checkFlags.output, "output", "o", "text", "output format (text, json)")
	_ = checkCmd.MarkFlagRequired("firm")
	_ = checkCmd.MarkFlagRequired("employee")
	_ = checkCmd.MarkFlagRequired("query")
}

type checkResult struct {
	Firm        string                   `json:"firm_name"`
	EmployeeID  string                   `json:"employee_id"`
	ParsedQuery *nlquery.ParsedQuery     `json:"parsed_query"`
	Compliance  *rules.ComplianceVerdict `json:"compliance"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	logger, err := setupCommandLogger(cfg)
	if err != nil {
		return err
	}

	parsed, err := nlquery.NewParser().Parse(checkFlags.query)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	dir, err := buildDirectory(cfg)
	if err != nil {
		return cli.NewConfigError("directory.path", err.Error())
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	employee, err := dir.Lookup(ctx, checkFlags.employee)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	tradeDate := checkFlags.date
	if tradeDate == "" {
		tradeDate = parsed.TradeDate
	}
	if tradeDate == "" {
		tradeDate = time.Now().UTC().Format("2006-01-02")
	}
	parsed.TradeDate = tradeDate

	st, err := store.New(cfg.Store.RulesDir, logger)
	if err != nil {
		return cli.NewConfigError("store.rules_dir", err.Error())
	}
	evaluator := buildEvaluator(cfg, st, nil, logger)

	verdict, err := evaluator.Evaluate(ctx, checkFlags.firm, evaluate.RunInput{
		Employee: employee,
		Security: rules.Security{
			"ticker":           parsed.Ticker,
			"requested_action": parsed.Action,
		},
		TradeDate: tradeDate,
	})
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	if checkFlags.output == string(cli.FormatJSON) {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, checkResult{
			Firm:        checkFlags.firm,
			EmployeeID:  checkFlags.employee,
			ParsedQuery: parsed,
			Compliance:  verdict,
		})
	}

	fmt.Printf("Parsed: %s %s on %s\n", parsed.Action, parsed.Ticker, parsed.TradeDate)
	if verdict.Allowed {
		fmt.Printf("ALLOWED (%d rules checked)\n", len(verdict.RulesChecked))
		return nil
	}
	fmt.Printf("DENIED (%d rules checked)\n", len(verdict.RulesChecked))
	for i, reason := range verdict.Reasons {
		ref := ""
		if i < len(verdict.PolicyRefs) && verdict.PolicyRefs[i] != "" {
			ref = fmt.Sprintf(" [%s]", verdict.PolicyRefs[i])
		}
		fmt.Printf("  - %s%s\n", reason, ref)
	}
	return nil
}
