package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clearpath-hq/sentinel/pkg/cli"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/store"
)

var rulesFlags struct {
	output string
	list   bool
}

var rulesCmd = &cobra.Command{
	Use:   "rules [firm]",
	Short: "Inspect deployed rule bundles",
	Long: `Print a firm's deployed rule bundle, or list every firm with
deployed rules.

Examples:
  # Show one firm's rules
  sentinel rules "Acme Corp"

  # Show the raw bundle document
  sentinel rules "Acme Corp" --output json

  # List firms with deployed rules
  sentinel rules --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesFlags.output, "output", "o", "text", "output format (text, json)")
	rulesCmd.Flags().BoolVar(&rulesFlags.list, "list", false, "list firms with deployed rules")
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	logger, err := setupCommandLogger(cfg)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store.RulesDir, logger)
	if err != nil {
		return cli.NewConfigError("store.rules_dir", err.Error())
	}

	if rulesFlags.list {
		firms, err := st.ListFirms(context.Background())
		if err != nil {
			return cli.NewCommandError("rules", err)
		}
		if len(firms) == 0 {
			fmt.Println("no deployed rule bundles")
			return nil
		}
		for _, firm := range firms {
			fmt.Println(firm)
		}
		return nil
	}

	if len(args) == 0 {
		return cli.NewConfigError("", "a firm name or --list is required")
	}
	firm := args[0]

	bundle, err := st.Load(context.Background(), firm)
	if err != nil {
		return cli.NewCommandError("rules", err)
	}
	if bundle == nil {
		return cli.NewCommandError("rules", fmt.Errorf("no rules ingested for firm %q", firm))
	}

	if rulesFlags.output == string(cli.FormatJSON) {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, bundle)
	}

	fmt.Printf("%s (policy version %s, %d rules, %d iterations)\n",
		bundle.FirmName, bundle.PolicyVersion, len(bundle.Rules), bundle.TotalIterations)
	for i := range bundle.Rules {
		rule := &bundle.Rules[i]
		state := "active"
		if !rule.Active {
			state = "inactive"
		}
		fmt.Printf("  - %s [%s, %d attempts]\n    %s\n", rule.RuleName, state, rule.GenerationAttempt, rule.Description)
	}
	return nil
}
