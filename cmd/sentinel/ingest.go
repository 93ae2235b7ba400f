package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clearpath-hq/sentinel/pkg/cli"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/policysource"
	"clearpath-hq/sentinel/pkg/store"
	"clearpath-hq/sentinel/pkg/synth"
)

var ingestFlags struct {
	file      string
	gitRepo   string
	gitBranch string
	gitPath   string
	gitToken  string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <firm>",
	Short: "Synthesize and deploy rules from a policy document",
	Long: `Read a firm's compliance policy, synthesize executable rules from it,
validate every rule in a sandbox, and persist the resulting bundle.

The policy comes from a local file, stdin, or a git repository.

Examples:
  # Ingest from a local file
  sentinel ingest "Acme Corp" --file policies/acme.txt

  # Ingest from stdin
  cat policies/acme.txt | sentinel ingest "Acme Corp" --file -

  # Ingest from a policy repository
  sentinel ingest "Acme Corp" --git-repo https://example.com/policies.git --git-path acme/policy.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFlags.file, "file", "f", "", "policy document path")
	ingestCmd.Flags().StringVar(&ingestFlags.gitRepo, "git-repo", "", "policy repository URL")
	ingestCmd.Flags().StringVar(&ingestFlags.gitBranch, "git-branch", "main", "policy repository branch")
	ingestCmd.Flags().StringVar(&ingestFlags.gitPath, "git-path", "", "policy document path inside the repository")
	ingestCmd.Flags().StringVar(&ingestFlags.gitToken, "git-token", "", "token for private repositories")
}

func runIngest(cmd *cobra.Command, args []string) error {
	firm := args[0]

	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	logger, err := setupCommandLogger(cfg)
	if err != nil {
		return err
	}

	source, err := policySource()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	var policyText string
	if source != nil {
		policyText, err = source.Fetch(ctx)
	} else {
		policyText, err = readStdinPolicy()
	}
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	st, err := store.New(cfg.Store.RulesDir, logger)
	if err != nil {
		return cli.NewConfigError("store.rules_dir", err.Error())
	}
	quotaMeter, err := buildMeter(cfg)
	if err != nil {
		return cli.NewConfigError("quota.db_path", err.Error())
	}
	var meter synth.Meter
	if quotaMeter != nil {
		defer quotaMeter.Close()
		meter = quotaMeter
	}

	pipeline, err := buildPipeline(cfg, st, meter, nil, logger)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	fmt.Printf("Ingesting policy for %s (%d bytes)\n", firm, len(policyText))
	bundle, err := pipeline.Ingest(ctx, firm, policyText)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	fmt.Printf("✓ Deployed %d rules for %s (policy version %s, %d iterations)\n",
		len(bundle.Rules), bundle.FirmName, bundle.PolicyVersion, bundle.TotalIterations)
	for i := range bundle.Rules {
		rule := &bundle.Rules[i]
		fmt.Printf("  - %s (%d attempts)\n", rule.RuleName, rule.GenerationAttempt)
	}
	return nil
}

// policySource picks the configured policy origin, refusing ambiguous or
// incomplete flag combinations. A nil source with nil error means stdin.
func policySource() (policysource.Source, error) {
	switch {
	case ingestFlags.file != "" && ingestFlags.gitRepo != "":
		return nil, cli.NewConfigError("", "--file and --git-repo are mutually exclusive")
	case ingestFlags.file == "-":
		return nil, nil
	case ingestFlags.file != "":
		return policysource.NewFileSource(ingestFlags.file), nil
	case ingestFlags.gitRepo != "":
		return policysource.NewGitSource(policysource.GitConfig{
			Repository: ingestFlags.gitRepo,
			Branch:     ingestFlags.gitBranch,
			Path:       ingestFlags.gitPath,
			Token:      ingestFlags.gitToken,
		})
	default:
		return nil, cli.NewConfigError("", "either --file or --git-repo is required")
	}
}

// readStdinPolicy reads the policy document from stdin (--file -).
func readStdinPolicy() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read policy from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("stdin carried no policy text")
	}
	return text, nil
}
