package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/pkg/digest/bridge"
	"github.com/brieflyhq/briefly/pkg/digest/guardrail"
)

// NewRulesCommand creates the rules command with its subcommands.
func NewRulesCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate guardrail rules",
		Long: `Rules works with the guardrail rule set: list the loaded rules in
evaluation order, validate a rule file, or test a subject/snippet pair
against the rules.`,
	}

	cmd.AddCommand(newRulesListCommand(deps))
	cmd.AddCommand(newRulesValidateCommand(deps))
	cmd.AddCommand(newRulesTestCommand(deps))

	return cmd
}

func newRulesListCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded guardrail rules in evaluation order",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			matcher := newMatcher(cfg, deps.NewLogger(cfg))

			categories := []guardrail.Category{
				guardrail.CategoryNeverSurface,
				guardrail.CategoryForceCritical,
				guardrail.CategoryForceNonCritical,
			}
			for _, category := range categories {
				rules := matcher.Rules(category)
				fmt.Fprintf(c.OutOrStdout(), "%s (%d rules, resolves to %s)\n",
					category, len(rules), category.Importance())
				for i, r := range rules {
					fmt.Fprintf(c.OutOrStdout(), "  %d. %s - %s\n", i+1, r.Name, r.Description)
				}
			}
			return nil
		},
	}
}

func newRulesValidateCommand(deps *Deps) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a guardrail rule file",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			path := rulesPath
			if path == "" {
				path = cfg.Guardrails.RulesPath
			}
			if path == "" {
				return fmt.Errorf("no rule file given; use --rules or set guardrails.rules_path")
			}

			matcher := guardrail.NewMatcher(
				guardrail.WithRulesFile(path),
				guardrail.WithLogger(deps.NewLogger(cfg)),
			)
			if err := matcher.LoadErr(); err != nil {
				return err
			}
			if matcher.RuleCount() == 0 {
				return fmt.Errorf("rule file %s loaded zero rules", path)
			}
			fmt.Fprintf(c.OutOrStdout(), "OK: %d rules loaded from %s\n", matcher.RuleCount(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file to validate")
	return cmd
}

func newRulesTestCommand(deps *Deps) *cobra.Command {
	var subject, snippet, importance string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a subject/snippet pair against the guardrails",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			logger := deps.NewLogger(cfg)
			mapper := bridge.NewMapper(newMatcher(cfg, logger), bridge.WithLogger(logger))

			decision := mapper.MapEmail(bridge.EmailInput{
				Subject:    subject,
				Snippet:    snippet,
				Importance: importance,
			})
			fmt.Fprintf(c.OutOrStdout(), "importance: %s\nsource: %s\nreason: %s\n",
				decision.Importance, decision.Source, decision.Reason)
			if decision.RuleName != "" {
				fmt.Fprintf(c.OutOrStdout(), "rule: %s (%s)\n", decision.RuleName, decision.Category)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&snippet, "snippet", "", "email snippet")
	cmd.Flags().StringVar(&importance, "importance", "routine", "upstream model importance")
	return cmd
}
