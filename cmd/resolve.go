package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/bridge"
	"github.com/brieflyhq/briefly/pkg/digest/decay"
	"github.com/brieflyhq/briefly/pkg/digest/dedup"
	"github.com/brieflyhq/briefly/pkg/digest/enrich"
	"github.com/brieflyhq/briefly/pkg/digest/guardrail"
	"github.com/brieflyhq/briefly/pkg/digest/pipeline"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// resolveInput is the shape of a batch file: emails to run through the
// bridge mapper, entities to run through the pipeline, or both.
type resolveInput struct {
	Emails   []bridge.EmailInput `json:"emails"`
	Entities []*digest.Entity    `json:"entities"`
}

// resolveOutput is what resolve prints as JSON.
type resolveOutput struct {
	Decisions []bridge.Decision                         `json:"decisions,omitempty"`
	Sections  map[digest.DigestSection][]*digest.Entity `json:"sections,omitempty"`
	Stats     enrich.Snapshot                           `json:"stats"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(deps *Deps) *cobra.Command {
	var (
		inputPath string
		nowFlag   string
		showStats bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve importance and digest placement for a batch file",
		Long: `Resolve reads a JSON batch file containing emails and/or entities.
Emails are run through the guardrail bridge and their decisions printed;
entities are enriched, deduplicated, and grouped into digest sections.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			logger := deps.NewLogger(cfg)

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("failed to read batch file: %w", err)
			}
			var input resolveInput
			if err := json.Unmarshal(data, &input); err != nil {
				return fmt.Errorf("failed to parse batch file: %w", err)
			}

			now := time.Now().UTC()
			if nowFlag != "" {
				now, err = decay.ParseTemporal(nowFlag)
				if err != nil {
					return fmt.Errorf("invalid --now value: %w", err)
				}
			}

			matcher := newMatcher(cfg, logger)
			out := resolveOutput{}

			if len(input.Emails) > 0 {
				mapper := bridge.NewMapper(matcher, bridge.WithLogger(logger))
				for _, email := range input.Emails {
					out.Decisions = append(out.Decisions, mapper.MapEmail(email))
				}
			}

			resolver := decay.NewResolver(decayPolicy(cfg))
			enricher := enrich.NewEnricher(resolver, enrich.WithLogger(logger))
			deduper := dedup.NewDeduplicator(dedup.WithLogger(logger))
			pipe := pipeline.New(enricher, deduper, pipeline.WithLogger(logger))

			if len(input.Entities) > 0 {
				batch := pipeline.NewBatch(input.Entities)
				batch.Now = now
				result, err := pipe.Process(c.Context(), batch)
				if err != nil {
					return err
				}
				out.Sections = result.Sections
			}

			if showStats {
				out.Stats = enricher.Stats().Snapshot()
			}

			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON batch file (required)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "resolution reference time (RFC3339, default wall clock)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "include enrichment stats in output")
	cmd.MarkFlagRequired("input")

	return cmd
}

func newMatcher(cfg *config.Config, logger logging.Logger) *guardrail.Matcher {
	opts := []guardrail.MatcherOption{guardrail.WithLogger(logger)}
	if cfg.Guardrails.RulesPath != "" {
		opts = append(opts, guardrail.WithRulesFile(cfg.Guardrails.RulesPath))
	}
	return guardrail.NewMatcher(opts...)
}
