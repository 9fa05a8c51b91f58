// Package bridge reconciles guardrail verdicts with the upstream model's
// raw importance. It is the single authority for an email's final
// importance before temporal decay; nothing downstream re-derives it.
package bridge

import (
	"fmt"

	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/guardrail"
	"github.com/brieflyhq/briefly/pkg/digest/observability"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// DecisionSource identifies which authority produced the importance.
type DecisionSource string

const (
	SourceGuardrail DecisionSource = "guardrail"
	SourceGemini    DecisionSource = "gemini"
)

// EmailInput is the typed shape of an email arriving from upstream.
// Importance is the model's raw string; validation and the default-to-
// routine coercion happen explicitly in MapEmail, not via field access
// fallbacks.
type EmailInput struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Snippet    string `json:"snippet"`
	Type       string `json:"type"`
	Importance string `json:"importance"`
}

// Decision is the reconciled importance for one email.
type Decision struct {
	Importance digest.Importance  `json:"importance"`
	Reason     string             `json:"reason"`
	Source     DecisionSource     `json:"source"`
	RuleName   string             `json:"rule_name,omitempty"`
	Category   guardrail.Category `json:"guardrail,omitempty"`
}

// Mapper maps emails to decisions using the guardrail matcher first and
// the upstream model's importance as fallback.
type Mapper struct {
	matcher *guardrail.Matcher
	metrics *observability.Metrics
	logger  logging.Logger
}

// MapperOption configures the mapper.
type MapperOption func(*Mapper)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) MapperOption {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(metrics *observability.Metrics) MapperOption {
	return func(m *Mapper) {
		m.metrics = metrics
	}
}

// NewMapper creates a mapper backed by the given guardrail matcher.
func NewMapper(matcher *guardrail.Matcher, opts ...MapperOption) *Mapper {
	m := &Mapper{
		matcher: matcher,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logging.F("component", "bridge_mapper"))
	return m
}

// MapEmail resolves the final pre-decay importance for an email.
// A guardrail match is an absolute override: its importance is returned
// verbatim even against a model-asserted critical. Without a match the
// model's importance is validated and used as-is; an unrecognized value
// is coerced to routine with a warning.
func (m *Mapper) MapEmail(email EmailInput) Decision {
	if result := m.matcher.Evaluate(email.Subject, email.Snippet); result != nil {
		if m.metrics != nil {
			m.metrics.GuardrailHitsTotal.WithLabelValues(string(result.Category), result.RuleName).Inc()
		}
		return Decision{
			Importance: result.Importance,
			Reason:     result.Reason,
			Source:     SourceGuardrail,
			RuleName:   result.RuleName,
			Category:   result.Category,
		}
	}

	importance, err := digest.ParseImportance(email.Importance)
	if err != nil {
		m.logger.Warn("Unrecognized importance from upstream, coercing to routine",
			logging.Err(err),
			logging.F("email_id", email.ID))
		return Decision{
			Importance: importance,
			Reason:     fmt.Sprintf("unrecognized importance %q coerced to routine", email.Importance),
			Source:     SourceGemini,
		}
	}

	return Decision{
		Importance: importance,
		Reason:     "model importance accepted",
		Source:     SourceGemini,
	}
}
