package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.BatchesTotal.WithLabelValues("ok").Inc()
	m.BatchSeconds.WithLabelValues("enrich").Observe(0.02)
	m.BatchEntities.Observe(12)
	m.EntitiesResolvedTotal.WithLabelValues("event", "temporal_active").Inc()
	m.ImportanceChangesTotal.WithLabelValues(DirectionEscalated).Inc()
	m.HiddenTotal.Inc()
	m.ParseErrorsTotal.Add(2)
	m.GuardrailHitsTotal.WithLabelValues("force_critical", "verification_code").Inc()
	m.DedupCollapsedTotal.WithLabelValues(PassThread).Add(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"digest_batches_total",
		"digest_batch_seconds",
		"digest_batch_entities",
		"digest_entities_resolved_total",
		"digest_importance_changes_total",
		"digest_entities_hidden_total",
		"digest_temporal_parse_errors_total",
		"digest_guardrail_hits_total",
		"digest_dedup_collapsed_total",
	} {
		assert.True(t, names[want], "metric %s not gathered", want)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ParseErrorsTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DedupCollapsedTotal.WithLabelValues(PassThread)))
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.HiddenTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.HiddenTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.HiddenTotal))
}
