package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/bridge"
	"github.com/brieflyhq/briefly/pkg/logging"
)

func testDeps() *Deps {
	return &Deps{
		LoadConfig: func() (*config.Config, error) { return config.Default(), nil },
		NewLogger:  func(*config.Config) logging.Logger { return logging.NewNopLogger() },
	}
}

func writeBatchFile(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runCommand(t *testing.T, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestResolveCommandEmails(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	path := writeBatchFile(t, resolveInput{
		Emails: []bridge.EmailInput{
			{ID: "e1", Subject: "Your verification code is 123456", Importance: "routine"},
			{ID: "e2", Subject: "Lunch on Friday?", Importance: "time_sensitive"},
		},
	})

	cmd := NewResolveCommand(testDeps())
	out, err := runCommand(t, cmd, []string{"--input", path, "--now", now.Format(time.RFC3339)})
	require.NoError(t, err)

	var result resolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, digest.ImportanceCritical, result.Decisions[0].Importance)
	assert.Equal(t, bridge.SourceGuardrail, result.Decisions[0].Source)
	assert.Equal(t, digest.ImportanceTimeSensitive, result.Decisions[1].Importance)
	assert.Equal(t, bridge.SourceGemini, result.Decisions[1].Source)
}

func TestResolveCommandEntities(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	path := writeBatchFile(t, resolveInput{
		Entities: []*digest.Entity{
			{
				SourceEmailID: "evt-1",
				EntityType:    digest.EntityTypeEvent,
				Importance:    digest.ImportanceRoutine,
				Title:         "Dentist",
				EventTime:     now.Add(30 * time.Minute).Format(time.RFC3339),
			},
			{
				SourceEmailID: "promo-1",
				EntityType:    digest.EntityTypePromo,
				Importance:    digest.ImportanceRoutine,
				Merchant:      "REI",
				Offer:         "20% off",
			},
		},
	})

	cmd := NewResolveCommand(testDeps())
	out, err := runCommand(t, cmd, []string{"--input", path, "--now", now.Format(time.RFC3339), "--stats"})
	require.NoError(t, err)

	var result resolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Sections[digest.SectionToday], 1)
	assert.Equal(t, "evt-1", result.Sections[digest.SectionToday][0].SourceEmailID)
	require.Len(t, result.Sections[digest.SectionWorthKnowing], 1)
	assert.Equal(t, int64(2), result.Stats.TotalProcessed)
}

func TestResolveCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{
			name: "missing input flag",
			args: func(t *testing.T) []string { return nil },
		},
		{
			name: "unreadable input file",
			args: func(t *testing.T) []string {
				return []string{"--input", filepath.Join(t.TempDir(), "missing.json")}
			},
		},
		{
			name: "invalid now flag",
			args: func(t *testing.T) []string {
				path := writeBatchFile(t, resolveInput{})
				return []string{"--input", path, "--now", "yesterday"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewResolveCommand(testDeps())
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs(tt.args(t))
			require.Error(t, cmd.Execute())
		})
	}
}
