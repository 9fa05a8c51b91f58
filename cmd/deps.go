// Package cmd provides CLI commands for the briefly tool.
package cmd

import (
	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/pkg/digest/decay"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Deps carries the shared wiring commands need, injected by main so
// tests can substitute their own.
type Deps struct {
	LoadConfig func() (*config.Config, error)
	NewLogger  func(cfg *config.Config) logging.Logger
}

// decayPolicy translates the configured thresholds into a decay policy.
// Zero values fall back to the engine defaults inside NewResolver.
func decayPolicy(cfg *config.Config) decay.Policy {
	return decay.Policy{
		GracePeriod:        cfg.Decay.GracePeriod,
		UpcomingWindow:     cfg.Decay.UpcomingWindow,
		DeliveryStaleAfter: cfg.Decay.DeliveryStaleAfter,
	}
}
