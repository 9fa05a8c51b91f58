// Package decay implements temporal importance resolution.
// It adjusts an entity's stored importance based on how close its
// event/deadline window is to now, or how stale a notification is,
// and derives the digest section and visibility from the result.
package decay

import (
	"fmt"
	"strings"
	"time"

	"github.com/brieflyhq/briefly/pkg/digest"
	bferrors "github.com/brieflyhq/briefly/pkg/errors"
)

// Decay reasons recorded on each resolution.
const (
	ReasonNoTemporalData          = "no_temporal_data"
	ReasonNonTemporalType         = "non_temporal_type"
	ReasonExpired                 = "temporal_expired"
	ReasonActive                  = "temporal_active"
	ReasonUpcoming                = "temporal_upcoming"
	ReasonDistant                 = "temporal_distant"
	ReasonDistantButCritical      = "temporal_distant_but_critical"
	ReasonOTPActive               = "otp_active"
	ReasonDeliveryActive          = "delivery_active"
	ReasonDeliveryStale           = "delivery_stale"
)

// Default policy constants. These are configurable but the defaults
// must not change without revisiting the digest invariants.
const (
	DefaultGracePeriod        = time.Hour
	DefaultUpcomingWindow     = 7 * 24 * time.Hour
	DefaultDeliveryStaleAfter = 24 * time.Hour
)

// Policy holds the time-window thresholds for decay resolution.
type Policy struct {
	// GracePeriod pads the active window on both sides and delays expiry.
	GracePeriod time.Duration

	// UpcomingWindow is how far ahead an entity counts as upcoming
	// rather than distant.
	UpcomingWindow time.Duration

	// DeliveryStaleAfter is how long after delivery a package
	// notification decays to routine.
	DeliveryStaleAfter time.Duration
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		GracePeriod:        DefaultGracePeriod,
		UpcomingWindow:     DefaultUpcomingWindow,
		DeliveryStaleAfter: DefaultDeliveryStaleAfter,
	}
}

// Result is the outcome of a single decay resolution.
type Result struct {
	ResolvedImportance digest.Importance
	DecayReason        string
	WasModified        bool

	// ParseErrors counts malformed timestamps encountered while
	// extracting the entity's temporal fields. They never fail the
	// resolution; the affected fields degrade to "no temporal data".
	ParseErrors int
}

// Resolver applies the decay decision table. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	policy Policy
}

// NewResolver creates a resolver with the given policy. Zero thresholds
// fall back to the defaults.
func NewResolver(policy Policy) *Resolver {
	if policy.GracePeriod == 0 {
		policy.GracePeriod = DefaultGracePeriod
	}
	if policy.UpcomingWindow == 0 {
		policy.UpcomingWindow = DefaultUpcomingWindow
	}
	if policy.DeliveryStaleAfter == 0 {
		policy.DeliveryStaleAfter = DefaultDeliveryStaleAfter
	}
	return &Resolver{policy: policy}
}

// Policy returns the resolver's thresholds.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// temporalCapable reports whether the entity type carries a temporal
// window the generic table applies to. Receipts, promos and newsletters
// never decay; notifications are handled by the overlay and otherwise
// count as non-temporal.
func temporalCapable(t digest.EntityType) bool {
	switch t {
	case digest.EntityTypeEvent, digest.EntityTypeDeadline,
		digest.EntityTypeFlight, digest.EntityTypeReminder:
		return true
	case digest.EntityTypePromo, digest.EntityTypeReceipt,
		digest.EntityTypeNewsletter, digest.EntityTypeNotification:
		return false
	default:
		return false
	}
}

// expires reports whether the expiry rule applies to the entity type.
func expires(t digest.EntityType) bool {
	return t == digest.EntityTypeEvent || t == digest.EntityTypeDeadline
}

// Resolve applies the generic decay decision table. It is a pure
// function: rules are evaluated in order and the first match wins.
func (r *Resolver) Resolve(entityType digest.EntityType, stored digest.Importance, start, end *time.Time, now time.Time) Result {
	// Rule 2 outranks rule 1 only for types that can never carry a
	// window; a temporal type with no data still reads no_temporal_data.
	if !temporalCapable(entityType) {
		return unchanged(stored, ReasonNonTemporalType)
	}
	if start == nil {
		return unchanged(stored, ReasonNoTemporalData)
	}

	windowEnd := *start
	if end != nil {
		windowEnd = *end
	}

	// Rule 3: expired. Decay wins over stored criticality.
	if expires(entityType) && windowEnd.Add(r.policy.GracePeriod).Before(now) {
		return Result{
			ResolvedImportance: digest.ImportanceRoutine,
			DecayReason:        ReasonExpired,
			WasModified:        stored != digest.ImportanceRoutine,
		}
	}

	// Rule 4: active window [start-grace, end+grace].
	if !now.Before(start.Add(-r.policy.GracePeriod)) && !now.After(windowEnd.Add(r.policy.GracePeriod)) {
		return Result{
			ResolvedImportance: digest.ImportanceCritical,
			DecayReason:        ReasonActive,
			WasModified:        stored != digest.ImportanceCritical,
		}
	}

	// Rule 5: upcoming within the window. Stored critical is preserved.
	if start.Sub(now) <= r.policy.UpcomingWindow {
		if stored == digest.ImportanceCritical {
			return unchanged(stored, ReasonUpcoming)
		}
		return Result{
			ResolvedImportance: digest.ImportanceTimeSensitive,
			DecayReason:        ReasonUpcoming,
			WasModified:        stored != digest.ImportanceTimeSensitive,
		}
	}

	// Rule 6: distant. Stored critical is preserved with its own reason.
	if stored == digest.ImportanceCritical {
		return unchanged(stored, ReasonDistantButCritical)
	}
	return Result{
		ResolvedImportance: digest.ImportanceRoutine,
		DecayReason:        ReasonDistant,
		WasModified:        stored != digest.ImportanceRoutine,
	}
}

func unchanged(stored digest.Importance, reason string) Result {
	return Result{ResolvedImportance: stored, DecayReason: reason}
}

// ResolveEntity resolves an entity end to end: the notification overlay
// first, then timestamp extraction, then the generic table. It never
// returns an error; malformed timestamps are counted on the result and
// degrade to no temporal data.
func (r *Resolver) ResolveEntity(e *digest.Entity, now time.Time) Result {
	parseErrors := 0

	if e.EntityType == digest.EntityTypeNotification {
		if res, ok := r.notificationOverlay(e, now, &parseErrors); ok {
			res.ParseErrors = parseErrors
			return res
		}
	}

	start, end, err := ExtractWindow(e)
	if err != nil {
		parseErrors++
		start, end = nil, nil
	}

	res := r.Resolve(e.EntityType, e.Importance, start, end, now)
	res.ParseErrors += parseErrors
	return res
}

// notificationOverlay handles OTP and shipping notifications ahead of
// the generic table. The second return is false when none of the
// special cases apply and the entity falls through.
func (r *Resolver) notificationOverlay(e *digest.Entity, now time.Time, parseErrors *int) (Result, bool) {
	stored := e.Importance

	if e.OTPExpiresAt != "" {
		expiresAt, err := ParseTemporal(e.OTPExpiresAt)
		if err != nil {
			*parseErrors++
		} else if now.Before(expiresAt) {
			return Result{
				ResolvedImportance: digest.ImportanceCritical,
				DecayReason:        ReasonOTPActive,
				WasModified:        stored != digest.ImportanceCritical,
			}, true
		}
	}

	if e.ShipStatus == digest.ShipStatusOutForDelivery {
		return Result{
			ResolvedImportance: digest.ImportanceCritical,
			DecayReason:        ReasonDeliveryActive,
			WasModified:        stored != digest.ImportanceCritical,
		}, true
	}

	if e.DeliveredAt != "" {
		deliveredAt, err := ParseTemporal(e.DeliveredAt)
		if err != nil {
			*parseErrors++
		} else if now.Sub(deliveredAt) > r.policy.DeliveryStaleAfter {
			return Result{
				ResolvedImportance: digest.ImportanceRoutine,
				DecayReason:        ReasonDeliveryStale,
				WasModified:        stored != digest.ImportanceRoutine,
			}, true
		}
	}

	return Result{}, false
}

// Hidden reports whether an enriched entity should be hidden from the
// digest. Only events and deadlines can hide, and only when they
// resolved routine and their window is behind us.
func (r *Resolver) Hidden(e *digest.Entity, res Result, now time.Time) bool {
	if !expires(e.EntityType) {
		return false
	}
	if res.ResolvedImportance != digest.ImportanceRoutine {
		return false
	}
	if res.DecayReason == ReasonExpired {
		return true
	}
	// No end time, start already passed, and nothing kept it alive.
	if res.DecayReason == ReasonActive || res.DecayReason == ReasonUpcoming {
		return false
	}
	start, end, err := ExtractWindow(e)
	if err != nil || start == nil {
		return false
	}
	return end == nil && start.Before(now)
}

// ExtractWindow pulls the temporal window out of an entity according to
// its type. The switch is exhaustive over EntityType so a new kind is a
// compile-time decision, not a silent fallthrough.
func ExtractWindow(e *digest.Entity) (start, end *time.Time, err error) {
	switch e.EntityType {
	case digest.EntityTypeEvent:
		start, err = parseOptional(e.EventTime)
		if err != nil {
			return nil, nil, err
		}
		end, err = parseOptional(e.EventEndTime)
		if err != nil {
			return nil, nil, err
		}
		return start, end, nil
	case digest.EntityTypeDeadline:
		start, err = parseOptional(e.DueDate)
		return start, nil, err
	case digest.EntityTypeFlight:
		start, err = parseOptional(e.DepartureTime)
		return start, nil, err
	case digest.EntityTypeReminder:
		start, err = parseOptional(e.RemindAt)
		return start, nil, err
	case digest.EntityTypePromo, digest.EntityTypeNotification,
		digest.EntityTypeReceipt, digest.EntityTypeNewsletter:
		return nil, nil, nil
	default:
		return nil, nil, nil
	}
}

func parseOptional(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTemporal(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// temporalLayouts are the timestamp shapes the extractor emits, tried in
// order. Layouts without a zone are interpreted as UTC.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTemporal parses an extractor timestamp. Timezone-naive values are
// treated as UTC. A value that matches no known layout returns ErrParse.
func ParseTemporal(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp: %w", bferrors.ErrParse)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range temporalLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: %w", raw, bferrors.ErrParse)
}
