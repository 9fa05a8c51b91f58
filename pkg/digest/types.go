// Package digest defines the domain model for the Briefly digest engine.
// It covers the entities extracted from email, the importance levels they
// resolve to, and the digest sections they are rendered into.
package digest

import (
	"fmt"
	"time"

	bferrors "github.com/brieflyhq/briefly/pkg/errors"
)

// Importance represents the urgency level assigned to an entity.
type Importance string

const (
	ImportanceCritical      Importance = "critical"
	ImportanceTimeSensitive Importance = "time_sensitive"
	ImportanceRoutine       Importance = "routine"
)

// Rank returns the comparable rank of an importance level.
// Unknown values rank below routine so they never win a dedup tie.
func (i Importance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 3
	case ImportanceTimeSensitive:
		return 2
	case ImportanceRoutine:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the value is a recognized importance level.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceCritical, ImportanceTimeSensitive, ImportanceRoutine:
		return true
	}
	return false
}

// ParseImportance validates a raw importance value from an upstream
// model. Unrecognized values return routine and an error wrapping
// ErrValidation; callers coerce, they never abort.
func ParseImportance(raw string) (Importance, error) {
	imp := Importance(raw)
	if imp.Valid() {
		return imp, nil
	}
	return ImportanceRoutine, fmt.Errorf("importance %q: %w", raw, bferrors.ErrValidation)
}

// EntityType is the discriminant of the Entity tagged union.
type EntityType string

const (
	EntityTypeFlight       EntityType = "flight"
	EntityTypeEvent        EntityType = "event"
	EntityTypeDeadline     EntityType = "deadline"
	EntityTypeReminder     EntityType = "reminder"
	EntityTypePromo        EntityType = "promo"
	EntityTypeNotification EntityType = "notification"
	EntityTypeReceipt      EntityType = "receipt"
	EntityTypeNewsletter   EntityType = "newsletter"
)

// DigestSection is the bucket an entity is rendered into.
type DigestSection string

const (
	SectionToday        DigestSection = "TODAY"
	SectionComingUp     DigestSection = "COMING_UP"
	SectionWorthKnowing DigestSection = "WORTH_KNOWING"
)

// SectionFor maps a resolved importance to its digest section.
// The mapping is total: anything unrecognized lands in WORTH_KNOWING.
func SectionFor(imp Importance) DigestSection {
	switch imp {
	case ImportanceCritical:
		return SectionToday
	case ImportanceTimeSensitive:
		return SectionComingUp
	default:
		return SectionWorthKnowing
	}
}

// ShipStatus values carried by delivery notifications.
const (
	ShipStatusProcessing     = "processing"
	ShipStatusInTransit      = "in_transit"
	ShipStatusOutForDelivery = "out_for_delivery"
	ShipStatusDelivered      = "delivered"
)

// Entity is a structured record extracted from an email. It is created by
// the upstream extractor, mutated exactly once by enrichment, possibly
// removed by deduplication, and read-only thereafter.
//
// Temporal fields are carried as the extractor's raw timestamp strings;
// parsing happens inside the decay resolver so a malformed value degrades
// to "no temporal data" instead of failing the batch.
type Entity struct {
	EntityType    EntityType `json:"entity_type"`
	Title         string     `json:"title,omitempty"`
	Confidence    float64    `json:"confidence"`
	Importance    Importance `json:"importance"`
	SourceEmailID string     `json:"source_email_id"`
	SourceThread  string     `json:"source_thread_id"`
	SourceSubject string     `json:"source_subject"`
	SourceSnippet string     `json:"source_snippet"`
	Timestamp     time.Time  `json:"timestamp"`

	// Event fields.
	EventTime    string `json:"event_time,omitempty"`
	EventEndTime string `json:"event_end_time,omitempty"`

	// Deadline fields.
	DueDate  string `json:"due_date,omitempty"`
	FromWhom string `json:"from_whom,omitempty"`

	// Flight fields.
	Airline       string `json:"airline,omitempty"`
	FlightNumber  string `json:"flight_number,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"`

	// Reminder fields.
	RemindAt string `json:"remind_at,omitempty"`

	// Promo fields.
	Merchant string `json:"merchant,omitempty"`
	Offer    string `json:"offer,omitempty"`

	// Notification fields.
	Category     string `json:"category,omitempty"`
	OTPExpiresAt string `json:"otp_expires_at,omitempty"`
	ShipStatus   string `json:"ship_status,omitempty"`
	DeliveredAt  string `json:"delivered_at,omitempty"`

	// Audit fields, populated by enrichment. Unset before it runs.
	StoredImportance   Importance    `json:"stored_importance,omitempty"`
	ResolvedImportance Importance    `json:"resolved_importance,omitempty"`
	DecayReason        string        `json:"decay_reason,omitempty"`
	WasModified        bool          `json:"was_modified,omitempty"`
	DigestSection      DigestSection `json:"digest_section,omitempty"`
	HideInDigest       bool          `json:"hide_in_digest,omitempty"`
}

// Enriched reports whether enrichment has populated the audit fields.
func (e *Entity) Enriched() bool {
	return e.ResolvedImportance != ""
}

// GroupBySection fans the batch out into digest sections for the renderer,
// skipping entities hidden from the digest. Order within a section follows
// batch order.
func GroupBySection(entities []*Entity) map[DigestSection][]*Entity {
	sections := make(map[DigestSection][]*Entity)
	for _, e := range entities {
		if e.HideInDigest {
			continue
		}
		section := e.DigestSection
		if section == "" {
			section = SectionFor(e.ResolvedImportance)
		}
		sections[section] = append(sections[section], e)
	}
	return sections
}
