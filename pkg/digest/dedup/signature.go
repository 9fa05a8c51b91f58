package dedup

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/brieflyhq/briefly/pkg/digest"
)

// emailIDPrefixLen is how much of the source email id goes into a
// notification signature. Enough to separate senders, short enough that
// re-sends of the same notification still collide.
const emailIDPrefixLen = 8

// folder performs Unicode case folding for signature parts.
var folder = cases.Fold()

// notificationNoise strips delivery/status/action phrases from a
// notification subject so re-worded updates about the same thing
// collapse together.
var notificationNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(your|the)\s+(order|package|item|shipment|parcel|delivery)\b`),
	regexp.MustCompile(`(?i)\b(has\s+been|has|was|is|will\s+be)\s+(shipped|delivered|dispatched|received|confirmed|processed|updated|cancelled|canceled)\b`),
	regexp.MustCompile(`(?i)\b((is|was)\s+)?(out\s+for\s+delivery|in\s+transit|on\s+its\s+way|arriving\s+(today|soon|tomorrow))\b`),
	regexp.MustCompile(`(?i)\b(action\s+required|reminder|update|notification)\s*:?\s*`),
	regexp.MustCompile(`(?i)^\s*(re|fwd?)\s*:\s*`),
}

// Signature computes the type-specific dedup signature for an entity.
// All parts are case-folded and whitespace-trimmed; missing fields
// degrade to empty parts rather than erroring. The switch is exhaustive
// over EntityType; unknown kinds use the default subject signature.
func Signature(e *digest.Entity) string {
	var parts []string

	switch e.EntityType {
	case digest.EntityTypeFlight:
		parts = []string{"flight", e.Airline, e.FlightNumber, e.DepartureTime}
	case digest.EntityTypeEvent:
		parts = []string{"event", e.Title, e.EventTime}
	case digest.EntityTypeDeadline:
		parts = []string{"deadline", e.Title, e.DueDate, e.FromWhom}
	case digest.EntityTypePromo:
		parts = []string{"promo", e.Merchant, e.Offer}
	case digest.EntityTypeNotification:
		parts = []string{"notification", normalizeSubject(e.SourceSubject), e.Category, idPrefix(e.SourceEmailID)}
	case digest.EntityTypeReminder, digest.EntityTypeReceipt, digest.EntityTypeNewsletter:
		parts = []string{string(e.EntityType), e.SourceSubject}
	default:
		parts = []string{string(e.EntityType), e.SourceSubject}
	}

	for i, p := range parts {
		parts[i] = folder.String(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// normalizeSubject strips notification noise phrases. If nothing of the
// subject survives, the raw subject is used instead so unrelated
// notifications with all-boilerplate subjects do not over-merge.
func normalizeSubject(subject string) string {
	normalized := subject
	for _, re := range notificationNoise {
		normalized = re.ReplaceAllString(normalized, " ")
	}
	normalized = strings.Join(strings.Fields(normalized), " ")
	if normalized == "" {
		return strings.TrimSpace(subject)
	}
	return normalized
}

func idPrefix(id string) string {
	if len(id) <= emailIDPrefixLen {
		return id
	}
	return id[:emailIDPrefixLen]
}
