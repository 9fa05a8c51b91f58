package enrich

import (
	"fmt"
	"time"

	"github.com/brieflyhq/briefly/pkg/digest"
	"github.com/brieflyhq/briefly/pkg/digest/decay"
)

// CheckInvariants inspects an enriched entity for guardrail-invariant
// violations and returns one string per violation. These checks are
// diagnostic, meant for CI and test assertions; they never correct the
// entity and are never run on the resolution path.
func (e *Enricher) CheckInvariants(ent *digest.Entity, now time.Time) []string {
	var violations []string

	if !ent.Enriched() {
		return []string{"entity has not been enriched"}
	}

	if ent.EntityType == digest.EntityTypeNewsletter && ent.ResolvedImportance == digest.ImportanceCritical {
		violations = append(violations,
			fmt.Sprintf("newsletter entity %q resolved to critical", ent.SourceEmailID))
	}

	start, end, err := decay.ExtractWindow(ent)
	if err == nil && start != nil {
		windowEnd := *start
		if end != nil {
			windowEnd = *end
		}
		if windowEnd.Add(e.resolver.Policy().GracePeriod).Before(now) &&
			ent.ResolvedImportance != digest.ImportanceRoutine &&
			(ent.EntityType == digest.EntityTypeEvent || ent.EntityType == digest.EntityTypeDeadline) {
			violations = append(violations,
				fmt.Sprintf("expired %s %q resolved to %s",
					ent.EntityType, ent.SourceEmailID, ent.ResolvedImportance))
		}
	}

	if ent.DecayReason == decay.ReasonExpired && !ent.HideInDigest {
		violations = append(violations,
			fmt.Sprintf("expired %s %q not hidden from digest", ent.EntityType, ent.SourceEmailID))
	}

	if digest.SectionFor(ent.ResolvedImportance) != ent.DigestSection {
		violations = append(violations,
			fmt.Sprintf("entity %q in section %s but resolved %s",
				ent.SourceEmailID, ent.DigestSection, ent.ResolvedImportance))
	}

	return violations
}
