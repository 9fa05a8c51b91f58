package dedup

import (
	"testing"
	"time"

	"github.com/brieflyhq/briefly/pkg/digest"
)

var baseTime = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func flight(id, thread, airline, number string, imp digest.Importance, conf float64, ts time.Time) *digest.Entity {
	return &digest.Entity{
		SourceEmailID: id,
		SourceThread:  thread,
		EntityType:    digest.EntityTypeFlight,
		Importance:    imp,
		Confidence:    conf,
		Timestamp:     ts,
		Airline:       airline,
		FlightNumber:  number,
		DepartureTime: "2026-03-20T08:00:00Z",
	}
}

func TestDeduplicateThreadPass(t *testing.T) {
	d := NewDeduplicator()

	entities := []*digest.Entity{
		flight("a", "thread-1", "UA", "123", digest.ImportanceRoutine, 0.8, baseTime),
		flight("b", "thread-1", "UA", "123", digest.ImportanceCritical, 0.7, baseTime.Add(time.Hour)),
		flight("c", "thread-2", "DL", "456", digest.ImportanceRoutine, 0.9, baseTime),
	}

	out := d.Deduplicate(entities)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	// Higher importance survives the thread group.
	if out[0].SourceEmailID != "b" || out[1].SourceEmailID != "c" {
		t.Errorf("survivors = [%s, %s], want [b, c]", out[0].SourceEmailID, out[1].SourceEmailID)
	}
}

func TestDeduplicateSignaturePassAcrossThreads(t *testing.T) {
	d := NewDeduplicator()

	// Same flight announced in two unrelated threads collapses in the
	// signature pass.
	entities := []*digest.Entity{
		flight("a", "thread-1", "UA", "123", digest.ImportanceRoutine, 0.8, baseTime),
		flight("b", "thread-2", "UA", "123", digest.ImportanceRoutine, 0.9, baseTime),
	}

	out := d.Deduplicate(entities)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].SourceEmailID != "b" {
		t.Errorf("survivor = %s, want b (higher confidence)", out[0].SourceEmailID)
	}
}

func TestDeduplicateSelectionTuple(t *testing.T) {
	tests := []struct {
		name string
		a, b *digest.Entity
		want string
	}{
		{
			name: "rank beats confidence",
			a:    flight("a", "", "UA", "123", digest.ImportanceCritical, 0.1, baseTime),
			b:    flight("b", "", "UA", "123", digest.ImportanceRoutine, 0.99, baseTime),
			want: "a",
		},
		{
			name: "confidence breaks rank tie",
			a:    flight("a", "", "UA", "123", digest.ImportanceRoutine, 0.6, baseTime),
			b:    flight("b", "", "UA", "123", digest.ImportanceRoutine, 0.9, baseTime),
			want: "b",
		},
		{
			name: "later timestamp breaks full tie",
			a:    flight("a", "", "UA", "123", digest.ImportanceRoutine, 0.8, baseTime),
			b:    flight("b", "", "UA", "123", digest.ImportanceRoutine, 0.8, baseTime.Add(time.Minute)),
			want: "b",
		},
	}

	d := NewDeduplicator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Deduplicate([]*digest.Entity{tt.a, tt.b})
			if len(out) != 1 {
				t.Fatalf("len = %d, want 1", len(out))
			}
			if out[0].SourceEmailID != tt.want {
				t.Errorf("survivor = %s, want %s", out[0].SourceEmailID, tt.want)
			}
		})
	}
}

func TestDeduplicateUsesResolvedImportance(t *testing.T) {
	d := NewDeduplicator()

	// Enrichment downgraded a to routine; b's resolved critical wins even
	// though the stored ordering says otherwise.
	a := flight("a", "", "UA", "123", digest.ImportanceCritical, 0.9, baseTime)
	a.ResolvedImportance = digest.ImportanceRoutine
	b := flight("b", "", "UA", "123", digest.ImportanceRoutine, 0.5, baseTime)
	b.ResolvedImportance = digest.ImportanceCritical

	out := d.Deduplicate([]*digest.Entity{a, b})
	if len(out) != 1 || out[0].SourceEmailID != "b" {
		t.Fatalf("survivor = %v, want b", out)
	}
}

func TestDeduplicateShipStatusScenario(t *testing.T) {
	d := NewDeduplicator()

	// Three notifications about the same package: shipped, out for
	// delivery, delivered. Noise stripping collapses them to one and the
	// most recent update survives.
	mk := func(id, subject string, ts time.Time) *digest.Entity {
		return &digest.Entity{
			SourceEmailID: "amz-0001-" + id,
			EntityType:    digest.EntityTypeNotification,
			Importance:    digest.ImportanceRoutine,
			Confidence:    0.9,
			Timestamp:     ts,
			SourceSubject: subject,
			Category:      "shipping",
		}
	}
	entities := []*digest.Entity{
		mk("a", "Your package has been shipped: Kindle Paperwhite", baseTime),
		mk("b", "Your package is out for delivery: Kindle Paperwhite", baseTime.Add(4*time.Hour)),
		mk("c", "Your package has been delivered: Kindle Paperwhite", baseTime.Add(8*time.Hour)),
	}

	out := d.Deduplicate(entities)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].SourceEmailID != "amz-0001-c" {
		t.Errorf("survivor = %s, want the latest update amz-0001-c", out[0].SourceEmailID)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	d := NewDeduplicator()

	entities := []*digest.Entity{
		flight("a", "thread-1", "UA", "123", digest.ImportanceRoutine, 0.8, baseTime),
		flight("b", "thread-1", "UA", "123", digest.ImportanceCritical, 0.7, baseTime),
		flight("c", "", "DL", "456", digest.ImportanceRoutine, 0.9, baseTime),
		{
			SourceEmailID: "d",
			EntityType:    digest.EntityTypePromo,
			Merchant:      "REI",
			Offer:         "20% off",
			Timestamp:     baseTime,
		},
	}

	once := d.Deduplicate(entities)
	twice := d.Deduplicate(once)
	if len(once) != len(twice) {
		t.Fatalf("second pass changed the result: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("survivor %d differs between passes", i)
		}
	}
}

func TestDeduplicateEmptyThreadsNeverGroup(t *testing.T) {
	d := NewDeduplicator()

	// Distinct promos with no thread id must all survive.
	entities := []*digest.Entity{
		{SourceEmailID: "a", EntityType: digest.EntityTypePromo, Merchant: "REI", Offer: "20% off"},
		{SourceEmailID: "b", EntityType: digest.EntityTypePromo, Merchant: "Patagonia", Offer: "sale"},
		{SourceEmailID: "c", EntityType: digest.EntityTypePromo, Merchant: "Arc'teryx", Offer: "clearance"},
	}

	out := d.Deduplicate(entities)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
}

func TestDeduplicateSmallInputs(t *testing.T) {
	d := NewDeduplicator()
	if out := d.Deduplicate(nil); len(out) != 0 {
		t.Errorf("nil input, got %v", out)
	}
	single := []*digest.Entity{flight("a", "t", "UA", "1", digest.ImportanceRoutine, 0.5, baseTime)}
	if out := d.Deduplicate(single); len(out) != 1 {
		t.Errorf("single input should pass through, got %d", len(out))
	}
}
