package dedup

import (
	"strings"
	"testing"

	"github.com/brieflyhq/briefly/pkg/digest"
)

func TestSignaturePerType(t *testing.T) {
	tests := []struct {
		name string
		a, b *digest.Entity
		same bool
	}{
		{
			name: "same flight",
			a:    &digest.Entity{EntityType: digest.EntityTypeFlight, Airline: "United", FlightNumber: "UA123", DepartureTime: "2026-03-20T08:00:00Z"},
			b:    &digest.Entity{EntityType: digest.EntityTypeFlight, Airline: "UNITED", FlightNumber: "ua123", DepartureTime: "2026-03-20T08:00:00Z"},
			same: true,
		},
		{
			name: "different flight number",
			a:    &digest.Entity{EntityType: digest.EntityTypeFlight, Airline: "United", FlightNumber: "UA123"},
			b:    &digest.Entity{EntityType: digest.EntityTypeFlight, Airline: "United", FlightNumber: "UA124"},
			same: false,
		},
		{
			name: "same event differing in noise fields",
			a:    &digest.Entity{EntityType: digest.EntityTypeEvent, Title: "Team Offsite", EventTime: "2026-04-01T09:00:00Z", SourceEmailID: "x"},
			b:    &digest.Entity{EntityType: digest.EntityTypeEvent, Title: "team offsite", EventTime: "2026-04-01T09:00:00Z", SourceEmailID: "y"},
			same: true,
		},
		{
			name: "deadline distinguishes sender",
			a:    &digest.Entity{EntityType: digest.EntityTypeDeadline, Title: "Invoice due", DueDate: "2026-04-01", FromWhom: "acme"},
			b:    &digest.Entity{EntityType: digest.EntityTypeDeadline, Title: "Invoice due", DueDate: "2026-04-01", FromWhom: "globex"},
			same: false,
		},
		{
			name: "same promo",
			a:    &digest.Entity{EntityType: digest.EntityTypePromo, Merchant: "REI", Offer: "20% off"},
			b:    &digest.Entity{EntityType: digest.EntityTypePromo, Merchant: "rei ", Offer: " 20% OFF"},
			same: true,
		},
		{
			name: "type is part of the signature",
			a:    &digest.Entity{EntityType: digest.EntityTypeReceipt, SourceSubject: "Order confirmation"},
			b:    &digest.Entity{EntityType: digest.EntityTypeNewsletter, SourceSubject: "Order confirmation"},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, sb := Signature(tt.a), Signature(tt.b)
			if (sa == sb) != tt.same {
				t.Errorf("Signature equality = %v, want %v (%q vs %q)", sa == sb, tt.same, sa, sb)
			}
		})
	}
}

func TestSignatureNotificationNoiseStripping(t *testing.T) {
	mk := func(id, subject string) *digest.Entity {
		return &digest.Entity{
			EntityType:    digest.EntityTypeNotification,
			SourceEmailID: id,
			SourceSubject: subject,
			Category:      "shipping",
		}
	}

	// Rewordings of the same shipment update collide.
	a := Signature(mk("amz-0001-a", "Your package has been shipped: Kindle"))
	b := Signature(mk("amz-0001-b", "Your package is out for delivery: Kindle"))
	if a != b {
		t.Errorf("noise variants should share a signature: %q vs %q", a, b)
	}

	// A different sender prefix keeps them apart.
	c := Signature(mk("ebay-0001", "Your package has been shipped: Kindle"))
	if a == c {
		t.Error("different email id prefixes must not collide")
	}
}

func TestSignatureAllBoilerplateSubjectFallsBack(t *testing.T) {
	e := &digest.Entity{
		EntityType:    digest.EntityTypeNotification,
		SourceEmailID: "n-1",
		SourceSubject: "Your package has been delivered",
	}
	sig := Signature(e)
	// Nothing survives noise stripping, so the raw subject is kept and the
	// signature is not degenerate.
	if !strings.Contains(sig, "package") {
		t.Errorf("signature %q should fall back to the raw subject", sig)
	}
}

func TestSignatureMissingFields(t *testing.T) {
	e := &digest.Entity{EntityType: digest.EntityTypeFlight}
	sig := Signature(e)
	if sig != "flight|||" {
		t.Errorf("Signature = %q, want empty parts joined", sig)
	}
}
