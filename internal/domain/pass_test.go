package domain_test

import (
	"testing"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
)

func TestDirectionOf(t *testing.T) {
	cases := []struct {
		token string
		want  domain.Direction
		ok    bool
	}{
		{"EDC-241201-TO-7-AB12CD34", domain.DirectionTo, true},
		{"EDC-241201-FROM-7-AB12CD34", domain.DirectionFrom, true},
		{"EDC-241201-ROUND-7-AB12CD34", domain.DirectionRound, true},
		{"EDC-241201-XX-7-AB12CD34", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := domain.DirectionOf(tc.token)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DirectionOf(%q) = %q, %v; want %q, %v", tc.token, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseScanType(t *testing.T) {
	for raw, want := range map[string]domain.ScanType{
		"DEPART":   domain.ScanDepart,
		"depart":   domain.ScanDepart,
		" RETURN ": domain.ScanReturn,
	} {
		got, ok := domain.ParseScanType(raw)
		if !ok || got != want {
			t.Errorf("ParseScanType(%q) = %q, %v", raw, got, ok)
		}
	}

	for _, raw := range []string{"", "BOTH", "ROUND"} {
		if _, ok := domain.ParseScanType(raw); ok {
			t.Errorf("ParseScanType(%q) accepted", raw)
		}
	}
}

func TestOneWayPassState(t *testing.T) {
	now := time.Now()

	to := domain.Pass{Token: "EDC-241201-TO-7-AB12CD34", Direction: domain.DirectionTo}
	if to.State() != domain.UsageUnused {
		t.Fatalf("fresh TO pass state = %s", to.State())
	}
	to.DepartUsedAt = &now
	if to.State() != domain.UsageUsed {
		t.Fatalf("consumed TO pass state = %s, want USED", to.State())
	}

	from := domain.Pass{Token: "EDC-241201-FROM-7-AB12CD34", Direction: domain.DirectionFrom}
	from.ReturnUsedAt = &now
	if from.State() != domain.UsageUsed {
		t.Fatalf("consumed FROM pass state = %s, want USED", from.State())
	}
}

func TestRoundPassTracksLegsIndependently(t *testing.T) {
	now := time.Now()
	p := domain.Pass{Token: "EDC-241201-ROUND-7-AB12CD34", Direction: domain.DirectionRound}

	if p.State() != domain.UsageUnused {
		t.Fatalf("fresh state = %s", p.State())
	}

	p.DepartUsedAt = &now
	if p.State() != domain.UsageUsedDepart {
		t.Fatalf("after depart leg state = %s, want USED_DEPART", p.State())
	}
	if p.LegUsed(domain.ScanReturn) {
		t.Fatal("return leg reported used after depart-only consumption")
	}

	p.ReturnUsedAt = &now
	if p.State() != domain.UsageUsed {
		t.Fatalf("after both legs state = %s, want USED", p.State())
	}
}
