package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/repository"
	"github.com/edcshuttle/passgate/internal/service"
	"github.com/edcshuttle/passgate/pkg/events"
)

// ---------- Mocks ----------

type recordingBus struct {
	events.NopEventBus
	subjects []string
}

func (b *recordingBus) Publish(ctx context.Context, subject string, data interface{}) error {
	b.subjects = append(b.subjects, subject)
	return nil
}

type failingConsumer struct {
	result domain.ConsumeResult
	err    error
}

func (c *failingConsumer) Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error) {
	return c.result, c.err
}

func newFixture(t *testing.T, passes ...*domain.Pass) (service.ScanService, *repository.MemoryPassRepository, *repository.MemoryScanRepository, *recordingBus) {
	t.Helper()

	passRepo := repository.NewMemoryPassRepository()
	for _, p := range passes {
		if err := passRepo.Create(context.Background(), p); err != nil {
			t.Fatalf("seed pass: %v", err)
		}
	}

	scanRepo := repository.NewMemoryScanRepository()
	bus := &recordingBus{}
	return service.NewScanService(passRepo, scanRepo, bus), passRepo, scanRepo, bus
}

// ---------- Scenarios ----------

func TestValidateAllowsThenDeniesRepeat(t *testing.T) {
	svc, _, _, bus := newFixture(t, &domain.Pass{Token: "EDC-241201-TO-7-AB12CD34", Direction: domain.DirectionTo})
	ctx := context.Background()

	first := svc.Validate(ctx, "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "gate-1")
	if !first.OK || first.Message != domain.MsgValidPass {
		t.Fatalf("first = %+v, want ok / VALID PASS", first)
	}

	second := svc.Validate(ctx, "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "gate-1")
	if second.OK || second.Message != domain.MsgAlreadyUsed {
		t.Fatalf("second = %+v, want !ok / ALREADY USED", second)
	}

	if len(bus.subjects) != 2 || bus.subjects[0] != events.ScanAllowed || bus.subjects[1] != events.ScanDenied {
		t.Fatalf("published subjects = %v", bus.subjects)
	}
}

func TestValidateWrongDirectionDoesNotConsume(t *testing.T) {
	svc, passRepo, _, _ := newFixture(t, &domain.Pass{Token: "EDC-241201-FROM-7-AB12CD34", Direction: domain.DirectionFrom})
	ctx := context.Background()

	v := svc.Validate(ctx, "https://x/?token=EDC-241201-FROM-7-AB12CD34", domain.ScanDepart, "")
	if v.OK {
		t.Fatalf("wrong direction allowed: %+v", v)
	}
	if !strings.HasPrefix(v.Message, "WRONG DIRECTION") || !strings.Contains(v.Message, "RETURN") {
		t.Fatalf("message = %q", v.Message)
	}

	pass, err := passRepo.GetByToken(ctx, "EDC-241201-FROM-7-AB12CD34")
	if err != nil || pass == nil {
		t.Fatalf("get pass: %v", err)
	}
	if pass.State() != domain.UsageUnused {
		t.Fatalf("wrong-direction scan mutated pass: state = %s", pass.State())
	}

	// The correct direction must still be consumable.
	if v := svc.Validate(ctx, "EDC-241201-FROM-7-AB12CD34", domain.ScanReturn, ""); !v.OK {
		t.Fatalf("correct direction after wrong-direction attempt = %+v", v)
	}
}

func TestValidateRoundTripBothLegs(t *testing.T) {
	svc, _, _, _ := newFixture(t, &domain.Pass{Token: "EDC-241201-ROUND-7-AB12CD34", Direction: domain.DirectionRound})
	ctx := context.Background()

	if v := svc.Validate(ctx, "EDC-241201-ROUND-7-AB12CD34", domain.ScanDepart, ""); !v.OK {
		t.Fatalf("depart leg = %+v", v)
	}
	if v := svc.Validate(ctx, "EDC-241201-ROUND-7-AB12CD34", domain.ScanReturn, ""); !v.OK {
		t.Fatalf("return leg = %+v", v)
	}
	if v := svc.Validate(ctx, "EDC-241201-ROUND-7-AB12CD34", domain.ScanDepart, ""); v.OK || v.Message != domain.MsgAlreadyUsed {
		t.Fatalf("third scan = %+v, want ALREADY USED", v)
	}
}

func TestValidateGarbageInput(t *testing.T) {
	svc, _, scanRepo, _ := newFixture(t)
	ctx := context.Background()

	v := svc.Validate(ctx, "garbage text", domain.ScanDepart, "gate-2")
	if v.OK || v.Message != domain.MsgInvalidFormat {
		t.Fatalf("got %+v, want !ok / INVALID QR FORMAT", v)
	}

	// Audited under the sentinel token, low severity, no pass touched.
	audits, err := scanRepo.ListByToken(ctx, domain.TokenInvalid, 0)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(audits) != 1 || audits[0].Result != domain.ResultFail {
		t.Fatalf("audits = %+v", audits)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	v := svc.Validate(context.Background(), "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "")
	if v.OK || v.Message != domain.MsgInvalidQR {
		t.Fatalf("got %+v, want !ok / INVALID QR", v)
	}
}

func TestValidateFailsClosedOnStoreError(t *testing.T) {
	scanRepo := repository.NewMemoryScanRepository()
	bus := &recordingBus{}
	consumer := &failingConsumer{
		result: domain.ConsumeResult{Outcome: domain.OutcomeError, Message: domain.MsgScanError},
		err:    errors.New("connection refused"),
	}
	svc := service.NewScanService(consumer, scanRepo, bus)

	v := svc.Validate(context.Background(), "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "")
	if v.OK {
		t.Fatal("store failure failed open")
	}
	if v.Message != domain.MsgScanError {
		t.Fatalf("message = %q", v.Message)
	}
	if len(bus.subjects) != 1 || bus.subjects[0] != events.ScanErrored {
		t.Fatalf("subjects = %v", bus.subjects)
	}
}

func TestValidateTransportFailureIsDistinct(t *testing.T) {
	scanRepo := repository.NewMemoryScanRepository()
	consumer := &failingConsumer{
		result: domain.ConsumeResult{Outcome: domain.OutcomeError, Message: domain.MsgNetworkError},
		err:    errors.New("dial tcp: timeout"),
	}
	svc := service.NewScanService(consumer, scanRepo, &recordingBus{})

	v := svc.Validate(context.Background(), "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "")
	if v.OK || v.Message != domain.MsgNetworkError {
		t.Fatalf("got %+v, want !ok / NETWORK ERROR", v)
	}
}

func TestValidateAuditsEveryInvocation(t *testing.T) {
	svc, _, scanRepo, _ := newFixture(t, &domain.Pass{Token: "EDC-241201-TO-7-AB12CD34", Direction: domain.DirectionTo})
	ctx := context.Background()

	svc.Validate(ctx, "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "gate-1")
	svc.Validate(ctx, "EDC-241201-TO-7-AB12CD34", domain.ScanDepart, "gate-1")
	svc.Validate(ctx, "EDC-241201-TO-7-AB12CD34", domain.ScanReturn, "gate-1")
	svc.Validate(ctx, "nonsense", domain.ScanDepart, "gate-1")

	rows, err := scanRepo.ListByTimeRange(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("audit rows = %d, want 4", len(rows))
	}
}
