package service

import (
	"context"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/policy"
	"github.com/edcshuttle/passgate/internal/repository"
	qrtoken "github.com/edcshuttle/passgate/internal/token"
	"github.com/edcshuttle/passgate/pkg/events"
	"github.com/edcshuttle/passgate/pkg/logger"
)

// Consumer is the atomic check-and-mark operation. The local pass ledger
// implements it; so does the external validation authority client, which is
// how delegation stays a pure wiring decision.
type Consumer interface {
	Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error)
}

// ScanService is the validation pipeline: normalize, check direction
// eligibility, atomically consume, audit. It is the only component that
// mutates pass state or appends audit records.
type ScanService interface {
	Validate(ctx context.Context, rawText string, scanType domain.ScanType, deviceID string) domain.Verdict
	ScansByToken(ctx context.Context, token string, limit int) ([]domain.ScanEvent, error)
	ScansByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]domain.ScanEvent, error)
}

type scanService struct {
	consumer Consumer
	scans    repository.ScanRepository
	bus      events.Publisher
}

func NewScanService(consumer Consumer, scans repository.ScanRepository, bus events.Publisher) ScanService {
	return &scanService{
		consumer: consumer,
		scans:    scans,
		bus:      bus,
	}
}

// Validate runs one scan through the pipeline, short-circuiting on the first
// failure. Every invocation, success or not, appends exactly one audit
// record before returning. Store failures fail closed: the operator sees a
// denial, never a silent pass-through.
func (s *scanService) Validate(ctx context.Context, rawText string, scanType domain.ScanType, deviceID string) domain.Verdict {
	token, ok := qrtoken.Normalize(rawText)

	logger.DebugContext(ctx, "Normalized scan input",
		"raw", rawText,
		"token", token,
		"scan_type", scanType,
	)

	if !ok {
		s.record(ctx, domain.TokenInvalid, scanType, domain.ResultFail, domain.MsgInvalidFormat, deviceID)
		return domain.Verdict{OK: false, Message: domain.MsgInvalidFormat}
	}

	// Direction eligibility runs before any state is touched, so a
	// wrong-direction presentation never burns a leg.
	if !policy.Eligible(token, scanType) {
		msg := policy.RejectionMessage(token)
		s.record(ctx, token, scanType, domain.ResultFail, msg, deviceID)
		return domain.Verdict{OK: false, Message: msg}
	}

	res, err := s.consumer.Consume(ctx, token, scanType)
	if err != nil {
		logger.ErrorContext(ctx, "Consume failed", "error", err, "token", token)
		msg := res.Message
		if msg == "" {
			msg = domain.MsgScanError
		}
		s.record(ctx, token, scanType, domain.ResultError, msg, deviceID)
		return domain.Verdict{OK: false, Message: msg}
	}

	result := domain.ResultFail
	if res.Outcome == domain.OutcomeAllowed {
		result = domain.ResultOK
	}
	s.record(ctx, token, scanType, result, res.Message, deviceID)

	return domain.Verdict{OK: res.Outcome == domain.OutcomeAllowed, Message: res.Message}
}

// record appends the audit row and publishes the matching event. Audit
// failures are logged, not propagated: one broken write must not take down
// the next validation.
func (s *scanService) record(ctx context.Context, token string, scanType domain.ScanType, result, message, deviceID string) {
	event := &domain.ScanEvent{
		Token:     token,
		ScanType:  scanType,
		Result:    result,
		Message:   message,
		DeviceID:  deviceID,
		ScannedAt: time.Now(),
	}

	if err := s.scans.Append(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to append scan event", "error", err, "token", token)
	}

	subject := events.ScanDenied
	switch result {
	case domain.ResultOK:
		subject = events.ScanAllowed
	case domain.ResultError:
		subject = events.ScanErrored
	}

	if err := s.bus.Publish(ctx, subject, events.ScanRecordedEvent{
		Token:     event.Token,
		ScanType:  string(event.ScanType),
		Outcome:   event.Result,
		Message:   event.Message,
		DeviceID:  event.DeviceID,
		ScannedAt: event.ScannedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish scan event", "error", err, "token", token)
	}
}

func (s *scanService) ScansByToken(ctx context.Context, token string, limit int) ([]domain.ScanEvent, error) {
	return s.scans.ListByToken(ctx, token, limit)
}

func (s *scanService) ScansByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]domain.ScanEvent, error) {
	return s.scans.ListByTimeRange(ctx, from, to, limit)
}
