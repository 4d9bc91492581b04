// Package scanclient is the staff-side scan loop: a fixed-period capture
// loop that turns a stream of raw detections into at most one validation
// request per physical presentation of a code.
package scanclient

import (
	"context"
	"sync"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
	qrtoken "github.com/edcshuttle/passgate/internal/token"
	"github.com/edcshuttle/passgate/pkg/logger"
)

// Detector yields at most one detection attempt per call. Camera and video
// acquisition are external collaborators; scanner guns and bench input
// present as line sources (see LineDetector).
type Detector interface {
	// Detect returns the raw text of a code currently in frame, or
	// ok=false when nothing is present this tick. A non-nil error is a
	// per-frame capture glitch and is swallowed to keep scanning smooth.
	Detect(ctx context.Context) (raw string, ok bool, err error)
}

// Prober is implemented by detectors that can fail at startup (missing
// device, unsupported capture API). A probe failure is terminal: reported
// once, and the loop never starts.
type Prober interface {
	Probe() error
}

// Submitter sends one raw scan to the validation server. A non-nil error is
// a transport failure; nothing local is marked used and retry is safe.
type Submitter interface {
	Submit(ctx context.Context, raw string, scanType domain.ScanType) (domain.Verdict, error)
}

// Display renders loop state for the operator.
type Display interface {
	ShowMode(scanType domain.ScanType)
	ShowChecking()
	ShowVerdict(v domain.Verdict)
	ShowFatal(message string)
}

// Session is the operator-local, ephemeral scan state: the selected
// direction plus the identity and time of the last submitted code. It only
// exists to suppress duplicate submissions and is reset on direction change.
type Session struct {
	ScanType domain.ScanType
	lastKey  string
	lastAt   time.Time
}

type Loop struct {
	detector  Detector
	submitter Submitter
	display   Display
	interval  time.Duration
	cooldown  time.Duration

	mu      sync.Mutex // guards session; SetScanType may come from a UI goroutine
	session Session
}

func New(detector Detector, submitter Submitter, display Display, interval, cooldown time.Duration) *Loop {
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	if cooldown <= 0 {
		cooldown = 2500 * time.Millisecond
	}
	return &Loop{
		detector:  detector,
		submitter: submitter,
		display:   display,
		interval:  interval,
		cooldown:  cooldown,
		session:   Session{ScanType: domain.ScanDepart},
	}
}

// SetScanType switches the operator-selected direction and clears the
// debounce memory: a direction change must never be blocked by a stale
// entry for the same card.
func (l *Loop) SetScanType(scanType domain.ScanType) {
	l.mu.Lock()
	if l.session.ScanType != scanType {
		l.session = Session{ScanType: scanType}
	}
	l.mu.Unlock()

	l.display.ShowMode(scanType)
}

// Run drives the capture loop until ctx is canceled. Submission happens
// synchronously inside the tick, so there is never more than one request in
// flight; ticks that would fire during a round-trip are dropped by the
// ticker, not queued.
func (l *Loop) Run(ctx context.Context) error {
	if p, ok := l.detector.(Prober); ok {
		if err := p.Probe(); err != nil {
			l.display.ShowFatal("SCANNING NOT SUPPORTED ON THIS DEVICE")
			return err
		}
	}

	l.display.ShowMode(l.currentScanType())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	raw, ok, err := l.detector.Detect(ctx)
	if err != nil {
		logger.Debug("Capture glitch", "error", err)
		return
	}
	if !ok {
		return
	}

	// Local extraction is only a debounce pre-filter. The server
	// re-normalizes and its result is authoritative.
	key := raw
	if tok, found := qrtoken.Normalize(raw); found {
		key = tok
	}

	l.mu.Lock()
	now := time.Now()
	if l.session.lastKey == key && now.Sub(l.session.lastAt) < l.cooldown {
		l.mu.Unlock()
		return
	}
	l.session.lastKey = key
	l.session.lastAt = now
	scanType := l.session.ScanType
	l.mu.Unlock()

	l.display.ShowChecking()

	verdict, err := l.submitter.Submit(ctx, raw, scanType)
	if err != nil {
		logger.Warn("Scan submission failed", "error", err)
		l.display.ShowVerdict(domain.Verdict{OK: false, Message: domain.MsgNetworkError})
		return
	}

	l.display.ShowVerdict(verdict)
}

func (l *Loop) currentScanType() domain.ScanType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.ScanType
}
