package scanclient_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/scanclient"
)

// ---------- Mocks ----------

type fakeDetector struct {
	mu       sync.Mutex
	raw      string
	probeErr error
}

func (d *fakeDetector) Probe() error { return d.probeErr }

func (d *fakeDetector) Detect(ctx context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.raw == "" {
		return "", false, nil
	}
	return d.raw, true, nil
}

func (d *fakeDetector) present(raw string) {
	d.mu.Lock()
	d.raw = raw
	d.mu.Unlock()
}

type submission struct {
	raw      string
	scanType domain.ScanType
}

type fakeSubmitter struct {
	mu   sync.Mutex
	err  error
	subs []submission
}

func (s *fakeSubmitter) Submit(ctx context.Context, raw string, scanType domain.ScanType) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, submission{raw: raw, scanType: scanType})
	if s.err != nil {
		return domain.Verdict{}, s.err
	}
	return domain.Verdict{OK: true, Message: domain.MsgValidPass}, nil
}

func (s *fakeSubmitter) submissions() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.subs...)
}

type fakeDisplay struct {
	mu       sync.Mutex
	verdicts []domain.Verdict
	fatals   []string
}

func (d *fakeDisplay) ShowMode(domain.ScanType) {}
func (d *fakeDisplay) ShowChecking()            {}

func (d *fakeDisplay) ShowVerdict(v domain.Verdict) {
	d.mu.Lock()
	d.verdicts = append(d.verdicts, v)
	d.mu.Unlock()
}

func (d *fakeDisplay) ShowFatal(msg string) {
	d.mu.Lock()
	d.fatals = append(d.fatals, msg)
	d.mu.Unlock()
}

func (d *fakeDisplay) lastVerdict() (domain.Verdict, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.verdicts) == 0 {
		return domain.Verdict{}, false
	}
	return d.verdicts[len(d.verdicts)-1], true
}

// ---------- Tests ----------

const (
	testInterval = 5 * time.Millisecond
	testCooldown = 80 * time.Millisecond
)

func startLoop(t *testing.T, det *fakeDetector, sub *fakeSubmitter, disp *fakeDisplay) (*scanclient.Loop, context.CancelFunc) {
	t.Helper()

	loop := scanclient.New(det, sub, disp, testInterval, testCooldown)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	return loop, cancel
}

func TestCodeHeldInFrameSubmitsOnce(t *testing.T) {
	det := &fakeDetector{}
	sub := &fakeSubmitter{}
	disp := &fakeDisplay{}
	_, cancel := startLoop(t, det, sub, disp)
	defer cancel()

	det.present("EDC-241201-TO-7-AB12CD34")
	time.Sleep(testCooldown / 2)

	if got := sub.submissions(); len(got) != 1 {
		t.Fatalf("submissions = %d, want 1 while code stays in frame", len(got))
	}
}

func TestCooldownAllowsResubmission(t *testing.T) {
	det := &fakeDetector{}
	sub := &fakeSubmitter{}
	disp := &fakeDisplay{}
	_, cancel := startLoop(t, det, sub, disp)
	defer cancel()

	det.present("EDC-241201-TO-7-AB12CD34")
	time.Sleep(testCooldown * 3)

	if got := sub.submissions(); len(got) < 2 {
		t.Fatalf("submissions = %d, want resubmission after cooldown", len(got))
	}
}

func TestDifferentCodeSubmitsImmediately(t *testing.T) {
	det := &fakeDetector{}
	sub := &fakeSubmitter{}
	disp := &fakeDisplay{}
	_, cancel := startLoop(t, det, sub, disp)
	defer cancel()

	det.present("EDC-111111-TO-1-AAAA1111")
	time.Sleep(testCooldown / 4)
	det.present("EDC-222222-TO-2-BBBB2222")
	time.Sleep(testCooldown / 4)

	got := sub.submissions()
	if len(got) != 2 {
		t.Fatalf("submissions = %d, want 2", len(got))
	}
}

func TestDirectionSwitchClearsDebounce(t *testing.T) {
	det := &fakeDetector{}
	sub := &fakeSubmitter{}
	disp := &fakeDisplay{}
	loop, cancel := startLoop(t, det, sub, disp)
	defer cancel()

	det.present("EDC-241201-ROUND-7-AB12CD34")
	time.Sleep(testCooldown / 4)

	loop.SetScanType(domain.ScanReturn)
	time.Sleep(testCooldown / 4)

	got := sub.submissions()
	if len(got) != 2 {
		t.Fatalf("submissions = %d, want 2 (direction change must not be blocked by stale debounce)", len(got))
	}
	if got[0].scanType != domain.ScanDepart || got[1].scanType != domain.ScanReturn {
		t.Fatalf("scan types = %v", got)
	}
}

func TestTransportFailureShowsNetworkError(t *testing.T) {
	det := &fakeDetector{}
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	disp := &fakeDisplay{}
	_, cancel := startLoop(t, det, sub, disp)
	defer cancel()

	det.present("EDC-241201-TO-7-AB12CD34")
	time.Sleep(testCooldown / 2)

	v, ok := disp.lastVerdict()
	if !ok {
		t.Fatal("no verdict displayed")
	}
	if v.OK || v.Message != domain.MsgNetworkError {
		t.Fatalf("got %+v, want NETWORK ERROR", v)
	}
}

func TestProbeFailureIsTerminal(t *testing.T) {
	det := &fakeDetector{probeErr: errors.New("BarcodeDetector not supported")}
	sub := &fakeSubmitter{}
	disp := &fakeDisplay{}

	loop := scanclient.New(det, sub, disp, testInterval, testCooldown)
	err := loop.Run(context.Background())
	if err == nil {
		t.Fatal("probe failure did not terminate the loop")
	}
	if len(disp.fatals) != 1 {
		t.Fatalf("fatal reports = %d, want exactly 1", len(disp.fatals))
	}
	if len(sub.submissions()) != 0 {
		t.Fatal("loop submitted after terminal probe failure")
	}
}
