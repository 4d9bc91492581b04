package scanclient_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/edcshuttle/passgate/internal/scanclient"
)

func TestLineDetectorYieldsOneLinePerDetect(t *testing.T) {
	det := scanclient.NewLineDetector(strings.NewReader("EDC-111111-TO-1-AAAA1111\n\nEDC-222222-TO-2-BBBB2222\n"))
	if err := det.Probe(); err != nil {
		t.Fatalf("probe: %v", err)
	}

	ctx := context.Background()
	var got []string
	deadline := time.After(time.Second)
	for len(got) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		default:
		}
		raw, ok, err := det.Detect(ctx)
		if err != nil {
			break
		}
		if ok {
			got = append(got, raw)
		}
	}

	if len(got) != 2 || got[0] != "EDC-111111-TO-1-AAAA1111" || got[1] != "EDC-222222-TO-2-BBBB2222" {
		t.Fatalf("got %v", got)
	}
}

func TestLineDetectorWithoutSourceFailsProbe(t *testing.T) {
	det := scanclient.NewLineDetector(nil)
	if err := det.Probe(); err == nil {
		t.Fatal("probe succeeded with no capture source")
	}
}
