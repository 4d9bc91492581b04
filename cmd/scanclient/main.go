package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/scanclient"
	"github.com/edcshuttle/passgate/pkg/config"
	"github.com/edcshuttle/passgate/pkg/logger"
)

// Staff scanner front end. Reads one decoded code per line from stdin
// (scanner guns in serial mode emit a line per trigger pull) and submits
// each presentation to the validation server at most once.
//
// Typing "DEPART" or "RETURN" on a line switches the boarding direction.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector := &modeSwitchingDetector{inner: scanclient.NewLineDetector(os.Stdin)}
	submitter := scanclient.NewHTTPSubmitter(cfg.Client.ServerURL, cfg.Client.DeviceID, cfg.Client.HTTPTimeout)
	display := scanclient.NewTerminalDisplay(os.Stdout)

	loop := scanclient.New(detector, submitter, display, cfg.Client.ScanInterval, cfg.Client.Cooldown)
	detector.loop = loop

	logger.Info("Starting scan client",
		"server", cfg.Client.ServerURL,
		"device", cfg.Client.DeviceID,
		"interval", cfg.Client.ScanInterval,
	)

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Scan loop terminated", "error", err)
		os.Exit(1)
	}
}

// modeSwitchingDetector intercepts the DEPART/RETURN control words so
// operators can flip direction from the same input device they scan with.
type modeSwitchingDetector struct {
	inner *scanclient.LineDetector
	loop  *scanclient.Loop
}

func (d *modeSwitchingDetector) Probe() error {
	return d.inner.Probe()
}

func (d *modeSwitchingDetector) Detect(ctx context.Context) (string, bool, error) {
	raw, ok, err := d.inner.Detect(ctx)
	if !ok || err != nil {
		return raw, ok, err
	}

	if scanType, isMode := domain.ParseScanType(strings.TrimSpace(raw)); isMode {
		d.loop.SetScanType(scanType)
		return "", false, nil
	}
	return raw, true, nil
}
