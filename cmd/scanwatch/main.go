package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edcshuttle/passgate/pkg/config"
	"github.com/edcshuttle/passgate/pkg/events"
	"github.com/edcshuttle/passgate/pkg/logger"
)

// Ops tail for the live scan stream: subscribes to scan.* and logs each
// validation attempt as it happens at the gates.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.NATS.URL == "" {
		logger.Error("NATS_URL is required for scanwatch")
		os.Exit(1)
	}

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	err = bus.Subscribe("scan.*", func(msg *events.Message) {
		var event events.ScanRecordedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("Unparseable scan event", "subject", msg.Subject, "error", err)
			return
		}

		logger.Info("Scan",
			"subject", msg.Subject,
			"token", event.Token,
			"scan_type", event.ScanType,
			"outcome", event.Outcome,
			"message", event.Message,
			"device_id", event.DeviceID,
		)
	})
	if err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	logger.Info("Watching scan events", "nats", cfg.NATS.URL)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down scanwatch...")
}
