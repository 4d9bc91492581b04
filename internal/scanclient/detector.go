package scanclient

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// LineDetector adapts a line-oriented capture source into the Detector
// interface. USB scanner guns in serial mode and bench testing over stdin
// both present one decoded code per line. Reading happens on a background
// goroutine; each tick drains at most one pending line, and a held trigger
// cannot queue stale frames past the small buffer.
type LineDetector struct {
	lines chan string

	mu      sync.Mutex
	started bool
	readErr error
	reader  io.Reader
}

func NewLineDetector(r io.Reader) *LineDetector {
	return &LineDetector{
		lines:  make(chan string, 16),
		reader: r,
	}
}

// Probe verifies the capture source exists and starts the reader.
func (d *LineDetector) Probe() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reader == nil {
		return errors.New("no capture source")
	}
	if d.started {
		return nil
	}
	d.started = true

	go d.readLines()
	return nil
}

func (d *LineDetector) readLines() {
	scanner := bufio.NewScanner(d.reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case d.lines <- line:
		default:
			// Buffer full: drop the frame rather than queue stale ones.
		}
	}

	d.mu.Lock()
	d.readErr = scanner.Err()
	d.mu.Unlock()
	close(d.lines)
}

func (d *LineDetector) Detect(ctx context.Context) (string, bool, error) {
	select {
	case line, open := <-d.lines:
		if !open {
			d.mu.Lock()
			err := d.readErr
			d.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return "", false, err
		}
		return line, true, nil
	default:
		return "", false, nil
	}
}
