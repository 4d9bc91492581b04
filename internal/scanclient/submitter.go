package scanclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/edcshuttle/passgate/internal/domain"
)

// HTTPSubmitter posts raw scans to the validation server.
type HTTPSubmitter struct {
	baseURL  string
	deviceID string
	client   *http.Client
}

func NewHTTPSubmitter(baseURL, deviceID string, timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSubmitter{
		baseURL:  baseURL,
		deviceID: deviceID,
		client:   &http.Client{Timeout: timeout},
	}
}

type submitBody struct {
	Token    string `json:"token"`
	ScanType string `json:"scanType"`
}

// submitResponse tolerates both server response generations:
// {ok, message} and {status: ALLOWED|DENIED, message}.
type submitResponse struct {
	OK      *bool  `json:"ok"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *HTTPSubmitter) Submit(ctx context.Context, raw string, scanType domain.ScanType) (domain.Verdict, error) {
	payload, err := json.Marshal(submitBody{Token: raw, ScanType: string(scanType)})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/scan", bytes.NewReader(payload))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to create scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.deviceID != "" {
		req.Header.Set("X-Device-ID", s.deviceID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Verdict{}, fmt.Errorf("scan server returned status %d", resp.StatusCode)
	}

	var body submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to decode scan response: %w", err)
	}

	ok := body.Status == "ALLOWED"
	if body.OK != nil {
		ok = *body.OK
	}
	return domain.Verdict{OK: ok, Message: body.Message}, nil
}
