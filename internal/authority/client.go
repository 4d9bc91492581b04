// Package authority delegates pass validation to an external validation
// authority over HTTP. The authority is treated as a drop-in replacement for
// the local ledger's consume operation; the per-token atomicity contract is
// a documented requirement of the collaborator, since it cannot be enforced
// from this side of the wire.
package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/edcshuttle/passgate/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds an authority client with a bounded timeout. A timeout is
// reported as a transport failure, never as a denial: absence of an answer
// must not consume a pass.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type checkParams struct {
	Token    string `url:"token"`
	ScanType string `url:"scanType"`
}

// authorityResponse accepts both response generations the authority has
// shipped: {status: "ALLOWED"|"DENIED", message} and {ok: bool, message}.
type authorityResponse struct {
	Status  string `json:"status"`
	OK      *bool  `json:"ok"`
	Message string `json:"message"`
}

// Consume asks the authority to validate and burn the leg. A non-nil error
// always means transport-level failure; the caller must surface it as
// retryable and must not treat it as a verdict.
func (c *Client) Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error) {
	params, err := query.Values(checkParams{Token: token, ScanType: string(scanType)})
	if err != nil {
		return transportFailure(), fmt.Errorf("failed to encode authority query: %w", err)
	}

	url := c.baseURL + "/validate?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return transportFailure(), fmt.Errorf("failed to create authority request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return transportFailure(), fmt.Errorf("authority request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transportFailure(), fmt.Errorf("authority returned status %d", resp.StatusCode)
	}

	var body authorityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return transportFailure(), fmt.Errorf("failed to decode authority response: %w", err)
	}

	return mapResponse(body), nil
}

func transportFailure() domain.ConsumeResult {
	return domain.ConsumeResult{Outcome: domain.OutcomeError, Message: domain.MsgNetworkError}
}

// mapResponse folds either upstream shape into the canonical internal result.
func mapResponse(body authorityResponse) domain.ConsumeResult {
	allowed := body.Status == "ALLOWED"
	if body.OK != nil {
		allowed = *body.OK
	}

	message := body.Message
	if allowed {
		if message == "" {
			message = domain.MsgValidPass
		}
		return domain.ConsumeResult{Outcome: domain.OutcomeAllowed, Message: message}
	}

	if message == "" {
		message = domain.MsgInvalidQR
	}
	outcome := domain.OutcomeInvalid
	if message == domain.MsgAlreadyUsed {
		outcome = domain.OutcomeAlreadyUsed
	}
	return domain.ConsumeResult{Outcome: outcome, Message: message}
}
