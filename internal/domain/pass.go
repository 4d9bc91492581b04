package domain

import (
	"strings"
	"time"
)

// Direction is the travel entitlement encoded in the token itself
// (the third dash-separated segment). It is not a mutable field: passes
// already in the field encode it positionally, so the string form is the
// canonical representation.
type Direction string

const (
	DirectionTo    Direction = "TO"
	DirectionFrom  Direction = "FROM"
	DirectionRound Direction = "ROUND"
)

// ScanType is the operator-selected boarding direction for one scan.
type ScanType string

const (
	ScanDepart ScanType = "DEPART"
	ScanReturn ScanType = "RETURN"
)

func ParseScanType(s string) (ScanType, bool) {
	switch ScanType(strings.ToUpper(strings.TrimSpace(s))) {
	case ScanDepart:
		return ScanDepart, true
	case ScanReturn:
		return ScanReturn, true
	default:
		return "", false
	}
}

// DirectionOf decodes the direction segment embedded in a canonical token.
func DirectionOf(token string) (Direction, bool) {
	switch {
	case strings.Contains(token, "-ROUND-"):
		return DirectionRound, true
	case strings.Contains(token, "-FROM-"):
		return DirectionFrom, true
	case strings.Contains(token, "-TO-"):
		return DirectionTo, true
	default:
		return "", false
	}
}

type UsageState string

const (
	UsageUnused     UsageState = "UNUSED"
	UsageUsedDepart UsageState = "USED_DEPART"
	UsageUsedReturn UsageState = "USED_RETURN"
	UsageUsed       UsageState = "USED"
)

// Pass is one purchased ride entitlement. One-way passes have a single leg;
// round-trip passes track the DEPART and RETURN legs independently.
type Pass struct {
	Token        string     `json:"token"`
	Direction    Direction  `json:"direction"`
	DepartUsedAt *time.Time `json:"depart_used_at,omitempty"`
	ReturnUsedAt *time.Time `json:"return_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// State derives the usage state from the leg timestamps.
func (p *Pass) State() UsageState {
	switch p.Direction {
	case DirectionRound:
		switch {
		case p.DepartUsedAt != nil && p.ReturnUsedAt != nil:
			return UsageUsed
		case p.DepartUsedAt != nil:
			return UsageUsedDepart
		case p.ReturnUsedAt != nil:
			return UsageUsedReturn
		default:
			return UsageUnused
		}
	case DirectionFrom:
		if p.ReturnUsedAt != nil {
			return UsageUsed
		}
		return UsageUnused
	default:
		if p.DepartUsedAt != nil {
			return UsageUsed
		}
		return UsageUnused
	}
}

// LegUsed reports whether the leg matching the given scan type is consumed.
func (p *Pass) LegUsed(scanType ScanType) bool {
	if scanType == ScanReturn {
		return p.ReturnUsedAt != nil
	}
	return p.DepartUsedAt != nil
}

// Outcome classifies one consume attempt against the pass ledger.
type Outcome string

const (
	OutcomeAllowed        Outcome = "ALLOWED"
	OutcomeAlreadyUsed    Outcome = "ALREADY_USED"
	OutcomeInvalid        Outcome = "INVALID"
	OutcomeWrongDirection Outcome = "WRONG_DIRECTION"
	OutcomeError          Outcome = "ERROR"
)

type ConsumeResult struct {
	Outcome Outcome
	Message string
}

// Verdict is the boolean+message result presented to the operator.
type Verdict struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Operator-facing messages. The wording is load-bearing: gate staff are
// trained on these exact strings.
const (
	MsgValidPass     = "VALID PASS"
	MsgAlreadyUsed   = "ALREADY USED"
	MsgInvalidQR     = "INVALID QR"
	MsgInvalidFormat = "INVALID QR FORMAT"
	MsgScanError     = "SCAN ERROR"
	MsgNetworkError  = "NETWORK ERROR"
)

// TokenInvalid is the sentinel recorded in the audit log when the scanned
// text yielded no token at all.
const TokenInvalid = "INVALID"

// Scan result classes for the audit log.
const (
	ResultOK    = "OK"
	ResultFail  = "FAIL"
	ResultError = "ERROR"
)

// ScanEvent is one append-only audit record. Rows are never mutated or
// deleted; disputes at the gate are resolved by querying them.
type ScanEvent struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	ScanType  ScanType  `json:"scan_type"`
	Result    string    `json:"result"`
	Message   string    `json:"message"`
	DeviceID  string    `json:"device_id,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
