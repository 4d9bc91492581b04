// Package policy decides direction eligibility for a pass token.
//
// Eligibility is checked before any usage state is touched, so presenting a
// pass at the wrong boarding point never burns a leg. Staff handle a wrong
// direction by redirecting the passenger, which is why the rejection names
// the direction the ticket is actually valid for instead of reading like a
// fraud denial.
package policy

import (
	"fmt"

	"github.com/edcshuttle/passgate/internal/domain"
)

// Eligible reports whether the token's encoded direction permits the
// requested scan type. Tokens with no recognizable direction segment are
// ineligible for everything; the store rejects them as unknown anyway.
func Eligible(token string, scanType domain.ScanType) bool {
	dir, ok := domain.DirectionOf(token)
	if !ok {
		return false
	}

	switch dir {
	case domain.DirectionRound:
		return true
	case domain.DirectionTo:
		return scanType == domain.ScanDepart
	case domain.DirectionFrom:
		return scanType == domain.ScanReturn
	default:
		return false
	}
}

// RejectionMessage builds the operator-facing wrong-direction message,
// naming the direction the ticket is valid for.
func RejectionMessage(token string) string {
	dir, ok := domain.DirectionOf(token)
	if !ok {
		return domain.MsgInvalidQR
	}

	required := "DEPART"
	if dir == domain.DirectionFrom {
		required = "RETURN"
	}
	return fmt.Sprintf("WRONG DIRECTION: ticket is %s only", required)
}
