// Package token turns arbitrary scanned text into a canonical pass token.
//
// QR payloads arrive in every shape staff devices produce: bare tokens,
// booking-confirmation URLs with a token query parameter, URL-encoded
// variants, or the token pasted inside email/SMS prose. Extraction is an
// ordered list of matchers with first-match-wins semantics; the ordering is
// policy, not accident, because a URL can contain a bare-token-looking
// substring that must not shadow its token= parameter.
package token

import (
	"net/url"
	"regexp"
	"strings"
)

// Canonical grammar: EDC-<6 digits>-<TO|FROM|ROUND>-<digits>-<8 alphanumeric>.
// The direction segment is matched by word, matching the tokens already in
// circulation.
const tokenGrammar = `EDC-[0-9]{6}-(?:TO|FROM|ROUND)-[0-9]+-[A-Za-z0-9]{8}`

var (
	paramRe  = regexp.MustCompile(`(?i)token=(` + tokenGrammar + `)`)
	prefixRe = regexp.MustCompile(`(?i)^` + tokenGrammar)
	anyRe    = regexp.MustCompile(`(?i)` + tokenGrammar)
)

// matcher attempts one extraction strategy; empty string means no match.
type matcher func(decoded string) string

// Strategies in strict priority order.
var matchers = []matcher{
	matchQueryParam,
	matchWholeToken,
	matchEmbedded,
}

// Normalize extracts a canonical pass token from raw scanned text. It is
// pure and total: for any input it returns exactly one uppercased token and
// true, or "" and false. It never panics and never errors.
func Normalize(raw string) (string, bool) {
	decoded := decode(strings.TrimSpace(raw))

	for _, m := range matchers {
		if tok := m(decoded); tok != "" {
			return strings.ToUpper(tok), true
		}
	}
	return "", false
}

// decode percent-decodes when possible and falls back to the input
// unchanged. Decoding must never fail through to the caller.
func decode(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

// matchQueryParam picks the token= parameter out of a full URL, a partial
// URL, or a bare "token=..." payload.
func matchQueryParam(decoded string) string {
	if m := paramRe.FindStringSubmatch(decoded); m != nil {
		return m[1]
	}
	return ""
}

// matchWholeToken accepts a payload that is itself a canonical token.
func matchWholeToken(decoded string) string {
	return prefixRe.FindString(decoded)
}

// matchEmbedded finds a token anywhere in surrounding text (forwarded
// email, SMS, truncated URL paths).
func matchEmbedded(decoded string) string {
	return anyRe.FindString(decoded)
}
