package utils

import (
	"regexp"
	"strings"
)

// maxTickerLen bounds symbol length; the longest listed symbols with an
// exchange suffix (e.g. "BRK-B.LON") stay well below it.
const maxTickerLen = 16

// tickerPattern accepts listed symbols and index symbols with a single
// leading caret ("^GSPC").
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-&]*$`)

// NormalizeTicker normalizes a user-input ticker to its canonical form:
// whitespace trimmed, upper-cased and without a leading "$" (common in chat).
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")
	return strings.TrimSpace(ticker)
}

// IsValidTicker reports whether an already normalized ticker looks like a
// listed symbol. It does not check that the symbol exists.
func IsValidTicker(ticker string) bool {
	if ticker == "" || len(ticker) > maxTickerLen {
		return false
	}
	return tickerPattern.MatchString(ticker)
}
