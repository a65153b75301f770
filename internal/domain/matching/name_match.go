package matching

import (
	"strings"
	"unicode"
)

// normalizeTokens lowercases a name and splits it into alphanumeric tokens.
// Punctuation and spacing differences never affect a match.
func normalizeTokens(name string) []string {
	lower := strings.ToLower(name)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NamesMatch reports whether a bank payee name and a parent name refer to the
// same party. The comparison is case-insensitive and token-order-independent:
// every token of the shorter name must appear in the longer one, so
// "SMITH JOHN" matches "John Smith" and "MR J SMITH" does not match "Jones".
// A blank name on either side is treated as absent and never matches.
func NamesMatch(payeeName, parentName string) bool {
	payee := normalizeTokens(payeeName)
	parent := normalizeTokens(parentName)
	if len(payee) == 0 || len(parent) == 0 {
		return false
	}

	shorter, longer := payee, parent
	if len(parent) < len(payee) {
		shorter, longer = parent, payee
	}

	longerSet := make(map[string]struct{}, len(longer))
	for _, tok := range longer {
		longerSet[tok] = struct{}{}
	}
	for _, tok := range shorter {
		if _, ok := longerSet[tok]; !ok {
			return false
		}
	}
	return true
}

// ReferenceContains reports whether a transaction's free-text reference or
// description carries the invoice number verbatim (case-insensitive).
// Blank invoice numbers never match.
func ReferenceContains(reference, description, invoiceNumber string) bool {
	if invoiceNumber == "" {
		return false
	}
	needle := strings.ToLower(invoiceNumber)
	return strings.Contains(strings.ToLower(reference), needle) ||
		strings.Contains(strings.ToLower(description), needle)
}
