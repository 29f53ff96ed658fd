package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SearchTerm is a parsed free-text search. A record matches when its title or
// description contains Text (case-insensitive, literal) or, when Price is set,
// its price equals Price exactly.
type SearchTerm struct {
	Text  string
	Price *decimal.Decimal
}

// ParseSearch interprets raw search text. Surrounding whitespace is trimmed
// and blank or whitespace-only text yields nil: no search constraint at all.
//
// By default only fully numeric text enables the price branch. With
// legacyPrice set, the price branch is always present and follows the first
// version of this API: a leading number is used ("150abc" searches price 150)
// and text without one searches price 0.
func ParseSearch(raw string, legacyPrice bool) *SearchTerm {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	term := &SearchTerm{Text: text}
	if price, err := decimal.NewFromString(text); err == nil {
		term.Price = &price
	} else if legacyPrice {
		price := decimal.Zero
		if prefix := leadingNumber(text); prefix != "" {
			if p, err := decimal.NewFromString(prefix); err == nil {
				price = p
			}
		}
		term.Price = &price
	}
	return term
}

// leadingNumber returns the longest prefix of s that reads as a decimal
// number (sign, digits, fraction, exponent), or "" if s does not start with one.
func leadingNumber(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		start := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > start {
			i = j
		}
	}
	num := strings.TrimSuffix(s[:i], ".")
	// ".5" and "-.5" need a leading zero for decimal parsing.
	if k := strings.IndexByte(num, '.'); k >= 0 && (k == 0 || !isDigit(num[k-1])) {
		num = num[:k] + "0" + num[k:]
	}
	return num
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
