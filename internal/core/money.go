package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// declarationAmountPattern matches the total line of a declaration summary.
// The currency glyph does not always survive text extraction, so any run of
// non-digit, non-space characters is accepted in its place. The amount
// itself must start with a digit or sign.
var declarationAmountPattern = regexp.MustCompile(`(?s)Total expenses\s*[^\d\s]*\s*([-+]?\d.*?)\s+Including`)

// ParseFare converts fare text into an amount.
//
// An empty string means the row has no fare and yields an invalid NullDecimal.
// Otherwise the second space-separated token is taken, its decimal comma
// normalized to a dot, and parsed.
//
// Examples:
//
//	ParseFare("€ 3,28") -> 3.28
//	ParseFare("")       -> absent
//	ParseFare("€")      -> ErrMalformedFare
func ParseFare(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	parts := strings.SplitN(s, " ", 3)
	if len(parts) < 2 {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q has no amount", ErrMalformedFare, s)
	}
	// Normalize decimal comma to dot
	token := strings.ReplaceAll(parts[1], ",", ".")
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrMalformedFare, s)
	}
	return decimal.NewNullDecimal(d), nil
}

// ExtractDeclarationAmount returns the total amount token from the text of a
// declaration summary, keeping whatever decimal separator the document used.
// A missing label is an error: a silent zero would misstate the declaration.
func ExtractDeclarationAmount(text string) (string, error) {
	m := declarationAmountPattern.FindStringSubmatch(text)
	if m == nil {
		return "", ErrAmountNotFound
	}
	return m[1], nil
}
