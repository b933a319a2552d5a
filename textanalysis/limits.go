package textanalysis

import (
	"math"
	"unicode/utf8"
)

// DefaultMaxLength is the limit used by the check_text_length_limit tool when
// the caller does not supply one.
const DefaultMaxLength = 1000

// LengthLimit is the result of CheckTextLengthLimit.
type LengthLimit struct {
	CurrentLength       int     `json:"current_length" jsonschema:"description=Number of code points in the text"`
	MaxLength           int     `json:"max_length" jsonschema:"description=Configured maximum"`
	WithinLimit         bool    `json:"within_limit" jsonschema:"description=current_length <= max_length"`
	ExcessCharacters    int     `json:"excess_characters" jsonschema:"description=Characters over the limit; never negative"`
	RemainingCharacters int     `json:"remaining_characters" jsonschema:"description=Characters left before the limit; never negative"`
	PercentageUsed      float64 `json:"percentage_used" jsonschema:"description=current_length / max_length * 100 rounded to 2 decimals; 0 when max_length <= 0"`
}

// CheckTextLengthLimit compares the code point length of text with
// maxLength. Zero and negative limits are accepted; they report a percentage
// of 0 instead of dividing by zero. The excess saturates at math.MaxInt for
// limits close to math.MinInt.
func CheckTextLengthLimit(text string, maxLength int) LengthLimit {
	current := utf8.RuneCountInString(text)

	var pct float64
	if maxLength > 0 {
		pct = round2(float64(current) / float64(maxLength) * 100)
	}

	res := LengthLimit{
		CurrentLength:  current,
		MaxLength:      maxLength,
		WithinLimit:    current <= maxLength,
		PercentageUsed: pct,
	}
	switch {
	case maxLength > current:
		res.RemainingCharacters = maxLength - current
	case maxLength < current-math.MaxInt:
		res.ExcessCharacters = math.MaxInt
	default:
		res.ExcessCharacters = current - maxLength
	}
	return res
}
