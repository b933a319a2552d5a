package textanalysis

import "unicode"

const (
	hangulSyllableFirst = '가'
	hangulSyllableLast  = '힣'
)

// CharacterTypes is the result of AnalyzeCharacterTypes.
//
// Alphabetic, Numeric, Spaces, Punctuation and SpecialCharacters partition
// the input: each code point lands in exactly one of them. Korean and English
// are sub-counts of Alphabetic.
type CharacterTypes struct {
	Alphabetic        int `json:"alphabetic" jsonschema:"description=Letters of any script"`
	Numeric           int `json:"numeric" jsonschema:"description=Unicode numerals (Nd Nl and No)"`
	Spaces            int `json:"spaces" jsonschema:"description=Unicode whitespace"`
	Punctuation       int `json:"punctuation" jsonschema:"description=Unicode punctuation (P*)"`
	Korean            int `json:"korean" jsonschema:"description=Hangul syllables (subset of alphabetic)"`
	English           int `json:"english" jsonschema:"description=ASCII letters (subset of alphabetic)"`
	SpecialCharacters int `json:"special_characters" jsonschema:"description=Symbols and controls and marks"`
}

// Total returns the sum of the five partitioning buckets, which always equals
// the code point length of the analyzed text.
func (c CharacterTypes) Total() int {
	return c.Alphabetic + c.Numeric + c.Spaces + c.Punctuation + c.SpecialCharacters
}

// AnalyzeCharacterTypes classifies every code point of text.
func AnalyzeCharacterTypes(text string) CharacterTypes {
	var c CharacterTypes
	for _, r := range text {
		switch {
		case isWhitespace(r):
			c.Spaces++
		case unicode.IsLetter(r):
			c.Alphabetic++
			if r >= hangulSyllableFirst && r <= hangulSyllableLast {
				c.Korean++
			} else if r <= unicode.MaxASCII {
				c.English++
			}
		case unicode.IsNumber(r):
			c.Numeric++
		case unicode.IsPunct(r):
			c.Punctuation++
		default:
			c.SpecialCharacters++
		}
	}
	return c
}

// isWhitespace reports Unicode whitespace. unicode.IsSpace leaves out the
// information separators U+001C..U+001F, which are whitespace for the
// purposes of this package.
func isWhitespace(r rune) bool {
	if r >= '\u001c' && r <= '\u001f' {
		return true
	}
	return unicode.IsSpace(r)
}
