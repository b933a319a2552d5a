package textanalysis

import (
	"strings"
	"unicode/utf8"
)

// literalSpace is the only character CountCharacters treats as a space.
// Tabs, newlines and other Unicode whitespace are counted as ordinary
// characters there.
const literalSpace = " "

// CharacterCount is the result of CountCharacters.
//
// IncludeSpacesSetting and FinalCount are nil for empty input; the empty
// record is deliberately smaller than the non-empty one and callers must
// tolerate both shapes.
type CharacterCount struct {
	TotalCharacters         int   `json:"total_characters" jsonschema:"description=Number of code points in the text"`
	CharactersWithoutSpaces int   `json:"characters_without_spaces" jsonschema:"description=Number of code points excluding ASCII spaces (U+0020)"`
	SpacesCount             int   `json:"spaces_count" jsonschema:"description=Number of ASCII spaces (U+0020)"`
	TextLength              int   `json:"text_length" jsonschema:"description=Same as total_characters"`
	IncludeSpacesSetting    *bool `json:"include_spaces_setting,omitempty" jsonschema:"description=Echo of the include_spaces argument; absent for empty text"`
	FinalCount              *int  `json:"final_count,omitempty" jsonschema:"description=total_characters or characters_without_spaces depending on include_spaces; absent for empty text"`
}

// CountCharacters counts the code points of text. Only the literal ASCII
// space is removed for the without-spaces count.
func CountCharacters(text string, includeSpaces bool) CharacterCount {
	if text == "" {
		return CharacterCount{}
	}

	total := utf8.RuneCountInString(text)
	spaces := strings.Count(text, literalSpace)
	withoutSpaces := total - spaces

	final := withoutSpaces
	if includeSpaces {
		final = total
	}

	return CharacterCount{
		TotalCharacters:         total,
		CharactersWithoutSpaces: withoutSpaces,
		SpacesCount:             spaces,
		TextLength:              total,
		IncludeSpacesSetting:    &includeSpaces,
		FinalCount:              &final,
	}
}
