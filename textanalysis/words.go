package textanalysis

import (
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordPattern matches maximal runs of word characters. Go's \w is ASCII-only,
// so the Unicode classes are spelled out: letters (including Hangul
// syllables), numbers and connector punctuation such as '_'.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}\p{Pc}]+`)

// WordCount is the result of CountWords.
type WordCount struct {
	WordCount         int     `json:"word_count" jsonschema:"description=Number of word tokens"`
	UniqueWords       int     `json:"unique_words" jsonschema:"description=Number of distinct lowercased tokens"`
	AverageWordLength float64 `json:"average_word_length" jsonschema:"description=Mean token length in code points rounded to 2 decimals"`
}

// CountWords tokenizes the lowercased text and reports token statistics.
// Lowercasing uses the full Unicode case mapping, so a rune may expand (İ
// becomes i followed by U+0307) and a word-final Σ becomes ς.
func CountWords(text string) WordCount {
	if text == "" {
		return WordCount{}
	}

	tokens := wordPattern.FindAllString(cases.Lower(language.Und).String(text), -1)
	if len(tokens) == 0 {
		return WordCount{}
	}

	unique := make(map[string]struct{}, len(tokens))
	totalLen := 0
	for _, tok := range tokens {
		unique[tok] = struct{}{}
		totalLen += utf8.RuneCountInString(tok)
	}

	return WordCount{
		WordCount:         len(tokens),
		UniqueWords:       len(unique),
		AverageWordLength: round2(float64(totalLen) / float64(len(tokens))),
	}
}
