package textanalysis

import (
	"regexp"
	"strings"
)

// PreviewLength is the number of code points kept in TextStatistics.TextPreview.
const PreviewLength = 100

// previewEllipsis is appended to previews of texts longer than PreviewLength.
const previewEllipsis = "..."

var sentenceDelimiters = regexp.MustCompile(`[.!?]+`)

// TextStatistics aggregates the other analyses with line, sentence and
// preview information.
type TextStatistics struct {
	CharacterAnalysis CharacterCount `json:"character_analysis"`
	WordAnalysis      WordCount      `json:"word_analysis"`
	CharacterTypes    CharacterTypes `json:"character_types"`
	LineCount         int            `json:"line_count" jsonschema:"description=Number of newline-separated segments"`
	NonEmptyLines     int            `json:"non_empty_lines" jsonschema:"description=Segments that are not blank"`
	SentenceCount     int            `json:"sentence_count" jsonschema:"description=Non-blank segments between runs of . ! ?"`
	TextPreview       string         `json:"text_preview" jsonschema:"description=First 100 code points with ... appended when truncated"`
}

// GetTextStatistics computes every analysis in this package for text.
func GetTextStatistics(text string) TextStatistics {
	lines := strings.Split(text, "\n")

	return TextStatistics{
		CharacterAnalysis: CountCharacters(text, true),
		WordAnalysis:      CountWords(text),
		CharacterTypes:    AnalyzeCharacterTypes(text),
		LineCount:         len(lines),
		NonEmptyLines:     countNonBlank(lines),
		SentenceCount:     countNonBlank(sentenceDelimiters.Split(text, -1)),
		TextPreview:       preview(text),
	}
}

func countNonBlank(segments []string) int {
	n := 0
	for _, s := range segments {
		if strings.TrimFunc(s, isWhitespace) != "" {
			n++
		}
	}
	return n
}

func preview(text string) string {
	// Cheap exit: a string of at most PreviewLength bytes cannot exceed
	// PreviewLength code points.
	if len(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + previewEllipsis
}
