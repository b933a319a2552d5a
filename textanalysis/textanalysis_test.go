package textanalysis

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestCountCharacters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		text          string
		includeSpaces bool
		want          CharacterCount
	}{
		{
			name:          "mixed korean and english with spaces",
			text:          "안녕하세요 Hello World!",
			includeSpaces: true,
			want: CharacterCount{
				TotalCharacters:         18,
				CharactersWithoutSpaces: 16,
				SpacesCount:             2,
				TextLength:              18,
				IncludeSpacesSetting:    ptr(true),
				FinalCount:              ptr(18),
			},
		},
		{
			name:          "exclude spaces",
			text:          "안녕하세요 Hello World!",
			includeSpaces: false,
			want: CharacterCount{
				TotalCharacters:         18,
				CharactersWithoutSpaces: 16,
				SpacesCount:             2,
				TextLength:              18,
				IncludeSpacesSetting:    ptr(false),
				FinalCount:              ptr(16),
			},
		},
		{
			name:          "empty text has the reduced shape",
			text:          "",
			includeSpaces: true,
			want:          CharacterCount{},
		},
		{
			name:          "spaces only",
			text:          "   ",
			includeSpaces: false,
			want: CharacterCount{
				TotalCharacters:         3,
				CharactersWithoutSpaces: 0,
				SpacesCount:             3,
				TextLength:              3,
				IncludeSpacesSetting:    ptr(false),
				FinalCount:              ptr(0),
			},
		},
		{
			name:          "other whitespace is not a space",
			text:          "a\tb\nc　d",
			includeSpaces: false,
			want: CharacterCount{
				TotalCharacters:         7,
				CharactersWithoutSpaces: 7,
				SpacesCount:             0,
				TextLength:              7,
				IncludeSpacesSetting:    ptr(false),
				FinalCount:              ptr(7),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CountCharacters(tc.text, tc.includeSpaces)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("CountCharacters(%q, %v) mismatch (-want +got):\n%s", tc.text, tc.includeSpaces, diff)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want WordCount
	}{
		{"empty", "", WordCount{}},
		{"punctuation only", "!!! ... ???", WordCount{}},
		{"case folded duplicates", "Hello world! Hello.", WordCount{WordCount: 3, UniqueWords: 2, AverageWordLength: 5}},
		{"korean and english", "안녕하세요! 이것은 테스트 텍스트입니다. Hello world!", WordCount{WordCount: 6, UniqueWords: 6, AverageWordLength: 4.5}},
		{"underscore and digits are word characters", "snake_case and 42", WordCount{WordCount: 3, UniqueWords: 3, AverageWordLength: 5}},
		{"average is rounded", "a bb bb", WordCount{WordCount: 3, UniqueWords: 2, AverageWordLength: 1.67}},
		{"mixed case collapses", "Go GO go gO", WordCount{WordCount: 4, UniqueWords: 1, AverageWordLength: 2}},
		{"final sigma", "ΣΑΣ σας", WordCount{WordCount: 2, UniqueWords: 1, AverageWordLength: 3}},
		{"dotted capital I expands", "İx", WordCount{WordCount: 2, UniqueWords: 2, AverageWordLength: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CountWords(tc.text)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("CountWords(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestAnalyzeCharacterTypes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want CharacterTypes
	}{
		{"empty", "", CharacterTypes{}},
		{
			name: "mixed sample",
			text: "안녕123! Hello@World#",
			want: CharacterTypes{Alphabetic: 12, Numeric: 3, Spaces: 1, Punctuation: 3, Korean: 2, English: 10},
		},
		{"digits only", "12345", CharacterTypes{Numeric: 5}},
		{"punctuation and a currency symbol", "!@#$%", CharacterTypes{Punctuation: 4, SpecialCharacters: 1}},
		{"non-ascii letters are only alphabetic", "Ωé一", CharacterTypes{Alphabetic: 3}},
		{"unicode numerals", "½²٣", CharacterTypes{Numeric: 3}},
		{"unicode whitespace", "\t\n　\u001f ", CharacterTypes{Spaces: 5}},
		{"symbols controls and marks", "+©\u0301\u0007", CharacterTypes{SpecialCharacters: 4}},
		{"hangul jamo is not a syllable", "ㄱ", CharacterTypes{Alphabetic: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := AnalyzeCharacterTypes(tc.text)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("AnalyzeCharacterTypes(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestGetTextStatistics(t *testing.T) {
	t.Parallel()

	t.Run("multi-line korean text", func(t *testing.T) {
		t.Parallel()
		text := "안녕하세요!\n이것은 여러 줄로 된 테스트입니다.\nHello World!\n테스트가 완료되었습니다."
		got := GetTextStatistics(text)

		if got.LineCount != 4 {
			t.Errorf("LineCount = %d, want 4", got.LineCount)
		}
		if got.NonEmptyLines != 4 {
			t.Errorf("NonEmptyLines = %d, want 4", got.NonEmptyLines)
		}
		if got.SentenceCount != 4 {
			t.Errorf("SentenceCount = %d, want 4", got.SentenceCount)
		}
		if got.TextPreview != text {
			t.Errorf("TextPreview = %q, want the full text", got.TextPreview)
		}
		if diff := cmp.Diff(CountCharacters(text, true), got.CharacterAnalysis); diff != "" {
			t.Errorf("CharacterAnalysis mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(CountWords(text), got.WordAnalysis); diff != "" {
			t.Errorf("WordAnalysis mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(AnalyzeCharacterTypes(text), got.CharacterTypes); diff != "" {
			t.Errorf("CharacterTypes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		want := TextStatistics{LineCount: 1}
		if diff := cmp.Diff(want, GetTextStatistics("")); diff != "" {
			t.Errorf("GetTextStatistics(\"\") mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("blank lines", func(t *testing.T) {
		t.Parallel()
		got := GetTextStatistics("a\n\n  \n\tb\n")
		if got.LineCount != 5 || got.NonEmptyLines != 2 {
			t.Errorf("lines = %d/%d, want 5/2", got.LineCount, got.NonEmptyLines)
		}
	})

	t.Run("runs of sentence delimiters", func(t *testing.T) {
		t.Parallel()
		got := GetTextStatistics("Hi!!! How are you?? Fine. ...")
		if got.SentenceCount != 3 {
			t.Errorf("SentenceCount = %d, want 3", got.SentenceCount)
		}
	})

	t.Run("preview", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name string
			text string
			want string
		}{
			{"long ascii", strings.Repeat("a", 150), strings.Repeat("a", 100) + "..."},
			{"exactly the limit", strings.Repeat("a", 100), strings.Repeat("a", 100)},
			{"long korean", strings.Repeat("가", 101), strings.Repeat("가", 100) + "..."},
			{"multibyte under the limit", strings.Repeat("가", 60), strings.Repeat("가", 60)},
		}
		for _, tc := range cases {
			if got := GetTextStatistics(tc.text).TextPreview; got != tc.want {
				t.Errorf("%s: TextPreview = %q, want %q", tc.name, got, tc.want)
			}
		}
	})
}

func TestCheckTextLengthLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		max  int
		want LengthLimit
	}{
		{"within", "abc", 5, LengthLimit{CurrentLength: 3, MaxLength: 5, WithinLimit: true, RemainingCharacters: 2, PercentageUsed: 60}},
		{"exact", "abc", 3, LengthLimit{CurrentLength: 3, MaxLength: 3, WithinLimit: true, PercentageUsed: 100}},
		{"over", "abcd", 3, LengthLimit{CurrentLength: 4, MaxLength: 3, ExcessCharacters: 1, PercentageUsed: 133.33}},
		{"zero limit", "abc", 0, LengthLimit{CurrentLength: 3, MaxLength: 0, ExcessCharacters: 3}},
		{"negative limit", "abc", -2, LengthLimit{CurrentLength: 3, MaxLength: -2, ExcessCharacters: 5}},
		{"empty text", "", 10, LengthLimit{MaxLength: 10, WithinLimit: true, RemainingCharacters: 10}},
		{"korean counts code points", "짧은 텍스트", 100, LengthLimit{CurrentLength: 6, MaxLength: 100, WithinLimit: true, RemainingCharacters: 94, PercentageUsed: 6}},
		{"rounded percentage", "ab", 3, LengthLimit{CurrentLength: 2, MaxLength: 3, WithinLimit: true, RemainingCharacters: 1, PercentageUsed: 66.67}},
		{"min int limit saturates", "abc", math.MinInt, LengthLimit{CurrentLength: 3, MaxLength: math.MinInt, ExcessCharacters: math.MaxInt}},
		{"min int limit empty text", "", math.MinInt, LengthLimit{MaxLength: math.MinInt, ExcessCharacters: math.MaxInt}},
		{"max int limit", "abc", math.MaxInt, LengthLimit{CurrentLength: 3, MaxLength: math.MaxInt, WithinLimit: true, RemainingCharacters: math.MaxInt - 3, PercentageUsed: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CheckTextLengthLimit(tc.text, tc.max)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("CheckTextLengthLimit(%q, %d) mismatch (-want +got):\n%s", tc.text, tc.max, diff)
			}
		})
	}
}

// corpus is shared by the invariant checks below.
var corpus = []string{
	"",
	" ",
	"안녕하세요 Hello World!",
	"tabs\tand\nnewlines\r\n",
	"full　width spaces",
	"½ + ² = ?",
	"emoji 👋🏽 and flags 🇰🇷",
	"combining é marks",
	"control\u0000\u0007chars",
	"\xff\xfe invalid utf-8",
	strings.Repeat("긴 텍스트입니다. ", 20),
}

func TestInvariants(t *testing.T) {
	t.Parallel()

	for _, text := range corpus {
		length := utf8.RuneCountInString(text)

		if text != "" {
			if got := *CountCharacters(text, true).FinalCount; got != length {
				t.Errorf("%q: final_count(include) = %d, want %d", text, got, length)
			}
			want := utf8.RuneCountInString(strings.ReplaceAll(text, " ", ""))
			if got := *CountCharacters(text, false).FinalCount; got != want {
				t.Errorf("%q: final_count(exclude) = %d, want %d", text, got, want)
			}
		}

		ct := AnalyzeCharacterTypes(text)
		if ct.Total() != length {
			t.Errorf("%q: bucket total = %d, want %d (%+v)", text, ct.Total(), length, ct)
		}
		if ct.Korean+ct.English > ct.Alphabetic {
			t.Errorf("%q: sub-counts exceed alphabetic: %+v", text, ct)
		}

		if got := CheckTextLengthLimit(text, 0).PercentageUsed; got != 0 {
			t.Errorf("%q: percentage with zero limit = %v, want 0", text, got)
		}

		for _, limit := range []int{math.MinInt, math.MinInt + 1, -1, 0, 1, 5, length, 1000, math.MaxInt} {
			res := CheckTextLengthLimit(text, limit)
			if length == limit {
				if res.ExcessCharacters != 0 || res.RemainingCharacters != 0 {
					t.Errorf("%q/%d: expected no excess or remaining, got %+v", text, limit, res)
				}
				continue
			}
			if (res.ExcessCharacters > 0) == (res.RemainingCharacters > 0) {
				t.Errorf("%q/%d: excess and remaining not exclusive: %+v", text, limit, res)
			}
		}
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{5, 5},
		{1.5, 1.5},
		{2.0 / 3.0, 0.67},
		{100.0 / 3.0, 33.33},
		{4.0 / 3.0 * 100, 133.33},
	}
	for _, tc := range cases {
		if got := round2(tc.in); got != tc.want {
			t.Errorf("round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
