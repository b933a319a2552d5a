package textanalysis_test

import (
	"fmt"

	"github.com/ggoodman/text-analyzer-mcp/textanalysis"
)

func ExampleCountCharacters() {
	res := textanalysis.CountCharacters("안녕하세요 Hello World!", false)
	fmt.Println(res.TotalCharacters, res.SpacesCount, *res.FinalCount)
	// Output: 18 2 16
}

func ExampleCountWords() {
	res := textanalysis.CountWords("Hello world! Hello.")
	fmt.Println(res.WordCount, res.UniqueWords, res.AverageWordLength)
	// Output: 3 2 5
}

func ExampleCheckTextLengthLimit() {
	res := textanalysis.CheckTextLengthLimit("abc", 5)
	fmt.Println(res.WithinLimit, res.RemainingCharacters, res.PercentageUsed)
	// Output: true 2 60
}
