// Package textanalyzer binds the textanalysis functions to MCP: five tools
// and the help resource.
package textanalyzer

import (
	"context"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
	"github.com/ggoodman/text-analyzer-mcp/textanalysis"
)

const (
	ServerName = "Text Analyzer Server"

	ToolCountCharacters       = "count_characters"
	ToolCountWords            = "count_words"
	ToolAnalyzeCharacterTypes = "analyze_character_types"
	ToolGetTextStatistics     = "get_text_statistics"
	ToolCheckTextLengthLimit  = "check_text_length_limit"
)

// Version is reported in serverInfo. It is overridden at build time with
// -ldflags "-X github.com/ggoodman/text-analyzer-mcp/textanalyzer.Version=...".
var Version = "0.1.0"

// TextArgs is the argument shape of tools that only take text.
type TextArgs struct {
	Text string `json:"text" jsonschema:"description=Text to analyze"`
}

type CountCharactersArgs struct {
	Text          string `json:"text" jsonschema:"description=Text to analyze"`
	IncludeSpaces *bool  `json:"include_spaces,omitempty" jsonschema:"description=Whether final_count includes spaces,default=true"`
}

type CheckTextLengthLimitArgs struct {
	Text      string `json:"text" jsonschema:"description=Text to check"`
	MaxLength *int   `json:"max_length,omitempty" jsonschema:"description=Maximum allowed number of characters,default=1000"`
}

// Tools returns a container holding the five analysis tools in their
// canonical listing order.
func Tools() *mcpservice.ToolsContainer {
	return mcpservice.NewToolsContainer(
		mcpservice.NewTool(ToolCountCharacters, countCharacters,
			mcpservice.WithToolDescription("Count the characters of a text, with and without spaces.")),
		mcpservice.NewTool(ToolCountWords, countWords,
			mcpservice.WithToolDescription("Count the words of a text, the unique words and the average word length.")),
		mcpservice.NewTool(ToolAnalyzeCharacterTypes, analyzeCharacterTypes,
			mcpservice.WithToolDescription("Break the characters of a text down by type: letters (Korean and English), numbers, spaces, punctuation and special characters.")),
		mcpservice.NewTool(ToolGetTextStatistics, getTextStatistics,
			mcpservice.WithToolDescription("Comprehensive statistics for a text: character, word and character type analysis plus line and sentence counts.")),
		mcpservice.NewTool(ToolCheckTextLengthLimit, checkTextLengthLimit,
			mcpservice.WithToolDescription("Check whether a text fits within a maximum number of characters.")),
	)
}

// Resources returns a container holding the help resource.
func Resources() *mcpservice.ResourcesContainer {
	return mcpservice.NewResourcesContainer(
		mcpservice.TextResource(textanalysis.HelpURI, "help", "text/plain", textanalysis.Help),
	)
}

// New assembles the server capabilities. Options are applied after the
// defaults and may override them.
func New(opts ...mcpservice.ServerOption) mcpservice.ServerCapabilities {
	base := []mcpservice.ServerOption{
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: ServerName, Version: Version}),
		mcpservice.WithInstructions("Text analysis tools. Read " + textanalysis.HelpURI + " for usage examples."),
		mcpservice.WithToolsCapability(Tools()),
		mcpservice.WithResourcesCapability(Resources()),
	}
	return mcpservice.NewServer(append(base, opts...)...)
}

func countCharacters(_ context.Context, a CountCharactersArgs) (textanalysis.CharacterCount, error) {
	includeSpaces := true
	if a.IncludeSpaces != nil {
		includeSpaces = *a.IncludeSpaces
	}
	return textanalysis.CountCharacters(a.Text, includeSpaces), nil
}

func countWords(_ context.Context, a TextArgs) (textanalysis.WordCount, error) {
	return textanalysis.CountWords(a.Text), nil
}

func analyzeCharacterTypes(_ context.Context, a TextArgs) (textanalysis.CharacterTypes, error) {
	return textanalysis.AnalyzeCharacterTypes(a.Text), nil
}

func getTextStatistics(_ context.Context, a TextArgs) (textanalysis.TextStatistics, error) {
	return textanalysis.GetTextStatistics(a.Text), nil
}

func checkTextLengthLimit(_ context.Context, a CheckTextLengthLimitArgs) (textanalysis.LengthLimit, error) {
	maxLength := textanalysis.DefaultMaxLength
	if a.MaxLength != nil {
		maxLength = *a.MaxLength
	}
	return textanalysis.CheckTextLengthLimit(a.Text, maxLength), nil
}
