package textanalysis

// HelpURI is the resource URI under which Help is published.
const HelpURI = "file://help"

// Help describes the available tools with one example invocation each.
const Help = `Text Analyzer MCP Server help

Available tools:
1. count_characters(text, include_spaces) - count characters
2. count_words(text) - count words
3. analyze_character_types(text) - break characters down by type
4. get_text_statistics(text) - comprehensive statistics
5. check_text_length_limit(text, max_length) - check a length limit

Examples:
- count_characters("안녕하세요 Hello!", true)
- count_words("Hello world! Hello.")
- analyze_character_types("안녕123! Hello@World#")
- get_text_statistics("분석할 텍스트를 입력하세요.")
- check_text_length_limit("텍스트", 100)
`
