// Package textanalysis implements the text statistics exposed by the
// text-analyzer MCP server: character counts, word counts, a character-class
// breakdown, aggregate statistics and length-limit checks.
//
// Every function is pure. Results depend only on the arguments and the
// functions are safe for concurrent use without coordination. No input is
// rejected: empty strings, whitespace-only strings and non-positive limits all
// produce well-formed records.
//
// Lengths are measured in Unicode code points (runes), never bytes or
// grapheme clusters.
//
// The JSON field names on the result types are part of the tool contract and
// are what MCP clients observe in structuredContent.
//
// Example:
//
//	res := textanalysis.CountCharacters("안녕하세요 Hello World!", true)
//	fmt.Println(res.TotalCharacters, res.SpacesCount) // 18 2
package textanalysis
