package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
	"github.com/ggoodman/text-analyzer-mcp/textanalysis"
	"github.com/ggoodman/text-analyzer-mcp/textanalyzer"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		includeSpaces bool
		maxLength     int
	)

	tools := textanalyzer.Tools()
	var names []string
	for _, t := range tools.Snapshot() {
		names = append(names, t.Name)
	}

	cmd := &cobra.Command{
		Use:   "analyze <tool> [text]",
		Short: "Run one analysis tool locally and print its JSON result",
		Long: `Run one of the analysis tools without an MCP client. The text is taken
from the second argument, or read from stdin when it is omitted.

Example:
  text-analyzer analyze count_words "Hello world"
  echo "Hello world" | text-analyzer analyze get_text_statistics
  text-analyzer analyze check_text_length_limit --max-length 5 "Hello world"`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 2 {
				text = args[1]
			} else {
				b, err := io.ReadAll(a.stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r")
			}

			arguments := map[string]any{"text": text}
			if cmd.Flags().Changed("include-spaces") {
				arguments["include_spaces"] = includeSpaces
			}
			if cmd.Flags().Changed("max-length") {
				arguments["max_length"] = maxLength
			}
			raw, err := json.Marshal(arguments)
			if err != nil {
				return fmt.Errorf("encode arguments: %w", err)
			}

			start := time.Now()
			res, err := tools.CallTool(cmd.Context(), &mcp.CallToolRequestReceived{
				Name:      args[0],
				Arguments: raw,
			})
			if err != nil {
				if errors.Is(err, mcpservice.ErrToolNotFound) {
					return fmt.Errorf("unknown tool %q: expected one of %s", args[0], strings.Join(names, ", "))
				}
				return fmt.Errorf("call %s: %w", args[0], err)
			}
			a.log.DebugContext(cmd.Context(), "analyze.ok",
				slog.String("tool", args[0]),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()),
			)

			var out strings.Builder
			for _, c := range res.Content {
				if c.Type == mcp.ContentTypeText {
					out.WriteString(c.Text)
				}
			}
			if res.IsError {
				return errors.New(out.String())
			}
			_, err = fmt.Fprintln(a.stdout, out.String())
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&includeSpaces, "include-spaces", true, "count_characters: include spaces in final_count")
	f.IntVar(&maxLength, "max-length", textanalysis.DefaultMaxLength, "check_text_length_limit: maximum number of characters")

	return cmd
}
