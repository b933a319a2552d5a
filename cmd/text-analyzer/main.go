// Command text-analyzer serves the text analysis tools over MCP, or runs them
// locally from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/text-analyzer-mcp/internal/config"
	"github.com/ggoodman/text-analyzer-mcp/textanalysis"
	"github.com/ggoodman/text-analyzer-mcp/textanalyzer"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration and I/O of one invocation.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "text-analyzer",
		Short: "MCP server exposing text statistics tools",
		Long: `text-analyzer is a Model Context Protocol server offering five text
analysis tools (count_characters, count_words, analyze_character_types,
get_text_statistics and check_text_length_limit) and a help resource.

Running 'text-analyzer' without a subcommand serves the transport selected by
TEXT_ANALYZER_TRANSPORT (stdio unless set).`,
		Version:       textanalyzer.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Transport == config.TransportHTTP {
				return a.serveHTTP(cmd.Context())
			}
			return a.serveStdio(cmd.Context())
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error (env TEXT_ANALYZER_LOG_LEVEL)")
	pf.String("log-format", defaults.LogFormat, "log format: text or json (env TEXT_ANALYZER_LOG_FORMAT)")

	root.AddCommand(newStdioCmd(a), newHTTPCmd(a, defaults), newAnalyzeCmd(a))
	root.SetHelpCommand(newHelpCmd(a))

	return root
}

// configure loads the environment, applies any flags the user set and builds
// the logger. Logs always go to stderr; stdout carries protocol frames in
// stdio mode. Commands that do not serve only validate the log settings.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Decode()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("metrics-path") {
		cfg.MetricsPath, _ = flags.GetString("metrics-path")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("rate-burst") {
		cfg.RateBurst, _ = flags.GetInt("rate-burst")
	}
	if flags.Changed("session-idle-ttl") {
		cfg.SessionIdleTTL, _ = flags.GetDuration("session-idle-ttl")
	}
	if flags.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout, _ = flags.GetDuration("shutdown-timeout")
	}
	switch cmd.Name() {
	case "stdio":
		cfg.Transport = config.TransportStdio
	case "http":
		cfg.Transport = config.TransportHTTP
	}

	validate := cfg.Validate
	if isOffline(cmd) {
		validate = cfg.ValidateLogging
	}
	if err := validate(); err != nil {
		return err
	}

	lvl, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if cfg.LogFormat == config.LogFormatJSON {
		h = slog.NewJSONHandler(a.stderr, opts)
	} else {
		h = slog.NewTextHandler(a.stderr, opts)
	}

	a.cfg = cfg
	a.log = slog.New(h)
	return nil
}

// isOffline reports whether cmd runs without serving MCP.
func isOffline(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "analyze", "help":
		return true
	}
	return false
}

func newHelpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Print tool usage, or help about a command",
		Long: `Without arguments, prints the text of the file://help resource: the
available tools and example invocations. With a command name, prints help
about that command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_, err := fmt.Fprint(a.stdout, textanalysis.Help)
				return err
			}
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				return fmt.Errorf("unknown help topic %q", args)
			}
			return target.Help()
		},
	}
}
