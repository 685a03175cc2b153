package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/tagseek"
	"github.com/spf13/cobra"
)

// rootOptions carries the global flags down to the subcommands.
type rootOptions struct {
	logLevel string
	logJSON  bool
	quiet    bool
}

func (o *rootOptions) logger() (*tagseek.Logger, error) {
	if o.quiet {
		return tagseek.NoopLogger(), nil
	}

	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", o.logLevel)
	}

	if o.logJSON {
		return tagseek.NewJSONLogger(level), nil
	}
	return tagseek.NewTextLogger(level), nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rc := &cobra.Command{
		Use:   "tagseek",
		Short: "Restriction-tag sketching and metagenomic profiling",
		Long: `tagseek sketches Type IIB restriction tags from genomes and read
sets, estimates coverage-adjusted containment ANI between them, and
profiles metagenomic samples against reference databases.

Sketch references and samples once, then query or profile the compact
sketch files. Sketch inputs and outputs may live in object storage:
s3://bucket/key goes through the AWS SDK, minio://host/bucket/key
(minios:// for TLS) through the MinIO client, and bare paths through
the local filesystem.`,
		Version:       tagseek.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rc.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "log verbosity: debug, info, warn, or error")
	pf.BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")
	pf.BoolVar(&opts.quiet, "quiet", false, "disable logging entirely")

	rc.AddCommand(
		newSketchCommand(opts),
		newQueryCommand(opts, stdout),
		newProfileCommand(opts, stdout),
		newInspectCommand(stdout),
		newViewCommand(stdout),
		newMarkCommand(opts, stdout),
	)

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// openOutput maps "-" to the process stdout and anything else to a
// freshly created file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
