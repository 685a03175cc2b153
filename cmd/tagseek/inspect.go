package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/tagseek/codec"
	"github.com/hupe1980/tagseek/manifest"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/sketch"
	"github.com/spf13/cobra"
)

// inspectReport is the header-level JSON view of one sketch file.
type inspectReport struct {
	Path        string             `json:"path"`
	Kind        string             `json:"kind"`
	Params      manifest.Params    `json:"params"`
	Units       uint32             `json:"units"`
	Created     time.Time          `json:"created"`
	Compression string             `json:"compression"`
	Marked      bool               `json:"marked"`
	BodyBytes   uint64             `json:"body_bytes"`
	Manifest    *manifest.Manifest `json:"manifest,omitempty"`
}

func newInspectCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <sketches...>",
		Short: "Print sketch file headers and manifests as JSON",
		Long: `Inspect reads only the fixed headers, so it is fast on databases of
any size. Databases built with manifests enabled include the per-unit
build report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args, stdout)
		},
	}
	return cmd
}

func runInspect(ctx context.Context, args []string, stdout io.Writer) error {
	reports := make([]*inspectReport, 0, len(args))
	for _, arg := range args {
		p, err := resolveInput(ctx, arg)
		if err != nil {
			return err
		}
		info, err := sketch.ReadFileInfo(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", arg, err)
		}

		rep := &inspectReport{
			Path:        arg,
			Kind:        info.Kind,
			Params:      manifest.ParamsFrom(info.Params),
			Units:       info.UnitCount,
			Created:     info.Created,
			Compression: compressionName(info.Flags),
			Marked:      info.Flags&persistence.FlagMarked != 0,
			BodyBytes:   info.BodyLen,
		}

		// Nil for sketches built without manifests.
		m, err := manifest.LoadFor(p)
		if err != nil {
			return fmt.Errorf("read manifest for %s: %w", arg, err)
		}
		rep.Manifest = m

		reports = append(reports, rep)
	}

	data, err := codec.Default.Marshal(reports)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(stdout)
	return err
}

func compressionName(flags uint16) string {
	switch {
	case flags&persistence.FlagZstd != 0:
		return "zstd"
	case flags&persistence.FlagLZ4 != 0:
		return "lz4"
	default:
		return "none"
	}
}
