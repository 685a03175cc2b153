// Package manifest records sketch-run provenance beside database
// files: what was sketched, with which parameters, and how long it
// took. Inspect merges the manifest into its report when one exists.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/tagseek/codec"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/sketch"
)

const (
	// CurrentVersion is written into new manifests; loaders reject
	// anything newer.
	CurrentVersion = 1

	// Suffix appended to the database path to name its manifest.
	Suffix = ".manifest.json"
)

// Params mirrors sketch.Params with stable JSON keys.
type Params struct {
	Enzyme        string `json:"enzyme"`
	TagLen        uint8  `json:"tag_len"`
	AnchorOffset  uint8  `json:"anchor_offset"`
	MinSpacing    uint32 `json:"min_spacing"`
	SubsampleRate uint32 `json:"subsample_rate"`
}

// ParamsFrom converts persisted sketch parameters.
func ParamsFrom(p sketch.Params) Params {
	return Params{
		Enzyme:        p.Enzyme,
		TagLen:        p.TagLen,
		AnchorOffset:  p.AnchorOffset,
		MinSpacing:    p.MinSpacing,
		SubsampleRate: p.SubsampleRate,
	}
}

// Unit is one sketched input as recorded in the manifest.
type Unit struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Files     []string `json:"files,omitempty"`
	SizeBytes int64    `json:"size_bytes,omitempty"`
	Tags      uint64   `json:"tags,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Manifest describes one sketching run.
type Manifest struct {
	Version int    `json:"version"`
	Tool    string `json:"tool"`
	Codec   string `json:"codec"`

	Created time.Time `json:"created"`
	Params  Params    `json:"params"`
	Units   []Unit    `json:"units"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// PathFor returns the manifest path for a database file.
func PathFor(dbPath string) string {
	return dbPath + Suffix
}

// Save writes the manifest atomically beside the database. A nil
// codec falls back to codec.Default.
func Save(path string, m *Manifest, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	m.Version = CurrentVersion
	m.Codec = c.Name()

	data, err := c.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return persistence.SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Load reads a manifest. The file names the codec that wrote it; Load
// decodes with that codec when it is registered. A missing file is
// reported as os.ErrNotExist.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if c, ok := codec.ByName(m.Codec); ok && c.Name() != codec.Default.Name() {
		m = Manifest{}
		if err := c.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode manifest %s: %w", path, err)
		}
	}

	if m.Version > CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected <= %d)", m.Version, CurrentVersion)
	}
	return &m, nil
}

// LoadFor reads the manifest beside a database file, or nil when none
// exists.
func LoadFor(dbPath string) (*Manifest, error) {
	m, err := Load(PathFor(dbPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return m, err
}
