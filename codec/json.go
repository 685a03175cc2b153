package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable option: manifests written with it decode on
// any Go toolchain without third-party code. Reports that must be
// consumed by external tooling (inspect --json) also render through
// the selected codec.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when none is configured.
//
// This affects newly written manifests only. Existing files record the
// codec name that wrote them and are reopened by selecting it with
// ByName.
var Default Codec = GoJSON{}
