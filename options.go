package tagseek

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/tagseek/codec"
	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/resource"
)

// Defaults applied by New when the corresponding knob is unset.
const (
	// DefaultThreads bounds concurrent unit sketching.
	DefaultThreads = 3

	// DefaultSampleThreads bounds concurrent sample estimation.
	DefaultSampleThreads = 1

	// DefaultMinSpacing is the minimum distance in bases between kept
	// genome sites.
	DefaultMinSpacing = 30

	// DefaultSubsampleRate keeps roughly one in this many read tags.
	DefaultSubsampleRate = 200
)

// Compression selects the body compression of written sketch files.
type Compression uint8

const (
	// CompressionDefault writes zstd database bodies and lz4 sample
	// bodies.
	CompressionDefault Compression = iota
	CompressionZstd
	CompressionLZ4
	CompressionNone
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionNone:
		return "none"
	default:
		return "default"
	}
}

// ParseCompression maps a CLI flag value to a Compression. The empty
// string and "default" select the per-kind defaults.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "default":
		return CompressionDefault, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, &ConfigurationError{Param: "compression", Value: s, Reason: "want zstd, lz4, none or default"}
	}
}

func (c Compression) databaseFlags() uint16 {
	switch c {
	case CompressionLZ4:
		return persistence.FlagLZ4
	case CompressionNone:
		return 0
	default:
		return persistence.FlagZstd
	}
}

func (c Compression) sampleFlags() uint16 {
	switch c {
	case CompressionZstd:
		return persistence.FlagZstd
	case CompressionNone:
		return 0
	default:
		return persistence.FlagLZ4
	}
}

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	resources        resource.Config
	compression      Compression
	threads          int
	sampleThreads    int
	sampleThreadsSet bool
	spillDir         string
	manifests        bool
}

// Option configures Tagseek constructor behavior.
type Option func(*options)

// WithCodec configures the codec used for manifest files.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tagseek.BasicMetricsCollector{}
//	ts, _ := tagseek.New(cfg, tagseek.WithMetricsCollector(metrics))
//	// ... use ts ...
//	stats := metrics.GetStats()
//	fmt.Printf("Sketches: %d, Avg latency: %dns\n", stats.SketchCount, stats.SketchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tagseek.NewJSONLogger(slog.LevelInfo)
//	ts, _ := tagseek.New(cfg, tagseek.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResources configures the run-wide memory budget, worker bound
// and publish rate limit.
func WithResources(cfg resource.Config) Option {
	return func(o *options) {
		o.resources = cfg
	}
}

// WithCompression selects the body compression of written files.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithThreads bounds how many input units are sketched concurrently.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithSampleThreads bounds how many samples are estimated concurrently.
// Unset, QueryMany runs one sample at a time while ProfileMany scales
// with the sketching thread count.
func WithSampleThreads(n int) Option {
	return func(o *options) {
		o.sampleThreads = n
		o.sampleThreadsSet = true
	}
}

// WithSpillDir sets the directory for sketch spill segments created
// when the memory budget is exhausted. Defaults to the system temp
// directory.
func WithSpillDir(dir string) Option {
	return func(o *options) {
		o.spillDir = dir
	}
}

// WithoutManifests disables writing provenance manifests next to
// database files.
func WithoutManifests() Option {
	return func(o *options) {
		o.manifests = false
	}
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		threads:          DefaultThreads,
		sampleThreads:    DefaultSampleThreads,
		manifests:        true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.threads < 1 {
		return o, &ConfigurationError{Param: "threads", Value: fmt.Sprint(o.threads), Reason: "must be positive"}
	}
	if o.sampleThreads < 1 {
		return o, &ConfigurationError{Param: "sample threads", Value: fmt.Sprint(o.sampleThreads), Reason: "must be positive"}
	}
	return o, nil
}
