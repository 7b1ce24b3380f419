// Package config holds the small set of tunables the archive writer
// exposes as environment variables rather than hardcoded constants,
// following the teacher's use of github.com/kelseyhightower/envconfig
// under a per-project prefix.
package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is the set of environment-overridable tunables. All fields
// have defaults matching the archive format's own constants, so a
// caller that never touches the environment gets sane behavior.
type Config struct {
	// SinkBufferBytes is the bufio.Writer buffer size used by the
	// file-backed output sink.
	SinkBufferBytes int `envconfig:"SINK_BUFFER_BYTES" default:"262144"`
	// LZ4BlockBytes is the maximum uncompressed size of one LZ4 frame
	// block.
	LZ4BlockBytes int `envconfig:"LZ4_BLOCK_BYTES" default:"262144"`
	// WalkUnsorted controls whether AddFromPathRecursive's directory
	// walk visits siblings in godirwalk's unsorted (readdir) order
	// instead of lexical order. Takes effect when this Config is passed
	// to WithConfig (a later WithUnsortedWalk overrides it);
	// deterministic archives default to false.
	WalkUnsorted bool `envconfig:"WALK_UNSORTED" default:"false"`
}

// Load reads Config from the environment, using the TARXX_ prefix
// (e.g. TARXX_SINK_BUFFER_BYTES), falling back to each field's default
// when the corresponding variable is unset.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("TARXX", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: invalid environment variable")
	}
	return cfg, nil
}

// Default returns Config's defaults, for callers that construct a
// Writer without reading the process environment.
func Default() Config {
	return Config{
		SinkBufferBytes: 262144,
		LZ4BlockBytes:   262144,
		WalkUnsorted:    false,
	}
}
