package tarxx

import (
	"github.com/hashicorp/go-hclog"

	"github.com/thilo-schmitt/tarxx/config"
	"github.com/thilo-schmitt/tarxx/hostfs"
	"github.com/thilo-schmitt/tarxx/internal/tarheader"
)

// settings accumulates the effect of every Option before a Writer is
// constructed.
type settings struct {
	format       tarheader.Format
	compressed   bool
	logger       hclog.Logger
	fs           hostfs.Filesystem
	id           hostfs.Identity
	cfg          config.Config
	unsortedWalk bool
}

func newSettings() *settings {
	host := hostfs.NewOS()
	cfg := config.Default()
	return &settings{
		format:       tarheader.V7,
		logger:       hclog.NewNullLogger(),
		fs:           host,
		id:           host,
		cfg:          cfg,
		unsortedWalk: cfg.WalkUnsorted,
	}
}

// Option configures a Writer at construction time.
type Option interface {
	applyOption(*settings)
}

type formatOption struct{ format tarheader.Format }

func (o formatOption) applyOption(s *settings) { s.format = o.format }

// WithFormat selects the on-disk tar dialect: V7 (the default) or
// USTAR.
func WithFormat(format tarheader.Format) Option {
	return formatOption{format: format}
}

type compressionOption struct{ enabled bool }

func (o compressionOption) applyOption(s *settings) { s.compressed = o.enabled }

// WithCompression wraps the archive in an LZ4 frame when enabled.
func WithCompression(enabled bool) Option {
	return compressionOption{enabled: enabled}
}

type loggerOption struct{ logger hclog.Logger }

func (o loggerOption) applyOption(s *settings) { s.logger = o.logger }

// WithLogger installs a structured logger. The default is a null
// logger, so a Writer is silent unless a caller opts in.
func WithLogger(logger hclog.Logger) Option {
	return loggerOption{logger: logger}
}

type hostOption struct {
	fs hostfs.Filesystem
	id hostfs.Identity
}

func (o hostOption) applyOption(s *settings) {
	s.fs = o.fs
	s.id = o.id
}

// WithHost overrides the host filesystem and identity abstraction the
// writer uses for AddFromPath and AddFromPathRecursive. The default is
// hostfs.NewOS(), the real local filesystem.
func WithHost(fs hostfs.Filesystem, id hostfs.Identity) Option {
	return hostOption{fs: fs, id: id}
}

type configOption struct{ cfg config.Config }

func (o configOption) applyOption(s *settings) {
	s.cfg = o.cfg
	s.unsortedWalk = o.cfg.WalkUnsorted
}

// WithConfig overrides the writer's buffering, block-size, and walk
// tunables in one call, e.g. with a Config loaded from the environment
// via config.Load(). The default is config.Default(). A WithUnsortedWalk
// given after WithConfig takes precedence over cfg.WalkUnsorted.
func WithConfig(cfg config.Config) Option {
	return configOption{cfg: cfg}
}

type unsortedWalkOption struct{ unsorted bool }

func (o unsortedWalkOption) applyOption(s *settings) { s.unsortedWalk = o.unsorted }

// WithUnsortedWalk makes AddFromPathRecursive visit siblings in
// directory (readdir) order instead of lexical order. Faster on large
// trees, at the cost of a non-deterministic archive layout.
func WithUnsortedWalk(unsorted bool) Option {
	return unsortedWalkOption{unsorted: unsorted}
}
