// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"io/fs"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/metric"
)

// CopyPolicy decides what CopySources does with a source whose buffer
// cannot be resolved.
type CopyPolicy int

const (
	// CopyLenient drops the source and keeps going.
	CopyLenient CopyPolicy = iota
	// CopyStrict aborts and leaves the registry as it was.
	CopyStrict
)

func (p CopyPolicy) String() string {
	if p == CopyStrict {
		return "strict"
	}
	return "lenient"
}

const (
	defaultBufferedChannels  = 28
	defaultStreamingChannels = 4
	defaultStreamChunk       = 16 * 1024
	defaultPreload           = 3
)

type options struct {
	buffered   int
	streaming  int
	copyPolicy CopyPolicy
	assets     fs.FS
	logger     *slog.Logger
	meter      metric.MeterProvider
	diag       *Diagnostics
	chunk      int
	preload    int
}

type Option func(*options)

// WithChannels sets the pool sizes.
func WithChannels(buffered, streaming int) Option {
	return func(o *options) {
		o.buffered = max(buffered, 0)
		o.streaming = max(streaming, 0)
	}
}

func WithCopyPolicy(p CopyPolicy) Option {
	return func(o *options) { o.copyPolicy = p }
}

// WithAssets sets the filesystem asset keys are resolved in. The default
// is the working directory.
func WithAssets(fsys fs.FS) Option {
	return func(o *options) { o.assets = fsys }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// WithDiagnostics shares a caller-owned diagnostics slot.
func WithDiagnostics(d *Diagnostics) Option {
	return func(o *options) { o.diag = d }
}

// WithStreaming sets the chunk size read per streaming step and how many
// chunks are submitted before a streaming source starts.
func WithStreaming(chunkBytes, preload int) Option {
	return func(o *options) {
		if chunkBytes > 0 {
			o.chunk = chunkBytes
		}
		if preload > 0 {
			o.preload = preload
		}
	}
}

func defaultOptions() options {
	return options{
		buffered:  defaultBufferedChannels,
		streaming: defaultStreamingChannels,
		chunk:     defaultStreamChunk,
		preload:   defaultPreload,
	}
}

func (o *options) finish() {
	if o.assets == nil {
		o.assets = os.DirFS(".")
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "sound")
	}
	if o.diag == nil {
		o.diag = &Diagnostics{}
	}
}
