// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path"
	"slices"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// BitDepther is implemented by sources that know the bit depth of the
// encoded data they decode.
type BitDepther interface {
	BitDepth() int
}

// NativeBitDepth returns the PCM depth a source should be encoded back to:
// 8 for sources decoded from 8-bit data, 16 for everything else.
func NativeBitDepth(src Source) int {
	if bd, ok := src.(BitDepther); ok && bd.BitDepth() == 8 {
		return 8
	}
	return 16
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
// Keys are case-insensitive and a leading dot is ignored, so file
// extensions can be used directly.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
	}
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}

func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[normalizeFormat(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.codecs[normalizeFormat(format)]
	return d, ok
}

// ForName picks a decoder from the extension of name ("sfx/bell.ogg" -> "ogg").
// The resolved format key is returned alongside the decoder.
func (r *Registry) ForName(name string) (Decoder, string, bool) {
	format := normalizeFormat(path.Ext(name))
	if format == "" {
		return nil, "", false
	}

	d, ok := r.Get(format)
	return d, format, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
