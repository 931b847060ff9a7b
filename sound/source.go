// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"fmt"
	"math"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/codec"
	"github.com/ik5/soundsys/utils"
)

type SourceKind int

const (
	// AssetSource plays a sound loaded through the codec.
	AssetSource SourceKind = iota
	// RawStreamSource plays PCM fed by the caller.
	RawStreamSource
)

func (k SourceKind) String() string {
	switch k {
	case AssetSource:
		return "asset"
	case RawStreamSource:
		return "raw"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Attenuation selects how a source fades with distance.
type Attenuation int

const (
	AttenuationNone Attenuation = iota
	// AttenuationRolloff fades as 1/(1 + r·d²·0.0005).
	AttenuationRolloff
	// AttenuationLinear fades to silence at a fixed distance.
	AttenuationLinear
)

func (a Attenuation) String() string {
	switch a {
	case AttenuationNone:
		return "none"
	case AttenuationRolloff:
		return "rolloff"
	case AttenuationLinear:
		return "linear"
	default:
		return fmt.Sprintf("Attenuation(%d)", int(a))
	}
}

// SourceSpec holds the parameters of a new source.
type SourceSpec struct {
	// Priority sources are never stolen while playing.
	Priority  bool
	Streaming bool
	Loop      bool
	Position  Vector3

	Attenuation Attenuation
	// DistOrRolloff is the rolloff factor or the linear fade distance.
	DistOrRolloff float32

	// Volume in [0,1]; nil means full volume. See Level.
	Volume *float32
}

// Level returns v for SourceSpec.Volume.
func Level(v float32) *float32 { return &v }

// Source is a named playback request. It holds a channel only while bound;
// the Library rebinds it on Play when its channel was taken.
type Source struct {
	name      string
	kind      SourceKind
	assetKey  string
	streaming bool
	temporary bool

	priority bool
	loop     bool
	position Vector3
	atten    Attenuation
	distOrRo float32
	volume   float32

	// raw streams and streaming assets
	format audio.Format

	channel Channel
	buffer  *audio.SoundBuffer

	session   codec.Session
	preloaded bool
	eof       bool

	// playing is the requested transport state.
	playing bool
}

func newSource(name string, kind SourceKind, key string, spec SourceSpec) *Source {
	vol := float32(1)
	if spec.Volume != nil {
		vol = *spec.Volume
	}
	return &Source{
		name:      name,
		kind:      kind,
		assetKey:  key,
		streaming: spec.Streaming || kind == RawStreamSource,
		priority:  spec.Priority,
		loop:      spec.Loop,
		position:  spec.Position,
		atten:     spec.Attenuation,
		distOrRo:  spec.DistOrRolloff,
		volume:    utils.Clamp(vol, 0, 1),
	}
}

// clone copies the parameters of s into an unbound source.
func (s *Source) clone() *Source {
	return &Source{
		name:      s.name,
		kind:      s.kind,
		assetKey:  s.assetKey,
		streaming: s.streaming,
		temporary: s.temporary,
		priority:  s.priority,
		loop:      s.loop,
		position:  s.position,
		atten:     s.atten,
		distOrRo:  s.distOrRo,
		volume:    s.volume,
		format:    s.format,
	}
}

func (s *Source) Name() string               { return s.name }
func (s *Source) Kind() SourceKind           { return s.kind }
func (s *Source) AssetKey() string           { return s.assetKey }
func (s *Source) Streaming() bool            { return s.streaming }
func (s *Source) Temporary() bool            { return s.temporary }
func (s *Source) Priority() bool             { return s.priority }
func (s *Source) Looping() bool              { return s.loop }
func (s *Source) Position() Vector3          { return s.position }
func (s *Source) Attenuation() Attenuation   { return s.atten }
func (s *Source) Volume() float32            { return s.volume }
func (s *Source) Format() audio.Format       { return s.format }
func (s *Source) Buffer() *audio.SoundBuffer { return s.buffer }

// Channel is the bound channel, or nil.
func (s *Source) Channel() Channel { return s.channel }
func (s *Source) Bound() bool      { return s.channel != nil }

// Playing reports whether the bound channel is producing sound.
func (s *Source) Playing() bool {
	return s.channel != nil && s.channel.Playing()
}

// distanceGain is the attenuation for a listener at lpos.
func (s *Source) distanceGain(lpos Vector3) float32 {
	d := s.position.Sub(lpos).Length()

	switch s.atten {
	case AttenuationRolloff:
		return 1 / (1 + s.distOrRo*d*d*0.0005)
	case AttenuationLinear:
		if s.distOrRo <= 0 {
			return 0
		}
		return utils.Clamp(1-d/s.distOrRo, 0, 1)
	default:
		return 1
	}
}

// panFor places the source on the listener's left/right axis.
func (s *Source) panFor(l *ListenerData) float32 {
	rel := s.position.Sub(l.Position)
	if rel.Length() == 0 {
		return 0
	}
	side := l.Up.Cross(l.LookAt).Normalize()
	x := side.Dot(rel)
	z := l.LookAt.Dot(rel)
	return -float32(math.Sin(math.Atan2(float64(x), float64(z))))
}

// spatialize pushes distance gain and pan to the bound channel.
func (s *Source) spatialize(l *ListenerData) {
	if s.channel == nil {
		return
	}
	s.channel.SetGain(s.volume * s.distanceGain(l.Position))
	s.channel.SetPan(s.panFor(l))
}
