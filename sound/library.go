// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
	"github.com/ik5/soundsys/codec"
	"github.com/ik5/soundsys/internal/observe"
	"github.com/ik5/soundsys/utils"
)

// tickSteps bounds the work Tick does for one streaming source.
const tickSteps = 8

// Library owns one driver's channel pools, the buffer caches, the source
// registry and the listener. It is not safe for concurrent use; callers
// poll it with Tick.
type Library struct {
	drv     backend.Driver
	codec   codec.Codec
	opts    options
	env     *env
	log     *slog.Logger
	metrics *observe.Metrics

	// buffers and ids are always written together.
	buffers map[string]*audio.SoundBuffer
	ids     map[string]backend.BufferID
	sources map[string]*Source

	buffered  *pool[*BufferedChannel]
	streaming *pool[*StreamingChannel]

	listener ListenerData
	// native is the driver-side listener, rewritten in place.
	native backend.ListenerState
	master float32

	seq    int
	closed bool
}

// New creates a library on drv. A nil codec decodes every bundled format at
// its native rate and layout.
func New(drv backend.Driver, c codec.Codec, opts ...Option) (*Library, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrValidation)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.finish()

	if c == nil {
		c = codec.New(nil, audio.Format{})
	}

	met := observe.DefaultMetrics()
	if o.meter != nil {
		var err error
		if met, err = observe.NewMetrics(o.meter); err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
	}

	l := &Library{
		drv:      drv,
		codec:    c,
		opts:     o,
		log:      o.logger,
		metrics:  met,
		buffers:  make(map[string]*audio.SoundBuffer),
		ids:      make(map[string]backend.BufferID),
		sources:  make(map[string]*Source),
		listener: NewListenerData(),
		master:   1,
	}
	l.env = &env{diag: o.diag, log: o.logger, metrics: met}

	l.buffered = newPool(Buffered, o.buffered, func() *BufferedChannel {
		return l.createChannel(Buffered).(*BufferedChannel)
	})
	l.streaming = newPool(Streaming, o.streaming, func() *StreamingChannel {
		return l.createChannel(Streaming).(*StreamingChannel)
	})

	l.pushListener()

	l.log.Debug("library ready",
		"driver", drv.Name(),
		"buffered", o.buffered,
		"streaming", o.streaming,
		"copy_policy", o.copyPolicy.String())
	return l, nil
}

// createChannel builds every pooled channel.
func (l *Library) createChannel(kind ChannelKind) Channel {
	if kind == Streaming {
		return newStreamingChannel(l.env, l.drv)
	}
	return newBufferedChannel(l.env, l.drv)
}

func (l *Library) Driver() backend.Driver    { return l.drv }
func (l *Library) Diagnostics() *Diagnostics { return l.env.diag }
func (l *Library) Listener() ListenerData    { return l.listener }
func (l *Library) MasterVolume() float32     { return l.master }

// fail records err as the latest diagnostic, logs it and returns it.
func (l *Library) fail(op string, err error) error {
	l.env.diag.Record(err)
	l.log.Warn("operation failed", "op", op, "err", err)
	return err
}

func (l *Library) checkOpen() error {
	if l.closed {
		return ErrClosed
	}
	return nil
}

// LoadSound decodes key and uploads it to the driver. A key that is
// already loaded is left alone. On failure nothing is cached.
func (l *Library) LoadSound(key string) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if err := l.load(key); err != nil {
		return l.fail("load", err)
	}
	return nil
}

// load is LoadSound without the diagnostics; failures only count in the
// load failure metric.
func (l *Library) load(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty asset key", ErrValidation)
	}
	if l.Loaded(key) {
		return nil
	}

	ctx := context.Background()

	buf, err := l.decode(key)
	if err != nil {
		l.metrics.RecordLoadFailure(ctx, l.drv.Name(), "decode")
		return err
	}

	tag, err := backend.TagFor(buf.Format)
	if err != nil {
		l.metrics.RecordLoadFailure(ctx, l.drv.Name(), "format")
		return fmt.Errorf("%w: %s: %w", ErrValidation, key, err)
	}

	id, err := l.drv.GenBuffer(tag, buf.Data, buf.Format.SampleRate)
	if err != nil {
		l.metrics.RecordLoadFailure(ctx, l.drv.Name(), "upload")
		return fmt.Errorf("%w: uploading %s: %w (%v)", ErrBackendAllocation, key, err, l.drv.LastError())
	}

	l.buffers[key] = buf
	l.ids[key] = id
	l.metrics.RecordSoundLoaded(ctx, l.drv.Name())
	l.log.Debug("sound loaded", "key", key, "format", buf.Format.String(), "duration", buf.Duration())
	return nil
}

func (l *Library) decode(key string) (*audio.SoundBuffer, error) {
	sess, err := l.openSession(key)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	buf, err := sess.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, key, err)
	}
	return buf, nil
}

func (l *Library) openSession(key string) (codec.Session, error) {
	sess, err := l.codec.Initialize(codec.Locator{Key: key, FS: l.opts.assets})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return sess, nil
}

// Loaded reports whether key has both a decoded and a driver buffer.
func (l *Library) Loaded(key string) bool {
	_, decoded := l.buffers[key]
	_, resident := l.ids[key]
	return decoded && resident
}

// UnloadSound drops both cache entries for key. Channels playing it keep
// their lines.
func (l *Library) UnloadSound(key string) {
	if id, ok := l.ids[key]; ok {
		l.drv.DeleteBuffer(id)
	}
	delete(l.ids, key)
	delete(l.buffers, key)
}

// NewSource registers a source for an asset, loading it if needed, and
// binds it to a channel. A source with the same name is replaced.
func (l *Library) NewSource(name, key string, spec SourceSpec) (*Source, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if spec.Streaming {
		return l.NewStreamingSource(name, key, spec)
	}
	if name == "" {
		return nil, l.fail("new source", fmt.Errorf("%w: empty source name", ErrValidation))
	}
	if err := l.LoadSound(key); err != nil {
		return nil, err
	}

	l.replaceExisting(name)

	s := newSource(name, AssetSource, key, spec)
	s.buffer = l.buffers[key]
	if err := l.bind(s); err != nil {
		return nil, l.fail("new source", err)
	}
	l.sources[name] = s
	return s, nil
}

// NewStreamingSource registers a source that decodes key chunk by chunk.
// Playback starts with Play; Tick keeps the stream fed.
func (l *Library) NewStreamingSource(name, key string, spec SourceSpec) (*Source, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, l.fail("new stream", fmt.Errorf("%w: empty source name", ErrValidation))
	}

	sess, err := l.openSession(key)
	if err != nil {
		return nil, l.fail("new stream", err)
	}
	if f := sess.Format(); !l.drv.IsSupported(backend.Stream, f) {
		sess.Close()
		return nil, l.fail("new stream", fmt.Errorf("%w: %s does not stream %v", ErrValidation, l.drv.Name(), f))
	}

	l.replaceExisting(name)

	spec.Streaming = true
	s := newSource(name, AssetSource, key, spec)
	s.session = sess
	s.format = sess.Format()
	if err := l.bind(s); err != nil {
		sess.Close()
		return nil, l.fail("new stream", err)
	}
	l.sources[name] = s
	return s, nil
}

// QuickPlay creates and starts a source. An empty name is generated.
// Temporary sources are removed by Tick once they finish.
func (l *Library) QuickPlay(name, key string, spec SourceSpec, temporary bool) (*Source, error) {
	if name == "" {
		l.seq++
		name = fmt.Sprintf("quick%d", l.seq)
	}

	s, err := l.NewSource(name, key, spec)
	if err != nil {
		return nil, err
	}
	s.temporary = temporary

	if err := l.play(s); err != nil {
		l.removeSource(s)
		return nil, l.fail("quick play", err)
	}
	return s, nil
}

// RawDataStream registers a source fed by FeedRawAudioData with PCM in
// format.
func (l *Library) RawDataStream(name string, format audio.Format, spec SourceSpec) (*Source, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, l.fail("raw stream", fmt.Errorf("%w: empty source name", ErrValidation))
	}
	if err := format.Validate(); err != nil {
		return nil, l.fail("raw stream", fmt.Errorf("%w: %w", ErrValidation, err))
	}
	if !l.drv.IsSupported(backend.Stream, format) {
		return nil, l.fail("raw stream", fmt.Errorf("%w: %s does not stream %v", ErrValidation, l.drv.Name(), format))
	}

	l.replaceExisting(name)

	s := newSource(name, RawStreamSource, "", spec)
	s.format = format
	if err := l.bind(s); err != nil {
		return nil, l.fail("raw stream", err)
	}
	l.sources[name] = s
	return s, nil
}

// FeedRawAudioData queues pcm on a raw stream, starting it if needed, and
// returns 1 while the line can take more.
func (l *Library) FeedRawAudioData(name string, pcm []byte) (int, error) {
	s, err := l.lookup(name)
	if err != nil {
		return 0, err
	}
	if s.kind != RawStreamSource {
		return 0, l.fail("feed", fmt.Errorf("%w: %q is not a raw stream", ErrValidation, name))
	}
	if len(pcm)%s.format.FrameSize() != 0 {
		return 0, l.fail("feed", fmt.Errorf("%w: %d bytes is not whole %v frames", ErrValidation, len(pcm), s.format))
	}
	if s.channel == nil {
		if err := l.bind(s); err != nil {
			return 0, l.fail("feed", err)
		}
	}

	ch := s.channel.(*StreamingChannel)
	if _, err := ch.FeedRawAudioData(bytes.Clone(pcm)); err != nil {
		return 0, l.fail("feed", err)
	}
	if !s.playing {
		ch.Play()
		s.playing = true
	}
	l.drainQueue(ch)
	return ch.BuffersProcessed(), nil
}

// CopySources replaces the registry with unbound copies of src, resolving
// each non-streaming source's buffer on this library's driver. Copies bind
// to channels when played. It returns the number of sources kept.
func (l *Library) CopySources(src map[string]*Source) (int, error) {
	if err := l.checkOpen(); err != nil {
		return 0, err
	}

	copies := make(map[string]*Source, len(src))
	dropped := 0
	for _, name := range slices.Sorted(maps.Keys(src)) {
		s := src[name]
		if s == nil {
			continue
		}
		c := s.clone()
		c.name = name

		if c.kind == AssetSource && !c.streaming {
			if err := l.load(c.assetKey); err != nil {
				if l.opts.copyPolicy == CopyStrict {
					return 0, l.fail("copy sources", fmt.Errorf("copying source %q: %w", name, err))
				}
				dropped++
				l.log.Info("source dropped", "source", name, "key", c.assetKey, "err", err)
				continue
			}
			c.buffer = l.buffers[c.assetKey]
		}
		copies[name] = c
	}

	for _, s := range l.sources {
		l.removeSource(s)
	}
	l.sources = copies
	l.metrics.RecordSourcesDropped(context.Background(), dropped)
	return len(copies), nil
}

// Play starts a source, binding it to a channel first if it lost its own.
func (l *Library) Play(name string) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	if err := l.play(s); err != nil {
		return l.fail("play", err)
	}
	return nil
}

func (l *Library) play(s *Source) error {
	if s.channel == nil {
		if err := l.bind(s); err != nil {
			return err
		}
	}

	if s.kind == AssetSource && s.streaming && finished(s) {
		s.channel.(*StreamingChannel).Flush()
		if err := l.restartSession(s); err != nil {
			s.playing = false
			return err
		}
	}

	if s.kind == AssetSource && s.streaming && !s.preloaded {
		if err := l.preload(s); err != nil {
			return err
		}
	} else {
		s.channel.Play()
	}
	s.playing = true
	return nil
}

// preload submits the first chunks of a streaming asset and starts it.
func (l *Library) preload(s *Source) error {
	ch := s.channel.(*StreamingChannel)

	var chunks [][]byte
	for range l.opts.preload {
		chunk, err := s.session.Read(l.opts.chunk)
		if len(chunk) > 0 {
			chunks = append(chunks, chunk)
		}
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDecode, s.assetKey, err)
		}
	}

	s.preloaded = true
	return ch.PreLoadBuffers(chunks)
}

func (l *Library) Pause(name string) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	if s.channel != nil {
		s.channel.Pause()
	}
	s.playing = false
	return nil
}

// Stop halts a source. Buffered sources rewind; streaming assets restart
// from the beginning on the next Play. Raw streams keep their queue.
func (l *Library) Stop(name string) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	s.playing = false
	if s.channel == nil {
		return nil
	}

	if s.kind == AssetSource && s.streaming {
		s.channel.(*StreamingChannel).Flush()
		if err := l.restartSession(s); err != nil {
			return l.fail("stop", err)
		}
		return nil
	}
	s.channel.Stop()
	return nil
}

// Rewind returns a source to its start, resuming playback if it was
// playing.
func (l *Library) Rewind(name string) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	if s.channel == nil {
		return nil
	}

	switch {
	case s.kind == RawStreamSource:
	case s.streaming:
		playing := s.playing
		s.channel.(*StreamingChannel).Flush()
		if err := l.restartSession(s); err != nil {
			s.playing = false
			return l.fail("rewind", err)
		}
		if playing {
			if err := l.play(s); err != nil {
				return l.fail("rewind", err)
			}
		}
	default:
		s.channel.Rewind()
	}
	return nil
}

// restartSession reopens a streaming asset from its first frame.
func (l *Library) restartSession(s *Source) error {
	closeSession(s)
	sess, err := l.openSession(s.assetKey)
	if err != nil {
		return err
	}
	s.session = sess
	return nil
}

func closeSession(s *Source) {
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	s.preloaded = false
	s.eof = false
}

// RemoveSource releases a source's channel and forgets it.
func (l *Library) RemoveSource(name string) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	l.removeSource(s)
	return nil
}

func (l *Library) removeSource(s *Source) {
	if s.channel != nil {
		s.channel.Close()
		l.unbind(s)
	}
	closeSession(s)
	if l.sources[s.name] == s {
		delete(l.sources, s.name)
	}
}

func (l *Library) replaceExisting(name string) {
	if old, ok := l.sources[name]; ok {
		l.removeSource(old)
	}
}

func (l *Library) lookup(name string) (*Source, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	s, ok := l.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSource, name)
	}
	return s, nil
}

// Source returns the named source.
func (l *Library) Source(name string) (*Source, bool) {
	s, ok := l.sources[name]
	return s, ok
}

// Sources returns a snapshot of the registry, suitable for CopySources on
// another library.
func (l *Library) Sources() map[string]*Source {
	return maps.Clone(l.sources)
}

// BoundSources is the number of sources holding a channel.
func (l *Library) BoundSources() int {
	return l.buffered.bound() + l.streaming.bound()
}

func (l *Library) SetPosition(name string, pos Vector3) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	s.position = pos
	s.spatialize(&l.listener)
	return nil
}

// SetVolume sets a source's volume in [0,1] before distance attenuation.
func (l *Library) SetVolume(name string, v float32) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	s.volume = utils.Clamp(v, 0, 1)
	s.spatialize(&l.listener)
	return nil
}

func (l *Library) SetLooping(name string, loop bool) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	s.loop = loop
	if ch, ok := s.channel.(*BufferedChannel); ok {
		ch.SetLooping(loop)
	}
	return nil
}

func (l *Library) SetAttenuation(name string, model Attenuation, distOrRolloff float32) error {
	s, err := l.lookup(name)
	if err != nil {
		return err
	}
	s.atten = model
	s.distOrRo = distOrRolloff
	s.spatialize(&l.listener)
	return nil
}

// bind gives s a channel of its kind, displacing another source if the
// pool is full.
func (l *Library) bind(s *Source) error {
	if s.streaming {
		return l.bindStream(s)
	}

	if !l.Loaded(s.assetKey) {
		if err := l.LoadSound(s.assetKey); err != nil {
			return err
		}
	}
	s.buffer = l.buffers[s.assetKey]

	i, prev, err := l.buffered.pick()
	if err != nil {
		return err
	}
	ch := l.buffered.channels[i]

	if err := ch.AttachBuffer(s.buffer); err != nil {
		if prev != nil && !ch.Attached() {
			l.displace(prev)
		}
		return err
	}
	ch.SetLooping(s.loop)

	if prev != nil {
		l.displace(prev)
	}
	l.attach(s, ch, &l.buffered.owners[i])
	return nil
}

func (l *Library) bindStream(s *Source) error {
	if s.kind == AssetSource && s.session == nil {
		sess, err := l.openSession(s.assetKey)
		if err != nil {
			return err
		}
		s.session = sess
		s.format = sess.Format()
	}

	i, prev, err := l.streaming.pick()
	if err != nil {
		return err
	}
	ch := l.streaming.channels[i]

	if err := ch.ResetStream(s.format); err != nil {
		if prev != nil && !ch.Attached() {
			l.displace(prev)
		}
		return err
	}

	if prev != nil {
		l.displace(prev)
	}
	l.attach(s, ch, &l.streaming.owners[i])
	return nil
}

func (l *Library) attach(s *Source, ch Channel, slot **Source) {
	*slot = s
	s.channel = ch
	s.spatialize(&l.listener)
	l.metrics.AddBoundSources(context.Background(), 1)
}

// displace unbinds a source whose channel was handed to another.
func (l *Library) displace(s *Source) {
	l.log.Debug("source displaced", "source", s.name)
	l.unbind(s)
	s.playing = false
	if s.kind == AssetSource && s.streaming {
		closeSession(s)
	}
}

func (l *Library) unbind(s *Source) {
	if s.channel == nil {
		return
	}
	l.buffered.release(s)
	l.streaming.release(s)
	s.channel = nil
	l.metrics.AddBoundSources(context.Background(), -1)
}

// SetListenerPosition moves the listener.
func (l *Library) SetListenerPosition(x, y, z float32) {
	l.listener.Position = Vector3{x, y, z}
	l.native.Position[0] = x
	l.native.Position[1] = y
	l.native.Position[2] = z
	l.commitListener()
}

// SetListenerAngle turns the listener around the vertical axis, leaving
// the Y components of its orientation alone.
func (l *Library) SetListenerAngle(angle float32) {
	l.listener.SetAngle(angle)
	l.native.Orientation[0] = l.listener.LookAt.X
	l.native.Orientation[2] = l.listener.LookAt.Z
	l.commitListener()
}

func (l *Library) SetListenerOrientation(lookX, lookY, lookZ, upX, upY, upZ float32) {
	l.listener.LookAt = Vector3{lookX, lookY, lookZ}
	l.listener.Up = Vector3{upX, upY, upZ}
	l.native.Orientation = [6]float32{lookX, lookY, lookZ, upX, upY, upZ}
	l.commitListener()
}

func (l *Library) SetListenerVelocity(x, y, z float32) {
	l.listener.Velocity = Vector3{x, y, z}
	l.native.Velocity = [3]float32{x, y, z}
	l.commitListener()
}

// SetListenerData replaces the whole listener.
func (l *Library) SetListenerData(d ListenerData) {
	l.listener = d
	l.listener.mirror(&l.native)
	l.commitListener()
}

// commitListener pushes the native listener once and re-spatializes every
// bound source.
func (l *Library) commitListener() {
	l.drv.SetListener(&l.native)
	for _, s := range l.sources {
		s.spatialize(&l.listener)
	}
}

func (l *Library) pushListener() {
	l.listener.mirror(&l.native)
	l.drv.SetListener(&l.native)
}

// SetMasterVolume sets the driver's global gain, clamped to [0,1].
func (l *Library) SetMasterVolume(v float32) {
	l.master = utils.Clamp(v, 0, 1)
	l.drv.SetMasterVolume(l.master)
}

// Tick feeds streaming sources, drains raw stream queues and removes
// temporary sources that finished playing.
func (l *Library) Tick() {
	if l.closed {
		return
	}

	var done []*Source
	for _, name := range slices.Sorted(maps.Keys(l.sources)) {
		s := l.sources[name]
		if s.channel == nil {
			continue
		}
		switch {
		case s.kind == RawStreamSource:
			if s.playing {
				l.drainQueue(s.channel.(*StreamingChannel))
			}
		case s.streaming:
			l.feed(s)
		}
		if s.temporary && finished(s) {
			done = append(done, s)
		}
	}

	for _, s := range done {
		l.log.Debug("temporary source reclaimed", "source", s.name)
		l.removeSource(s)
	}
}

func (l *Library) drainQueue(ch *StreamingChannel) {
	for range tickSteps {
		if ch.BuffersProcessed() == 0 || !ch.ProcessBuffer() {
			return
		}
	}
}

// feed tops up a playing streaming asset from its session.
func (l *Library) feed(s *Source) {
	if !s.playing || !s.preloaded {
		return
	}
	ch := s.channel.(*StreamingChannel)

	for range tickSteps {
		if ch.BuffersProcessed() == 0 {
			return
		}
		if ch.ProcessBuffer() {
			continue
		}
		if s.eof {
			if !s.loop {
				return
			}
			if err := l.restartSession(s); err != nil {
				s.playing = false
				l.fail("stream", err)
				return
			}
			s.preloaded = true
		}

		chunk, err := s.session.Read(l.opts.chunk)
		if len(chunk) > 0 {
			ch.QueueBuffer(chunk)
		}
		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			s.eof = true
			l.fail("stream", fmt.Errorf("%w: %s: %w", ErrDecode, s.assetKey, err))
			return
		}
	}
}

func finished(s *Source) bool {
	if !s.playing || s.channel.Playing() {
		return false
	}
	if ch, ok := s.channel.(*StreamingChannel); ok {
		return s.eof && ch.QueueLen() == 0
	}
	return !s.loop
}

// SwapDriver moves the library to d. Every cached sound is uploaded to d
// first; if any upload fails d is cleaned up and the library stays on the
// old driver. Channels then reopen on d, the listener and master volume
// are pushed again and sources that were playing restart. The old driver
// is not closed.
func (l *Library) SwapDriver(d backend.Driver) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if d == nil {
		return l.fail("swap driver", fmt.Errorf("%w: nil driver", ErrValidation))
	}
	if d == l.drv {
		return nil
	}

	ids := make(map[string]backend.BufferID, len(l.buffers))
	for _, key := range slices.Sorted(maps.Keys(l.buffers)) {
		buf := l.buffers[key]
		tag, err := backend.TagFor(buf.Format)
		if err == nil {
			var id backend.BufferID
			if id, err = d.GenBuffer(tag, buf.Data, buf.Format.SampleRate); err == nil {
				ids[key] = id
				continue
			}
		}
		for _, id := range ids {
			d.DeleteBuffer(id)
		}
		return l.fail("swap driver", fmt.Errorf("%w: uploading %s to %s: %w (%v)", ErrBackendAllocation, key, d.Name(), err, d.LastError()))
	}

	old, oldIDs := l.drv, l.ids
	l.drv, l.ids = d, ids
	for _, id := range oldIDs {
		old.DeleteBuffer(id)
	}

	for i, ch := range l.buffered.channels {
		l.moveChannel(ch, l.buffered.owners[i])
	}
	for i, ch := range l.streaming.channels {
		l.moveChannel(ch, l.streaming.owners[i])
	}

	l.pushListener()
	d.SetMasterVolume(l.master)

	l.log.Info("driver swapped", "from", old.Name(), "to", d.Name(), "sounds", len(ids))
	return nil
}

func (l *Library) moveChannel(ch Channel, owner *Source) {
	if err := ch.SetDriver(l.drv); err != nil {
		l.fail("swap driver", err)
		if owner != nil {
			l.displace(owner)
		}
		return
	}
	if owner == nil {
		return
	}

	owner.spatialize(&l.listener)
	if !owner.playing {
		return
	}
	if owner.kind == AssetSource && owner.streaming {
		owner.preloaded = false
	}
	if err := l.play(owner); err != nil {
		l.fail("swap driver", err)
	}
}

// Close releases every channel and driver buffer. The driver itself stays
// open.
func (l *Library) Close() error {
	if l.closed {
		return nil
	}

	for _, s := range l.sources {
		l.removeSource(s)
	}
	for _, ch := range l.buffered.channels {
		ch.Close()
	}
	for _, ch := range l.streaming.channels {
		ch.Close()
	}
	for key, id := range l.ids {
		l.drv.DeleteBuffer(id)
		delete(l.ids, key)
	}
	clear(l.buffers)

	l.closed = true
	l.log.Debug("library closed", "driver", l.drv.Name())
	return nil
}
