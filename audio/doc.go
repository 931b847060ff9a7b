// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decoding-side primitives the sound system is
// built on.
//
// # Sources
//
// Every decoder and processor implements Source, a pull-based stream of
// interleaved float32 samples in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Sources chain. Convert builds the chain needed to reach a target Format:
//
//	src = audio.Convert(src, audio.Format{SampleRate: 44100, Channels: 2})
//
// # PCM
//
// Playback backends consume little-endian integer PCM rather than floats.
// PCMReader encodes a Source as 8-bit unsigned or 16-bit signed bytes and
// ReadAll drains a whole Source into a SoundBuffer, the unit the buffer
// cache and clip channels share.
//
// # Format Registry
//
// Registry maps format keys to decoders. Keys are case-insensitive, so a
// file extension works as a key:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, format, ok := registry.ForName("sfx/Bell.WAV")
//
// # Errors
//
// Sources return io.EOF once drained. It may arrive together with the final
// samples, so always consume n before checking err:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    process(buf[:n])
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
