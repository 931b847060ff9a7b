// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files.
//
// Decoding uses github.com/go-audio/wav and accepts integer PCM at 8, 16, 24
// or 32 bits with any channel count. 8-bit data is unsigned on disk and is
// re-centred to [-1, 1] like every other depth. The decoded source reports
// its depth through BitDepth, so audio.ReadAll keeps 8-bit sounds 8-bit.
//
//	f, _ := os.Open("bell.wav")
//	src, err := wav.Decoder{}.Decode(f) // src.Close closes f
//
// WritePCM and WriteBuffer emit a canonical 44-byte header in front of PCM
// bytes and work with any io.Writer. Encode streams a Source into a 16-bit
// file through the go-audio encoder and needs an io.WriteSeeker.
//
// # Errors
//
//   - ErrNotWavFile: the RIFF/WAVE header is missing or truncated
//   - ErrOnlyPCMSupported: the format tag is not integer PCM
//   - ErrUnsupportedBitDepth: depth other than 8, 16, 24 or 32
//   - ErrUnsupportedWavChunks: no data chunk follows the header
package wav
