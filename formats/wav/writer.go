// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/utils"
)

const headerSize = 44

// WritePCM writes a canonical 44-byte header followed by data, which must
// already be little-endian PCM in format f.
func WritePCM(w io.Writer, f audio.Format, data []byte) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w", err)
	}

	blockAlign := f.FrameSize()
	dataSize := uint32(len(data))

	header := make([]byte, headerSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(f.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitDepth))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// WriteBuffer stores a decoded sound buffer as a WAV file.
func WriteBuffer(w io.Writer, buf *audio.SoundBuffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return WritePCM(w, buf.Format, buf.Data)
}

// Encode streams src into a 16-bit WAV file. The header sizes are patched
// on completion, so ws must be seekable.
func Encode(ws io.WriteSeeker, src audio.Source) (err error) {
	enc := gowav.NewEncoder(ws, src.SampleRate(), 16, src.Channels(), formatPCM)
	defer func() {
		if cerr := enc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w", cerr)
		}
	}()

	format := &goaudio.Format{NumChannels: src.Channels(), SampleRate: src.SampleRate()}
	samples := make([]float32, 4096*src.Channels())
	ints := &goaudio.IntBuffer{Format: format, SourceBitDepth: 16, Data: make([]int, len(samples))}

	for {
		n, rerr := src.ReadSamples(samples)
		if n > 0 {
			ints.Data = ints.Data[:n]
			for i, v := range samples[:n] {
				ints.Data[i] = int(utils.Float32ToInt16(v))
			}
			if werr := enc.Write(ints); werr != nil {
				return fmt.Errorf("%w", werr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w", rerr)
		}
	}
}
