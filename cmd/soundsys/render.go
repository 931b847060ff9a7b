// SPDX-License-Identifier: EPL-2.0

package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/soundsys"
	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/config"
	"github.com/ik5/soundsys/formats/wav"
	"github.com/ik5/soundsys/sound"
	"github.com/ik5/soundsys/utils"
)

// maxRender bounds a render without --duration.
const maxRender = 10 * time.Minute

var renderFlags struct {
	output   string
	duration time.Duration
	stream   bool
}

var renderCmd = &cobra.Command{
	Use:   "render asset...",
	Short: "Mix assets into a stereo WAV file",
	Long: `Render plays the assets through the mixer without a speaker and writes
the result as 16-bit stereo WAV at backend.sample_rate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		buf, err := renderAssets(cfg, args, renderFlags.stream, renderFlags.duration)
		if err != nil {
			return err
		}
		if err := writeWAV(renderFlags.output, buf); err != nil {
			return err
		}

		slog.Info("rendered",
			slog.String("file", renderFlags.output),
			slog.Duration("length", buf.Duration()))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderFlags.output, "output", "o", "mix.wav", "output WAV file")
	renderCmd.Flags().DurationVarP(&renderFlags.duration, "duration", "d", 0, "stop after this long (default until every asset ends)")
	renderCmd.Flags().BoolVarP(&renderFlags.stream, "stream", "s", false, "decode while rendering instead of loading up front")

	rootCmd.AddCommand(renderCmd)
}

// renderAssets mixes keys from the start until they end or limit passes.
func renderAssets(cfg *config.Config, keys []string, stream bool, limit time.Duration) (*audio.SoundBuffer, error) {
	p, err := soundsys.Open(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open mixer: %w", err)
	}
	defer p.Close()

	if err := queue(p.Library, keys, sound.SourceSpec{Streaming: stream}); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = maxRender
	}
	format := audio.Format{SampleRate: p.Mixer.SampleRate(), Channels: 2, BitDepth: 16}
	total := int(limit.Seconds() * float64(format.SampleRate))
	step := format.SampleRate / int(time.Second/tickInterval)

	var pcm []byte
	for frames := 0; frames < total; {
		p.Tick()
		if len(p.Sources()) == 0 {
			break
		}

		n := min(step, total-frames)
		pcm = appendFrames(pcm, p.Mixer.Render(n))
		frames += n
	}

	return audio.NewSoundBuffer(pcm, format), nil
}

// appendFrames encodes mixer output as 16-bit little-endian stereo.
func appendFrames(pcm []byte, frames [][2]float64) []byte {
	for _, f := range frames {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(utils.Float32ToInt16(float32(f[0]))))
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(utils.Float32ToInt16(float32(f[1]))))
	}
	return pcm
}

func writeWAV(path string, buf *audio.SoundBuffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := wav.WriteBuffer(f, buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
