// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/codec"
)

var convertFlags struct {
	rate     int
	channels int
	bits     int
}

var convertCmd = &cobra.Command{
	Use:   "convert input output.wav",
	Short: "Decode an asset and store it as WAV",
	Long: `Convert decodes any supported asset (wav, mp3, ogg, aiff) and writes it
as PCM WAV. Flags override codec.target; zero keeps the input's value.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		target := cfg.Codec.Target
		if convertFlags.rate > 0 {
			target.SampleRate = convertFlags.rate
		}
		if convertFlags.channels > 0 {
			target.Channels = convertFlags.channels
		}
		if convertFlags.bits > 0 {
			target.BitDepth = convertFlags.bits
		}

		buf, err := convertFile(args[0], target)
		if err != nil {
			return err
		}
		if err := writeWAV(args[1], buf); err != nil {
			return err
		}

		slog.Info("converted",
			slog.String("input", args[0]),
			slog.String("output", args[1]),
			slog.String("format", buf.Format.String()),
			slog.Duration("length", buf.Duration()))
		return nil
	},
}

func init() {
	convertCmd.Flags().IntVar(&convertFlags.rate, "rate", 0, "output sample rate")
	convertCmd.Flags().IntVar(&convertFlags.channels, "channels", 0, "output channel count")
	convertCmd.Flags().IntVar(&convertFlags.bits, "bits", 0, "output bit depth (8 or 16)")

	rootCmd.AddCommand(convertCmd)
}

func convertFile(path string, target audio.Format) (*audio.SoundBuffer, error) {
	loc := codec.Locator{Key: filepath.Base(path), FS: os.DirFS(filepath.Dir(path))}

	sess, err := codec.New(nil, target).Initialize(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer sess.Close()

	buf, err := sess.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}
