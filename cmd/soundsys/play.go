// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/soundsys"
	"github.com/ik5/soundsys/sound"
)

const tickInterval = 20 * time.Millisecond

var playFlags struct {
	stream bool
	loop   bool
	volume float32
}

var playCmd = &cobra.Command{
	Use:   "play asset...",
	Short: "Play assets on the speaker",
	Long: `Play one or more assets at the same time and wait until they finish.
With --loop playback runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVarP(&playFlags.stream, "stream", "s", false, "decode while playing instead of loading up front")
	playCmd.Flags().BoolVarP(&playFlags.loop, "loop", "l", false, "loop until interrupted")
	playCmd.Flags().Float32Var(&playFlags.volume, "volume", 1, "source volume between 0 and 1")

	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	p, err := soundsys.Open(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open player: %w", err)
	}
	defer p.Close()

	spec := sound.SourceSpec{
		Streaming: playFlags.stream,
		Loop:      playFlags.loop,
		Volume:    sound.Level(playFlags.volume),
	}
	if err := queue(p.Library, args, spec); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := waitDone(ctx, p.Library, tickInterval); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("playback interrupted")
			return nil
		}
		return err
	}
	return nil
}

// queue starts every asset as a temporary source.
func queue(lib *sound.Library, keys []string, spec sound.SourceSpec) error {
	for _, key := range keys {
		s, err := lib.QuickPlay("", key, spec, true)
		if err != nil {
			return fmt.Errorf("failed to play %s: %w", key, err)
		}
		slog.Debug("playing", slog.String("source", s.Name()), slog.String("asset", key))
	}
	return nil
}

// waitDone ticks lib until every temporary source has been reclaimed.
func waitDone(ctx context.Context, lib *sound.Library, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		lib.Tick()
		if len(lib.Sources()) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
