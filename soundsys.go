// SPDX-License-Identifier: EPL-2.0

package soundsys

import (
	"errors"
	"fmt"

	"github.com/ik5/soundsys/backend"
	"github.com/ik5/soundsys/backend/beepdrv"
	"github.com/ik5/soundsys/codec"
	"github.com/ik5/soundsys/config"
	"github.com/ik5/soundsys/logger"
	"github.com/ik5/soundsys/sound"
)

// NewLibrary builds a library on drv. opts are applied after the ones
// derived from cfg.
func NewLibrary(cfg *config.Config, drv backend.Driver, opts ...sound.Option) (*sound.Library, error) {
	all := append(cfg.Library.Options(), sound.WithLogger(logger.WithComponent("sound")))
	all = append(all, opts...)

	lib, err := sound.New(drv, codec.New(nil, cfg.Codec.Target), all...)
	if err != nil {
		return nil, fmt.Errorf("creating library: %w", err)
	}
	lib.SetMasterVolume(float32(cfg.Backend.MasterVolume))
	return lib, nil
}

// Player is a library together with the beep driver it plays on.
type Player struct {
	*sound.Library
	Mixer *beepdrv.Driver
}

// Open creates a beep driver and a library on it. The speaker is opened
// when speaker is set and the configuration allows it; otherwise the mix
// is pulled with Mixer.Render.
func Open(cfg *config.Config, speaker bool, opts ...sound.Option) (*Player, error) {
	drv, err := beepdrv.New(cfg.Backend.Options(speaker)...)
	if err != nil {
		return nil, fmt.Errorf("creating mixer: %w", err)
	}

	lib, err := NewLibrary(cfg, drv, opts...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return &Player{Library: lib, Mixer: drv}, nil
}

// Close releases the library, then the driver.
func (p *Player) Close() error {
	return errors.Join(p.Library.Close(), p.Mixer.Close())
}
