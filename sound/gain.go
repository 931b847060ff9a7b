// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"math"

	"github.com/ik5/soundsys/utils"
)

// GainToDB maps a perceptual gain in [0,1] onto a control's decibel range.
// GainToDB(0) is minDB and GainToDB(1) is half of maxDB; the curve between
// is logarithmic so equal steps in g sound like equal steps in loudness.
func GainToDB(g, minDB, maxDB float32) float32 {
	g = utils.Clamp(g, 0, 1)

	k := math.Ln10 / 20
	amp := 0.5*float64(maxDB) - float64(minDB)
	db := float64(minDB) + (1/k)*math.Log(1+(math.Exp(k*amp)-1)*float64(g))

	return float32(db)
}
