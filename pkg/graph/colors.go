package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Colors holds the rendering colors assigned to a play. Every node under
// the play inherits them for its edges and fills.
type Colors struct {
	Main string
	Font string
}

// Colors derives the play's colors from its id: the hue and saturation
// come from a hash of the id, the luminance is fixed at 0.4 so the white
// font stays readable. Same id, same colors, across runs and formats.
func (p *PlayNode) Colors() Colors {
	sum := sha256.Sum256([]byte(p.id))
	hue := float64(binary.BigEndian.Uint32(sum[:4])) / float64(math.MaxUint32) * 360
	sat := 0.35 + 0.4*float64(sum[4])/255
	return Colors{
		Main: colorful.Hsl(hue, sat, 0.4).Hex(),
		Font: "#ffffff",
	}
}
