package icon

import (
	"github.com/onerbs/identy/pkg/png"
)

// Image encodes the icon as a grayscale PNG.
//
// If size is non-zero it determines the output dimensions and overrides
// scale: the integer scale factor is derived from the finalized side
// length. A size below the minimum achievable is clamped up with a
// warning; a non-integer ratio is rounded down and the achievable size
// recomputed with a "loose scale" warning.
//
// The border, scale and unfold transforms are always applied in that
// order before encoding.
func (ic *Icon) Image(size, scale int) (*png.Image, error) {
	if size != 0 {
		side := ic.Side()
		if size < side {
			warnf("the requested size is too small (%d), using minimum (%d)", size, side)
			size = side
		}
		ratio := float64(size) / float64(side)
		scale = int(ratio)
		if ratio != float64(scale) {
			size = side * scale
			warnf("loose scale (1:%.1f), fixed to 1:%d, output size %d*%d px", ratio, scale, size, size)
		}
	}

	scaled, err := ic.Border(ic.border, ic.color).Scale(scale)
	if err != nil {
		return nil, err
	}
	return png.Encode(scaled.Unfold().Grid())
}
