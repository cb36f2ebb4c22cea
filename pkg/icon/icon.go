// Package icon generates deterministic grayscale identicons.
//
// An [Icon] is a square grid of byte intensities with a configured border
// thickness and border color. Icons are derived from a string via an MD5
// digest reshuffle ([FromString]), from raw cells ([FromCells]), or from
// randomness ([Random]). Every transform (border, invert, scale, unfold)
// returns a new independent icon; the receiver is never mutated.
//
// The final image is produced by mirroring a single generated quadrant into
// 4-fold symmetry, so an icon of radius r renders as a 2r×2r pixel image
// before scaling.
package icon

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/observability"
)

// Generation defaults, matching the reference parameters.
const (
	// DefaultRadius is the default tile radius, border included.
	DefaultRadius = 4

	// DefaultBorder is the default border thickness.
	DefaultBorder = 1

	// maxReduced is the largest reduced radius the digest can fill:
	// an MD5-derived cell sequence yields 64 byte pairs, so 8×8 cells.
	maxReduced = 8
)

// Border colors. The palette maximum doubles as "white".
const (
	White byte = 0xff
	Black byte = 0x00
)

// glyphs is the 5-level intensity ramp used for terminal rendering.
// Each glyph is two characters wide so cells render roughly square.
var glyphs = [5]string{"  ", "░░", "▒▒", "▓▓", "██"}

// Icon is a square matrix of intensities in [0,255].
type Icon struct {
	grid   [][]byte
	border int
	color  byte
}

// New creates an icon from a grid of intensity rows. The grid is deep
// copied, so the caller may reuse its slices.
func New(grid [][]byte, border int, color byte) *Icon {
	return &Icon{grid: copyGrid(grid), border: border, color: color}
}

// copyGrid deep copies a matrix of rows.
func copyGrid(grid [][]byte) [][]byte {
	out := make([][]byte, len(grid))
	for i, row := range grid {
		out[i] = make([]byte, len(row))
		copy(out[i], row)
	}
	return out
}

// Rows returns the number of rows in the underlying grid (before
// bordering and unfolding).
func (ic *Icon) Rows() int {
	return len(ic.grid)
}

// At returns the intensity at the given row and column.
func (ic *Icon) At(row, col int) byte {
	return ic.grid[row][col]
}

// Grid returns a deep copy of the underlying matrix.
func (ic *Icon) Grid() [][]byte {
	return copyGrid(ic.grid)
}

// BorderSize returns the configured border thickness.
func (ic *Icon) BorderSize() int {
	return ic.border
}

// BorderColor returns the configured border color.
func (ic *Icon) BorderColor() byte {
	return ic.color
}

// Side returns the side length of the finalized icon: twice the grid
// side plus border, accounting for the mirrored unfold applied during
// rendering.
func (ic *Icon) Side() int {
	return (len(ic.grid) + ic.border) * 2
}

// Copy returns an independent copy of the icon.
func (ic *Icon) Copy() *Icon {
	return New(ic.grid, ic.border, ic.color)
}

// Border returns a new icon padded on the top and left edges by size
// cells of color. Only two edges are padded: the bottom and right
// borders emerge later from the mirrored unfold. A size of 0 returns a
// plain copy.
func (ic *Icon) Border(size int, color byte) *Icon {
	if size <= 0 {
		return ic.Copy()
	}

	width := len(ic.grid) + size
	grid := make([][]byte, 0, width)
	for i := 0; i < size; i++ {
		row := make([]byte, width)
		for j := range row {
			row[j] = color
		}
		grid = append(grid, row)
	}
	for _, src := range ic.grid {
		row := make([]byte, 0, width)
		for i := 0; i < size; i++ {
			row = append(row, color)
		}
		row = append(row, src...)
		grid = append(grid, row)
	}

	return &Icon{grid: grid, border: ic.border, color: ic.color}
}

// Invert returns a new icon with every intensity reflected around the
// palette midpoint: x becomes x + (127.5-x)*2, truncated. The
// reflection is exact (0 and 255 swap, 127 maps to 128).
func (ic *Icon) Invert() *Icon {
	grid := make([][]byte, len(ic.grid))
	for i, row := range ic.grid {
		grid[i] = make([]byte, len(row))
		for j, item := range row {
			grid[i][j] = byte(int(float64(item) + (127.5-float64(item))*2))
		}
	}
	return &Icon{grid: grid, border: ic.border, color: ic.color}
}

// Scale returns a new icon with every cell replicated factor times
// horizontally and every row factor times vertically (nearest-neighbor
// upscale). The factor must be a positive integer.
func (ic *Icon) Scale(factor int) (*Icon, error) {
	if factor <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidScale,
			"the factor (%d) must be a positive integer", factor)
	}
	if factor == 1 {
		return ic.Copy(), nil
	}

	grid := make([][]byte, 0, len(ic.grid)*factor)
	for _, src := range ic.grid {
		row := make([]byte, 0, len(src)*factor)
		for _, item := range src {
			for i := 0; i < factor; i++ {
				row = append(row, item)
			}
		}
		for i := 0; i < factor; i++ {
			grid = append(grid, row)
		}
	}

	return &Icon{grid: grid, border: ic.border, color: ic.color}, nil
}

// Unfold mirrors every row horizontally (row + reversed row) and then
// mirrors the resulting rows vertically, producing a 4-fold symmetric
// icon with doubled width and height.
func (ic *Icon) Unfold() *Icon {
	grid := make([][]byte, 0, len(ic.grid)*2)
	for _, src := range ic.grid {
		row := make([]byte, 0, len(src)*2)
		row = append(row, src...)
		for i := len(src) - 1; i >= 0; i-- {
			row = append(row, src[i])
		}
		grid = append(grid, row)
	}
	for i := len(ic.grid) - 1; i >= 0; i-- {
		row := make([]byte, len(grid[i]))
		copy(row, grid[i])
		grid = append(grid, row)
	}

	return &Icon{grid: grid, border: ic.border, color: ic.color}
}

// String renders the bordered, unfolded icon as text using a 5-glyph
// intensity ramp.
func (ic *Icon) String() string {
	full := ic.Border(ic.border, ic.color).Unfold()

	var b strings.Builder
	for i, row := range full.grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, item := range row {
			b.WriteString(glyphs[item/0x3f])
		}
	}
	return b.String()
}

// warnf emits a degraded-input warning through the default logger and
// the generator fallback hook.
func warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	observability.Generator().OnFallback(msg)
}
