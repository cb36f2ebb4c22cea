package icon

import (
	"crypto/md5"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/observability"
)

// Source supplies randomness for variant selection and random icons.
// Implementations return a uniform integer in [0,n). Tests substitute a
// deterministic source.
type Source interface {
	Intn(n int) int
}

// systemSource draws from the process-local random generator.
type systemSource struct{}

func (systemSource) Intn(n int) int { return rand.IntN(n) }

// DefaultSource returns the process-local randomness source.
func DefaultSource() Source { return systemSource{} }

// Options control icon generation.
//
// A zero Radius means [DefaultRadius]. A Variant outside [1,63]
// (including the 0 sentinel) is resolved by drawing one uniformly from
// [1,63] via Rand.
type Options struct {
	Radius  int    // half the icon side, border included
	Border  int    // border thickness, must be < Radius
	Black   bool   // black border instead of the default white
	Variant int    // digest shuffle stride in [1,63]; 0 picks at random
	Rand    Source // randomness source; nil uses the process-local generator
}

// DefaultOptions returns the reference defaults: radius 4, border 1,
// white border, random variant.
func DefaultOptions() Options {
	return Options{Radius: DefaultRadius, Border: DefaultBorder}
}

// color resolves the border color flag to an intensity.
func (o Options) color() byte {
	if o.Black {
		return Black
	}
	return White
}

// source resolves the randomness source.
func (o Options) source() Source {
	if o.Rand != nil {
		return o.Rand
	}
	return systemSource{}
}

// FromString generates a deterministic icon from a string.
//
// The string is hashed with MD5 and the 32-character hex digest is
// expanded and reshuffled with the variant stride, yielding one byte
// cell per pair of hex characters. The same string and variant always
// produce the same icon.
func FromString(s string, opts Options) (*Icon, error) {
	start := time.Now()

	radius := opts.Radius
	if radius == 0 {
		radius = DefaultRadius
	}
	if opts.Border >= radius {
		return nil, errors.New(errors.ErrCodeInvalidBorder,
			"too much border (%d), max (%d)", opts.Border, radius-1)
	}

	rd := radius - opts.Border
	if rd <= 0 || rd > maxReduced {
		warnf("radius (%d) is not between interval [1-8], using default (%d)", rd, DefaultRadius)
		rd = DefaultRadius
	}

	v := opts.Variant
	if v < 1 || v > MaxVariant {
		v = opts.source().Intn(MaxVariant) + 1
	}

	cells := shuffle(digestOf(s), v, rd*rd)
	ic, err := FromCells(cells, rd, opts)
	if err != nil {
		return nil, err
	}

	observability.Generator().OnGenerate(s, v, rd, time.Since(start))
	return ic, nil
}

// MaxVariant is the largest digest shuffle stride.
const MaxVariant = 63

// digestOf returns the 32-character hex MD5 digest of the UTF-8 bytes
// of s.
func digestOf(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// shuffle expands a 32-character digest and reshuffles it with stride
// v, returning the first n byte cells.
//
// The digest is extended to 64 characters (reversed digest + digest)
// and doubled to 128. The stride pass concatenates, for each phase i in
// [0,v), every v-th character starting at offset i, producing a full
// permutation of the 128 characters. Consecutive character pairs are
// then parsed as hex bytes.
func shuffle(digest string, v, n int) []byte {
	extended := reverse(digest) + digest
	doubled := extended + extended

	var b strings.Builder
	b.Grow(len(doubled))
	for i := 0; i < v; i++ {
		for j := i; j < len(doubled); j += v {
			b.WriteByte(doubled[j])
		}
	}

	cells, _ := hex.DecodeString(b.String()[:n*2])
	return cells
}

// reverse returns s with its bytes in reverse order. The digest is
// plain ASCII hex, so byte reversal is safe.
func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// FromCells folds a flat cell sequence into a square icon with the
// given number of cells per row. The sequence length must be an exact
// multiple of rows.
func FromCells(cells []byte, rows int, opts Options) (*Icon, error) {
	if rows <= 0 || len(cells)%rows != 0 {
		return nil, errors.New(errors.ErrCodeInvalidCells,
			"%d items doesn't fit in %d rows", len(cells), rows)
	}

	grid := make([][]byte, len(cells)/rows)
	for i := range grid {
		row := make([]byte, rows)
		copy(row, cells[i*rows:(i+1)*rows])
		grid[i] = row
	}

	return &Icon{grid: grid, border: opts.Border, color: opts.color()}, nil
}

// Random generates an icon with uniformly random cell intensities. The
// border contract and radius recovery policy match [FromString].
func Random(opts Options) (*Icon, error) {
	radius := opts.Radius
	if radius == 0 {
		radius = DefaultRadius
	}
	if opts.Border >= radius {
		return nil, errors.New(errors.ErrCodeInvalidBorder,
			"too much border (%d), max (%d)", opts.Border, radius-1)
	}

	rd := radius - opts.Border
	if rd <= 0 || rd > maxReduced {
		warnf("radius (%d) is not between interval [1-8], using default (%d)", rd, DefaultRadius)
		rd = DefaultRadius
	}

	src := opts.source()
	grid := make([][]byte, rd)
	for i := range grid {
		row := make([]byte, rd)
		for j := range row {
			row[j] = byte(src.Intn(256))
		}
		grid[i] = row
	}

	return &Icon{grid: grid, border: opts.Border, color: opts.color()}, nil
}
