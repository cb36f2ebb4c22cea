package icon

import (
	"bytes"
	"testing"

	"github.com/onerbs/identy/pkg/errors"
)

// fakeSource returns a fixed sequence of values, cycling when exhausted.
type fakeSource struct {
	vals []int
	i    int
}

func (s *fakeSource) Intn(n int) int {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

// flatten collects the icon's grid into a single cell sequence.
func flatten(ic *Icon) []byte {
	var out []byte
	for _, row := range ic.Grid() {
		out = append(out, row...)
	}
	return out
}

func TestFromStringGolden(t *testing.T) {
	// Golden cells computed from the reference algorithm for "hello"
	// (md5: 5d41402abc4b2a76b9719d911017c592), radius 4, border 1.
	tests := []struct {
		variant int
		want    []byte
	}{
		{1, []byte{41, 92, 113, 1, 25, 217, 23, 155, 103}},
		{2, []byte{37, 112, 29, 25, 106, 188, 160, 29, 84}},
		{7, []byte{33, 148, 17, 73, 18, 7, 180, 76, 177}},
	}

	for _, tt := range tests {
		opts := DefaultOptions()
		opts.Variant = tt.variant
		ic, err := FromString("hello", opts)
		if err != nil {
			t.Fatalf("FromString(v=%d) error: %v", tt.variant, err)
		}
		if got := flatten(ic); !bytes.Equal(got, tt.want) {
			t.Errorf("cells(v=%d) = %v, want %v", tt.variant, got, tt.want)
		}
	}
}

func TestFromStringDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Variant = 1

	a, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}
	b, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}

	if !bytes.Equal(flatten(a), flatten(b)) {
		t.Error("same string and variant must produce identical cells")
	}
}

func TestFromStringVariantsDiffer(t *testing.T) {
	a := mustFromString(t, "hello", 1)
	b := mustFromString(t, "hello", 2)

	if bytes.Equal(flatten(a), flatten(b)) {
		t.Error("variants 1 and 2 should produce different cells for \"hello\"")
	}
}

func mustFromString(t *testing.T, s string, variant int) *Icon {
	t.Helper()
	opts := DefaultOptions()
	opts.Variant = variant
	ic, err := FromString(s, opts)
	if err != nil {
		t.Fatalf("FromString(%q, v=%d) error: %v", s, variant, err)
	}
	return ic
}

func TestFromStringBorderTooLarge(t *testing.T) {
	for _, border := range []int{4, 5, 10} {
		opts := Options{Radius: 4, Border: border, Variant: 1}
		_, err := FromString("hello", opts)
		if !errors.Is(err, errors.ErrCodeInvalidBorder) {
			t.Errorf("border=%d: error = %v, want INVALID_BORDER", border, err)
		}
	}
}

func TestFromStringRadiusFallback(t *testing.T) {
	// radius 12, border 2 leaves a reduced radius of 10, outside (0,8]:
	// the default radius must be substituted and generation continue.
	opts := Options{Radius: 12, Border: 2, Variant: 1}
	ic, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}
	if ic.Rows() != DefaultRadius {
		t.Errorf("rows = %d, want fallback %d", ic.Rows(), DefaultRadius)
	}
}

func TestFromStringRandomVariant(t *testing.T) {
	// Variant 0 is the "pick at random" sentinel: exactly one draw from
	// the source, mapped into [1,63].
	src := &fakeSource{vals: []int{0}} // Intn(63) = 0 -> variant 1
	opts := Options{Radius: 4, Border: 1, Variant: 0, Rand: src}

	ic, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}
	if src.i != 1 {
		t.Errorf("source consumed %d times, want 1", src.i)
	}

	want := mustFromString(t, "hello", 1)
	if !bytes.Equal(flatten(ic), flatten(want)) {
		t.Error("variant drawn as 1 must match an explicit variant 1")
	}
}

func TestFromStringZeroRadiusDefaults(t *testing.T) {
	opts := Options{Variant: 1}
	ic, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}
	// Zero radius means the default, and the zero border leaves rows =
	// DefaultRadius.
	if ic.Rows() != DefaultRadius {
		t.Errorf("rows = %d, want %d", ic.Rows(), DefaultRadius)
	}
}

func TestShuffleCoversFullDigest(t *testing.T) {
	// The stride pass is a permutation of the doubled digest, so for a
	// reduced radius of 8 all 64 cells must be filled, and with stride 1
	// the second half repeats the first (doubling).
	opts := Options{Radius: 9, Border: 1, Variant: 1}
	full, err := FromString("hello", opts)
	if err != nil {
		t.Fatalf("FromString error: %v", err)
	}
	cells := flatten(full)
	if len(cells) != 64 {
		t.Fatalf("cell count = %d, want 64", len(cells))
	}
	if !bytes.Equal(cells[:32], cells[32:]) {
		t.Error("with stride 1 the doubled digest should repeat after 32 cells")
	}
}

func TestFromCells(t *testing.T) {
	cells := []byte{1, 2, 3, 4, 5, 6}
	ic, err := FromCells(cells, 3, Options{Border: 1})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}

	if ic.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", ic.Rows())
	}
	if ic.At(0, 0) != 1 || ic.At(1, 2) != 6 {
		t.Errorf("grid = %v", ic.Grid())
	}
}

func TestFromCellsNotDivisible(t *testing.T) {
	_, err := FromCells([]byte{1, 2, 3, 4, 5}, 3, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidCells) {
		t.Errorf("error = %v, want INVALID_CELLS", err)
	}

	_, err = FromCells([]byte{1, 2, 3}, 0, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidCells) {
		t.Errorf("rows=0: error = %v, want INVALID_CELLS", err)
	}
}

func TestFromCellsCopiesInput(t *testing.T) {
	cells := []byte{1, 2, 3, 4}
	ic, err := FromCells(cells, 2, Options{})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}

	cells[0] = 99
	if ic.At(0, 0) == 99 {
		t.Error("icon must not alias the caller's cell slice")
	}
}

func TestRandom(t *testing.T) {
	src := &fakeSource{vals: []int{10, 20, 30, 40, 50, 60, 70, 80, 90}}
	opts := Options{Radius: 4, Border: 1, Rand: src}

	ic, err := Random(opts)
	if err != nil {
		t.Fatalf("Random error: %v", err)
	}

	if ic.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", ic.Rows())
	}
	want := []byte{10, 20, 30, 40, 50, 60, 70, 80, 90}
	if !bytes.Equal(flatten(ic), want) {
		t.Errorf("cells = %v, want %v", flatten(ic), want)
	}
}

func TestRandomBorderTooLarge(t *testing.T) {
	_, err := Random(Options{Radius: 2, Border: 2})
	if !errors.Is(err, errors.ErrCodeInvalidBorder) {
		t.Errorf("error = %v, want INVALID_BORDER", err)
	}
}

func TestOptionsColor(t *testing.T) {
	if (Options{}).color() != White {
		t.Error("default border color should be white")
	}
	if (Options{Black: true}).color() != Black {
		t.Error("Black option should select a black border")
	}
}
