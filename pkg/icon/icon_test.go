package icon

import (
	"bytes"
	"strings"
	"testing"

	"github.com/onerbs/identy/pkg/errors"
)

func testIcon(t *testing.T) *Icon {
	t.Helper()
	ic, err := FromCells([]byte{10, 20, 30, 40, 50, 60, 70, 80, 90}, 3, Options{Border: 1})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}
	return ic
}

func TestSide(t *testing.T) {
	ic := testIcon(t)
	// (3 rows + 1 border) * 2 mirrored halves
	if got := ic.Side(); got != 8 {
		t.Errorf("Side = %d, want 8", got)
	}
}

func TestCopyIndependence(t *testing.T) {
	ic := testIcon(t)
	cp := ic.Copy()

	if !bytes.Equal(flatten(ic), flatten(cp)) {
		t.Fatal("copy must have equal cells")
	}

	// The copy must not share storage with the original.
	cp.grid[0][0] = 99
	if ic.At(0, 0) == 99 {
		t.Error("copy aliases the original grid")
	}
}

func TestBorder(t *testing.T) {
	ic := testIcon(t)
	b := ic.Border(1, White)

	if b.Rows() != 4 {
		t.Fatalf("rows = %d, want 4", b.Rows())
	}

	// Top row and left column are border cells; the content block is
	// shifted down and right by one.
	for j := 0; j < 4; j++ {
		if b.At(0, j) != White {
			t.Errorf("top border cell (0,%d) = %d, want %d", j, b.At(0, j), White)
		}
	}
	for i := 1; i < 4; i++ {
		if b.At(i, 0) != White {
			t.Errorf("left border cell (%d,0) = %d, want %d", i, b.At(i, 0), White)
		}
	}
	if b.At(1, 1) != 10 || b.At(3, 3) != 90 {
		t.Errorf("content block misplaced: %v", b.Grid())
	}

	// Bottom and right edges stay unpadded; the mirror supplies them.
	if b.At(3, 1) == White && b.At(3, 2) == White && b.At(3, 3) == White {
		t.Error("bottom edge should not be padded")
	}
}

func TestBorderZeroSizeIsCopy(t *testing.T) {
	ic := testIcon(t)
	b := ic.Border(0, Black)

	if b.Rows() != ic.Rows() {
		t.Errorf("rows = %d, want %d", b.Rows(), ic.Rows())
	}
	if !bytes.Equal(flatten(b), flatten(ic)) {
		t.Error("size 0 must return an equivalent copy")
	}
}

func TestInvert(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{0, 255},
		{255, 0},
		{127, 128},
		{128, 127},
		{63, 192},
	}

	for _, tt := range tests {
		ic, err := FromCells([]byte{tt.in}, 1, Options{})
		if err != nil {
			t.Fatalf("FromCells error: %v", err)
		}
		if got := ic.Invert().At(0, 0); got != tt.want {
			t.Errorf("Invert(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInvertInvolution(t *testing.T) {
	ic := testIcon(t)
	back := ic.Invert().Invert()
	if !bytes.Equal(flatten(back), flatten(ic)) {
		t.Error("Invert twice must return the original cells")
	}
}

func TestScale(t *testing.T) {
	ic, err := FromCells([]byte{1, 2, 3, 4}, 2, Options{})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}

	s, err := ic.Scale(3)
	if err != nil {
		t.Fatalf("Scale error: %v", err)
	}
	if s.Rows() != 6 {
		t.Fatalf("rows = %d, want 6", s.Rows())
	}

	// Every 3x3 block must equal the single source cell.
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			want := ic.At(i/3, j/3)
			if got := s.At(i, j); got != want {
				t.Errorf("cell (%d,%d) = %d, want %d", i, j, got, want)
			}
		}
	}
}

func TestScaleIdentity(t *testing.T) {
	ic := testIcon(t)
	s, err := ic.Scale(1)
	if err != nil {
		t.Fatalf("Scale error: %v", err)
	}
	if !bytes.Equal(flatten(s), flatten(ic)) {
		t.Error("Scale(1) must be an equivalent copy")
	}
}

func TestScaleInvalidFactor(t *testing.T) {
	ic := testIcon(t)
	for _, factor := range []int{0, -1, -10} {
		if _, err := ic.Scale(factor); !errors.Is(err, errors.ErrCodeInvalidScale) {
			t.Errorf("Scale(%d) error = %v, want INVALID_SCALE", factor, err)
		}
	}
}

func TestUnfoldDimensions(t *testing.T) {
	ic := testIcon(t)
	u := ic.Unfold()

	if u.Rows() != 6 {
		t.Errorf("rows = %d, want 6", u.Rows())
	}
	if len(u.Grid()[0]) != 6 {
		t.Errorf("cols = %d, want 6", len(u.Grid()[0]))
	}
}

func TestUnfoldSymmetry(t *testing.T) {
	ic := testIcon(t)
	u := ic.Unfold()
	g := u.Grid()
	n := len(g)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if g[i][j] != g[i][n-1-j] {
				t.Fatalf("not horizontally symmetric at (%d,%d)", i, j)
			}
			if g[i][j] != g[n-1-i][j] {
				t.Fatalf("not vertically symmetric at (%d,%d)", i, j)
			}
		}
	}

	// Top-left quadrant must be the source tile.
	for i := 0; i < ic.Rows(); i++ {
		for j := 0; j < ic.Rows(); j++ {
			if g[i][j] != ic.At(i, j) {
				t.Fatalf("quadrant mismatch at (%d,%d)", i, j)
			}
		}
	}
}

func TestUnfoldIndependence(t *testing.T) {
	ic := testIcon(t)
	u := ic.Unfold()

	u.grid[0][0] = 99
	if ic.At(0, 0) == 99 {
		t.Error("unfolded icon aliases the source grid")
	}

	// The mirrored bottom rows must not alias the top rows either.
	u.grid[0][1] = 77
	if u.grid[len(u.grid)-1][1] == 77 {
		t.Error("mirrored rows alias their source rows")
	}
}

func TestString(t *testing.T) {
	// One full-intensity cell with a white border of 1 unfolds to a 4x4
	// full-block square.
	ic, err := FromCells([]byte{0xff}, 1, Options{Border: 1})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}

	got := ic.String()
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4", len(lines))
	}
	for i, line := range lines {
		if line != "████████" {
			t.Errorf("line %d = %q, want full blocks", i, line)
		}
	}
}

func TestStringGlyphRamp(t *testing.T) {
	// Intensities on bucket boundaries: 0, 63, 126, 189, 255 map to the
	// five glyphs (integer division by 0x3f).
	ic, err := FromCells([]byte{0}, 1, Options{Border: 0, Black: true})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}
	if s := ic.String(); strings.TrimSpace(s) != "" {
		t.Errorf("zero intensity should render blank, got %q", s)
	}

	ic2, err := FromCells([]byte{0xff}, 1, Options{Border: 0})
	if err != nil {
		t.Fatalf("FromCells error: %v", err)
	}
	if s := ic2.String(); !strings.Contains(s, "██") {
		t.Errorf("full intensity should render full blocks, got %q", s)
	}
}
