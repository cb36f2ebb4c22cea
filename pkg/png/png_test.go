package png

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	stdpng "image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/onerbs/identy/pkg/errors"
)

// grid returns an n×n matrix filled with v.
func grid(n int, v byte) [][]byte {
	g := make([][]byte, n)
	for i := range g {
		g[i] = bytes.Repeat([]byte{v}, n)
	}
	return g
}

// chunk is a decoded PNG chunk for test inspection.
type chunk struct {
	typ     string
	payload []byte
	crc     uint32
}

// readChunks splits encoded bytes into chunks, verifying the signature.
func readChunks(t *testing.T, data []byte) []chunk {
	t.Helper()

	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if !bytes.HasPrefix(data, sig) {
		t.Fatalf("missing PNG signature, got % x", data[:8])
	}

	var chunks []chunk
	rest := data[8:]
	for len(rest) > 0 {
		if len(rest) < 12 {
			t.Fatalf("truncated chunk: %d bytes left", len(rest))
		}
		length := binary.BigEndian.Uint32(rest[0:4])
		typ := string(rest[4:8])
		payload := rest[8 : 8+length]
		crc := binary.BigEndian.Uint32(rest[8+length : 12+length])
		chunks = append(chunks, chunk{typ: typ, payload: payload, crc: crc})
		rest = rest[12+length:]
	}
	return chunks
}

func TestEncodeChunkLayout(t *testing.T) {
	img, err := Encode(grid(4, 0))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	chunks := readChunks(t, img.Bytes())
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}

	want := []string{"IHDR", "IDAT", "IEND"}
	for i, c := range chunks {
		if c.typ != want[i] {
			t.Errorf("chunk %d type = %s, want %s", i, c.typ, want[i])
		}

		crc := crc32.Update(0, crc32.IEEETable, []byte(c.typ))
		crc = crc32.Update(crc, crc32.IEEETable, c.payload)
		if c.crc != crc {
			t.Errorf("chunk %s CRC = %08x, want %08x", c.typ, c.crc, crc)
		}
	}

	if len(chunks[2].payload) != 0 {
		t.Errorf("IEND payload length = %d, want 0", len(chunks[2].payload))
	}
}

func TestEncodeHeader(t *testing.T) {
	img, err := Encode(grid(6, 0x7f))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	hdr := readChunks(t, img.Bytes())[0].payload
	if len(hdr) != 13 {
		t.Fatalf("IHDR length = %d, want 13", len(hdr))
	}

	if w := binary.BigEndian.Uint32(hdr[0:4]); w != 6 {
		t.Errorf("width = %d, want 6", w)
	}
	if h := binary.BigEndian.Uint32(hdr[4:8]); h != 6 {
		t.Errorf("height = %d, want 6", h)
	}

	// bit depth 8, color type 0, compression 0, filter 0, interlace 0
	wantTail := []byte{8, 0, 0, 0, 0}
	if !bytes.Equal(hdr[8:], wantTail) {
		t.Errorf("IHDR tail = %v, want %v", hdr[8:], wantTail)
	}
}

func TestEncodeScanlines(t *testing.T) {
	g := [][]byte{
		{10, 20},
		{30, 40},
	}
	img, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	idat := readChunks(t, img.Bytes())[1].payload
	zr, err := zlib.NewReader(bytes.NewReader(idat))
	if err != nil {
		t.Fatalf("zlib reader: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	// Every row carries a leading filter byte of 0.
	want := []byte{0, 10, 20, 0, 30, 40}
	if !bytes.Equal(raw, want) {
		t.Errorf("scanlines = %v, want %v", raw, want)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	g := grid(8, 0xbd)
	a, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	b, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("encoding the same matrix twice must be byte-identical")
	}
}

func TestEncodeDecodableByStdlib(t *testing.T) {
	g := [][]byte{
		{0, 85, 170},
		{255, 0, 85},
		{170, 255, 0},
	}
	img, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	decoded, err := stdpng.Decode(bytes.NewReader(img.Bytes()))
	if err != nil {
		t.Fatalf("stdlib decode: %v", err)
	}

	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("decoded type = %T, want *image.Gray", decoded)
	}

	for y := range g {
		for x := range g[y] {
			if got := gray.GrayAt(x, y).Y; got != g[y][x] {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, g[y][x])
			}
		}
	}
}

func TestEncodeRejectsNonSquare(t *testing.T) {
	_, err := Encode([][]byte{{1, 2, 3}, {4, 5}})
	if !errors.Is(err, errors.ErrCodeInvalidCells) {
		t.Errorf("error = %v, want INVALID_CELLS", err)
	}
}

func TestBase64(t *testing.T) {
	img, err := Encode(grid(4, 0))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(img.Base64())
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	if !bytes.Equal(decoded, img.Bytes()) {
		t.Error("Base64 must round-trip to the raw bytes")
	}
}

func TestBytesReturnsCopy(t *testing.T) {
	img, err := Encode(grid(4, 0))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	b := img.Bytes()
	b[0] = 0xff
	if img.Bytes()[0] == 0xff {
		t.Error("Bytes must return an independent copy")
	}
}

func TestSave(t *testing.T) {
	img, err := Encode(grid(4, 0xff))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "icon.png")
	if err := img.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(data, img.Bytes()) {
		t.Error("saved file must contain the encoded bytes")
	}
}

func TestSaveBadPath(t *testing.T) {
	img, err := Encode(grid(2, 0))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if err := img.Save(filepath.Join(t.TempDir(), "missing", "icon.png")); err == nil {
		t.Error("Save into a missing directory should fail")
	}
}
