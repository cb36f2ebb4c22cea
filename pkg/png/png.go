// Package png encodes grayscale pixel matrices as minimal PNG files.
//
// The encoder produces exactly three chunks (IHDR, IDAT, IEND) preceded by
// the fixed 8-byte PNG signature. Pixels are 8-bit grayscale (color type 0),
// one byte per pixel, each scanline prefixed with filter type 0 before zlib
// compression. The package is write-only: there is no decoder.
package png

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/observability"
)

// signature is the fixed 8-byte PNG file signature.
var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Image holds an encoded PNG byte stream.
type Image struct {
	data []byte
}

// Encode serializes a square grayscale matrix into PNG bytes.
// Each cell is an intensity in [0,255]; grid[y][x] is the pixel at
// column x of row y. The matrix must be square.
func Encode(grid [][]byte) (*Image, error) {
	start := time.Now()

	size := len(grid)
	for y, row := range grid {
		if len(row) != size {
			return nil, errors.New(errors.ErrCodeInvalidCells,
				"matrix is not square: row %d has %d cells, want %d", y, len(row), size)
		}
	}

	// IHDR: width, height, bit depth 8, color type 0 (grayscale),
	// compression 0, filter 0, interlace 0.
	hdr := make([]byte, 13)
	binary.BigEndian.PutUint32(hdr[0:4], uint32(size))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(size))
	hdr[8] = 8

	// Scanlines: filter type byte 0 before every row.
	raw := make([]byte, 0, size*(size+1))
	for _, row := range grid {
		raw = append(raw, 0)
		raw = append(raw, row...)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compress pixel data")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compress pixel data")
	}

	var buf bytes.Buffer
	buf.Write(signature)
	writeChunk(&buf, "IHDR", hdr)
	writeChunk(&buf, "IDAT", compressed.Bytes())
	writeChunk(&buf, "IEND", nil)

	img := &Image{data: buf.Bytes()}
	observability.Generator().OnEncode(size, len(img.data), time.Since(start))
	return img, nil
}

// writeChunk appends a single chunk to buf: 4-byte big-endian payload
// length, 4-byte type tag, payload, and a 4-byte big-endian CRC-32
// computed over the type tag and payload.
func writeChunk(buf *bytes.Buffer, typ string, payload []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	buf.Write(length[:])
	buf.WriteString(typ)
	buf.Write(payload)

	crc := crc32.Update(0, crc32.IEEETable, []byte(typ))
	crc = crc32.Update(crc, crc32.IEEETable, payload)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc)
	buf.Write(sum[:])
}

// Bytes returns a copy of the encoded PNG bytes.
func (p *Image) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Base64 returns the encoded PNG as a standard base64 string.
func (p *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(p.data)
}

// Save writes the encoded PNG to a file at path.
// The file is created (or truncated) in binary mode and fully flushed;
// close errors are reported on every exit path.
func (p *Image) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if _, err = f.Write(p.data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
