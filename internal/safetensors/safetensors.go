// Package safetensors reads model weights in the safetensors format: an
// 8-byte little-endian header length, a JSON header mapping tensor names to
// dtype/shape/offsets, then a raw byte buffer. It backs the tensor catalog
// consumed by the analysis core.
package safetensors

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// headerLimit caps the JSON header size to keep a corrupt length prefix from
// triggering a huge allocation.
const headerLimit = 100 << 20

// tensorInfo describes one tensor entry from a safetensors header.
type tensorInfo struct {
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Offsets [2]int `json:"data_offsets"` // relative to the start of the byte buffer
}

// fileHeader is a parsed safetensors header with tensor names in document order.
type fileHeader struct {
	names   []string
	tensors map[string]tensorInfo
	dataOff int64 // absolute offset of the byte buffer within the file
}

// parseHeader reads and parses the header of a safetensors file, preserving
// the document order of tensor names. Order matters: it is the registration
// order the rest of the pipeline treats as canonical.
func parseHeader(r io.Reader) (*fileHeader, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen == 0 || headerLen > headerLimit {
		return nil, fmt.Errorf("implausible header length %d", headerLen)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h := &fileHeader{
		tensors: make(map[string]tensorInfo),
		dataOff: int64(8 + headerLen),
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("header is not valid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("header must be a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed header entry: %w", err)
		}
		name := keyTok.(string)
		if name == "__metadata__" {
			var meta map[string]string
			if err := dec.Decode(&meta); err != nil {
				return nil, fmt.Errorf("malformed __metadata__: %w", err)
			}
			continue
		}
		var info tensorInfo
		if err := dec.Decode(&info); err != nil {
			return nil, fmt.Errorf("malformed entry for %q: %w", name, err)
		}
		if info.Offsets[1] < info.Offsets[0] {
			return nil, fmt.Errorf("entry for %q has inverted data offsets", name)
		}
		h.names = append(h.names, name)
		h.tensors[name] = info
	}
	return h, nil
}

// parseHeaderFile opens path and parses its safetensors header.
func parseHeaderFile(path string) (*fileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	h, err := parseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// dtypeSize returns the byte width of a supported element type.
func dtypeSize(dtype string) (int, error) {
	switch dtype {
	case "F64":
		return 8, nil
	case "F32":
		return 4, nil
	case "F16", "BF16":
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %s", dtype)
	}
}

// decodeValues converts a raw little-endian buffer to float64 values.
func decodeValues(raw []byte, dtype string, count int) ([]float64, error) {
	size, err := dtypeSize(dtype)
	if err != nil {
		return nil, err
	}
	if len(raw) != count*size {
		return nil, fmt.Errorf("buffer holds %d bytes, want %d for %d %s values", len(raw), count*size, count, dtype)
	}

	out := make([]float64, count)
	switch dtype {
	case "F64":
		for i := range count {
			bits := binary.LittleEndian.Uint64(raw[i*8:])
			out[i] = math.Float64frombits(bits)
		}
	case "F32":
		for i := range count {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = float64(math.Float32frombits(bits))
		}
	case "F16":
		for i := range count {
			out[i] = float16ToFloat64(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case "BF16":
		for i := range count {
			bits := uint32(binary.LittleEndian.Uint16(raw[i*2:])) << 16
			out[i] = float64(math.Float32frombits(bits))
		}
	}
	return out, nil
}

// float16ToFloat64 expands an IEEE 754 half-precision value.
func float16ToFloat64(bits uint16) float64 {
	sign := uint64(bits>>15) & 1
	exp := uint64(bits>>10) & 0x1f
	frac := uint64(bits) & 0x3ff

	var f64bits uint64
	switch {
	case exp == 0 && frac == 0:
		f64bits = sign << 63
	case exp == 0:
		// Subnormal: normalize into float64 form.
		e := -14
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		f64bits = sign<<63 | uint64(e+1023)<<52 | frac<<42
	case exp == 0x1f && frac == 0:
		f64bits = sign<<63 | 0x7ff<<52
	case exp == 0x1f:
		f64bits = sign<<63 | 0x7ff<<52 | frac<<42
	default:
		f64bits = sign<<63 | (exp-15+1023)<<52 | frac<<42
	}
	return math.Float64frombits(f64bits)
}

// numElements returns the element count of a shape; a 0-D shape holds one.
func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}
		n *= d
	}
	return n, nil
}

// matrixShape collapses a tensor shape to 2-D: scalars and vectors become a
// single row, and tensors beyond 2-D fold their leading dimensions into rows
// so the innermost dimension stays the column count.
func matrixShape(shape []int) (rows, cols int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return 1, shape[0]
	case 2:
		return shape[0], shape[1]
	default:
		rows = 1
		for _, d := range shape[:len(shape)-1] {
			rows *= d
		}
		return rows, shape[len(shape)-1]
	}
}
