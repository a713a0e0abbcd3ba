package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Cell is any small per-cell value a window layer is made of.
type Cell interface {
	~uint8 | ~uint16
}

// EncodeRLE encodes a row-major cell layer into base64(varint pairs).
// The pairs are (value, run_len) repeated.
func EncodeRLE[T Cell](cells []T) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		v := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == v; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE decodes a layer of exactly n cells.
func DecodeRLE(b64 string, n int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, n)
	for i := 0; i < len(raw); {
		v, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		run, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		if v > 0xFFFF {
			return nil, fmt.Errorf("cell value too large: %d", v)
		}
		if run == 0 || run > uint64(n-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, n)
		}
		for r := uint64(0); r < run; r++ {
			out = append(out, uint16(v))
		}
	}
	if len(out) != n {
		return nil, fmt.Errorf("decoded %d cells, want %d", len(out), n)
	}
	return out, nil
}
