// Package vecenc encodes embedding vectors into a portable binary form for
// cache payloads: a little-endian uint32 element count followed by the
// float32 elements.
package vecenc

import (
	"encoding/binary"
	"fmt"
	"math"
)

func Encode(vec []float32) []byte {
	buf := make([]byte, 4+4*len(vec))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(v))
	}
	return buf
}

func Decode(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vecenc: payload too short: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data[:4])
	if uint64(len(data)) != 4+4*uint64(n) {
		return nil, fmt.Errorf("vecenc: length mismatch: header %d, payload %d bytes", n, len(data)-4)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return vec, nil
}
