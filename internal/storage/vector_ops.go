package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SerializeVector converts a float32 slice to a byte blob (little-endian)
func SerializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DeserializeVector converts a byte blob back to a float32 slice
func DeserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// DecodeVector deserializes the embedding vector and checks it against the
// recorded dimension. A truncated or corrupt blob is an error.
func (e *FileEmbedding) DecodeVector() ([]float32, error) {
	if len(e.Vector)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(e.Vector))
	}
	vector := DeserializeVector(e.Vector)
	if e.Dimension > 0 && len(vector) != e.Dimension {
		return nil, fmt.Errorf("vector dimension %d does not match recorded %d", len(vector), e.Dimension)
	}
	return vector, nil
}
