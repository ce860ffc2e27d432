package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, float32(math.Pi), math.MaxFloat32, math.SmallestNonzeroFloat32}
	blob := SerializeVector(vec)
	assert.Len(t, blob, len(vec)*4)
	assert.Equal(t, vec, DeserializeVector(blob))
}

func TestSerializeVector_LittleEndian(t *testing.T) {
	blob := SerializeVector([]float32{1})
	// 1.0 = 0x3f800000
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, blob)
}

func TestDecodeVector(t *testing.T) {
	tests := []struct {
		name    string
		e       FileEmbedding
		wantErr bool
	}{
		{"valid", FileEmbedding{Vector: SerializeVector([]float32{1, 2}), Dimension: 2}, false},
		{"no recorded dimension", FileEmbedding{Vector: SerializeVector([]float32{1, 2})}, false},
		{"truncated blob", FileEmbedding{Vector: []byte{1, 2, 3}, Dimension: 1}, true},
		{"dimension mismatch", FileEmbedding{Vector: SerializeVector([]float32{1, 2}), Dimension: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := tt.e.DecodeVector()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, vec, 2)
		})
	}
}
