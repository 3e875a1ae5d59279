package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Mock is a deterministic provider: the same text always yields the same
// unit-length vector, and different texts almost surely differ.
type Mock struct {
	dimension int
}

// NewMock creates a mock provider with the given vector width.
func NewMock(dimension int) *Mock {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Mock{dimension: dimension}
}

// EmbedDocuments embeds a batch of texts.
func (m *Mock) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vectorFor(text)
	}
	return out, nil
}

// EmbedQuery embeds one query string.
func (m *Mock) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	return m.vectorFor(text), nil
}

// Dimension returns the vector width.
func (m *Mock) Dimension() int {
	return m.dimension
}

// vectorFor hashes the text into a normalized vector.
func (m *Mock) vectorFor(text string) []float32 {
	sum := sha256.Sum256([]byte(text))

	vector := make([]float32, m.dimension)
	var norm float64
	for i := range vector {
		// Stretch the digest by hashing the index in.
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(i))
		h := sha256.Sum256(append(sum[:], buf[:]...))
		v := float32(int16(binary.BigEndian.Uint16(h[:2]))) / math.MaxInt16
		vector[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}
