package ml

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SparseVector stores the non-zero entries of a Dim long vector.
// Indices are strictly increasing.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
	Dim     int       `json:"dim"`
}

func newSparseVector(counts map[int]float64, dim int) SparseVector {
	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = counts[idx]
	}
	return SparseVector{Indices: indices, Values: values, Dim: dim}
}

func (v SparseVector) Len() int {
	return len(v.Indices)
}

// At returns the value at index i, or 0 when the entry is not stored.
func (v SparseVector) At(i int) float64 {
	pos := sort.SearchInts(v.Indices, i)
	if pos < len(v.Indices) && v.Indices[pos] == i {
		return v.Values[pos]
	}
	return 0
}

// Dot computes the inner product with a dense weight slice.
func (v SparseVector) Dot(weights []float64) float64 {
	sum := 0.0
	for i, idx := range v.Indices {
		sum += v.Values[i] * weights[idx]
	}
	return sum
}

// AddScaledTo adds alpha*v to dst.
func (v SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for i, idx := range v.Indices {
		dst[idx] += alpha * v.Values[i]
	}
}

func (v SparseVector) Dense() []float64 {
	dense := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		dense[idx] = v.Values[i]
	}
	return dense
}

// NormalizeL2 scales the vector in place to unit euclidean length.
func (v SparseVector) NormalizeL2() {
	if len(v.Values) == 0 {
		return
	}
	norm := floats.Norm(v.Values, 2)
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, v.Values)
}
