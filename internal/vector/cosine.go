package vector

import "math"

// MismatchScore is the sentinel for vectors that cannot be compared: rows
// whose dimensionality differs from the query, or zero-norm vectors. It sits
// below every real cosine similarity so such rows never win a ranking.
const MismatchScore = -1.0

func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine computes cosine similarity between query and item, given the
// query's precomputed norm. Mismatched dimensions score MismatchScore
// instead of raising, because an index can hold vectors from different
// embedding-model versions across runs.
func Cosine(query, item []float32, queryNorm float64) float64 {
	if len(item) == 0 || len(query) != len(item) {
		return MismatchScore
	}
	itemNorm := Norm(item)
	if queryNorm == 0 || itemNorm == 0 {
		return MismatchScore
	}
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(item[i])
	}
	return dot / (queryNorm * itemNorm)
}
