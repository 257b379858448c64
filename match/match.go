// Package match decides which candidate speakers sound like a reference voice
// by comparing embedding vectors.
package match

import "math"

// Vector is a speaker embedding. It is treated as an opaque fixed-length
// numeric vector and never mutated.
type Vector []float64

// Result holds the outcome of matching candidates against a reference.
type Result struct {
	// Matching contains the labels whose distance to the reference is at or
	// under the threshold.
	Matching map[string]bool
	// Distances maps every candidate label to its cosine distance, matched or
	// not, so callers can report diagnostics for near misses.
	Distances map[string]float64
}

// Speakers compares each candidate embedding against the reference and
// returns the labels within threshold (inclusive) plus the full distance map.
// An empty candidate set yields empty results; whether that is an error is the
// caller's decision.
func Speakers(reference Vector, candidates map[string]Vector, threshold float64) Result {
	res := Result{
		Matching:  make(map[string]bool),
		Distances: make(map[string]float64, len(candidates)),
	}
	for label, candidate := range candidates {
		d := CosineDistance(reference, candidate)
		res.Distances[label] = d
		if d <= threshold {
			res.Matching[label] = true
		}
	}
	return res
}

// CosineDistance returns 1 - cos(a, b), in [0, 2] where 0 means identical
// direction. A zero-norm vector carries no directional information, so its
// distance is defined as 1.
func CosineDistance(a, b Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
