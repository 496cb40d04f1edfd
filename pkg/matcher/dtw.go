package matcher

import (
	"math"

	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
)

// PointDistance measures the distance between two feature vectors.
type PointDistance func(a, b mfcc.Vector) float64

// Euclidean is the L2 distance over the shared coefficients of a and b.
func Euclidean(a, b mfcc.Vector) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Distance returns the dynamic time warping distance between a and b with
// Euclidean point distance.
func Distance(a, b mfcc.Sequence) float64 {
	return DistanceFunc(a, b, Euclidean)
}

// DistanceFunc returns the DTW distance between a and b.
//
// The cost matrix D is len(a) x len(b) with no band constraint:
//
//	D[0][0] = d(a0, b0)
//	D[i][0] = D[i-1][0] + d(ai, b0)
//	D[0][j] = D[0][j-1] + d(a0, bj)
//	D[i][j] = d(ai, bj) + min(D[i-1][j], D[i][j-1], D[i-1][j-1])
//
// and the result is the bottom-right cell. Only two rows are kept in
// memory. An empty input yields +Inf.
func DistanceFunc(a, b mfcc.Sequence, d PointDistance) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	prev := make([]float64, len(b))
	cur := make([]float64, len(b))

	prev[0] = d(a[0], b[0])
	for j := 1; j < len(b); j++ {
		prev[j] = prev[j-1] + d(a[0], b[j])
	}
	for i := 1; i < len(a); i++ {
		cur[0] = prev[0] + d(a[i], b[0])
		for j := 1; j < len(b); j++ {
			cur[j] = d(a[i], b[j]) + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(b)-1]
}
