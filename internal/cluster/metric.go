package cluster

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMetric is returned when the requested distance metric is not
// compiled into the engine. Callers must report this distinctly from data
// errors: the data may be fine while the capability is missing.
var ErrUnsupportedMetric = errors.New("cluster: unsupported metric")

// DistanceFunc computes the distance between two equal-length feature rows.
type DistanceFunc func(a, b []float64) float64

// metricByName returns the DistanceFunc for a metric name. The default
// "jaccard" treats rows as sets of nonzero indicators, which is the
// appropriate similarity for 0/1 availability vectors.
func metricByName(name string) (DistanceFunc, error) {
	switch name {
	case "", "jaccard":
		return jaccardDistance, nil
	case "hamming":
		return hammingDistance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, name)
	}
}

// jaccardDistance is 1 − |a∩b| / |a∪b| over nonzero components. Two
// all-zero rows are identical, distance 0.
func jaccardDistance(a, b []float64) float64 {
	inter, union := 0, 0
	for i := range a {
		av := a[i] != 0
		bv := b[i] != 0
		if av || bv {
			union++
			if av && bv {
				inter++
			}
		}
	}
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

// hammingDistance is the fraction of components that differ.
func hammingDistance(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	diff := 0
	for i := range a {
		if (a[i] != 0) != (b[i] != 0) {
			diff++
		}
	}
	return float64(diff) / float64(len(a))
}
