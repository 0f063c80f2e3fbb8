package volume

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram is a binned count of raw voxel values
type Histogram struct {
	// Dividers holds len(Counts)+1 increasing bin edges
	Dividers []float64
	Counts   []float64
}

// IntensityRange returns the smallest and largest voxel value.
// ok is false when the volume has no voxels.
func IntensityRange(v *Volume) (lo, hi uint16, ok bool) {
	if v.Len() == 0 {
		return 0, 0, false
	}
	data := samples(v)
	return uint16(floats.Min(data)), uint16(floats.Max(data)), true
}

// ComputeHistogram bins the voxel values of v into the given number of
// equal-width bins spanning [min, max]. It returns an empty Histogram for
// a volume without voxels or a non-positive bin count.
func ComputeHistogram(v *Volume, bins int) Histogram {
	if bins <= 0 || v.Len() == 0 {
		return Histogram{}
	}

	data := samples(v)
	sort.Float64s(data)

	// stat.Histogram needs every value strictly below the last divider
	lo, hi := data[0], data[len(data)-1]+1
	dividers := floats.Span(make([]float64, bins+1), lo, hi)

	return Histogram{
		Dividers: dividers,
		Counts:   stat.Histogram(nil, dividers, data, nil),
	}
}

// Mean returns the average voxel value, zero without voxels
func Mean(v *Volume) float64 {
	if v.Len() == 0 {
		return 0
	}
	return stat.Mean(samples(v), nil)
}

func samples(v *Volume) []float64 {
	data := make([]float64, len(v.voxels))
	for i, s := range v.voxels {
		data[i] = float64(s)
	}
	return data
}
