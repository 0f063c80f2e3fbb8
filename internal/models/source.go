package models

import (
	"fmt"
	"math"
)

// Source is a raw volumetric data set as handed over by a loader, before
// it is turned into a volume.Volume
type Source struct {
	// Resolution is the voxel count along X, Y and Z
	Resolution [3]int

	// Spacing is the physical voxel size in mm
	Spacing [3]float32

	// NormalizeSize requests unit-size normalization of the physical extent
	NormalizeSize bool

	// Voxels holds the samples row-major, X fastest
	Voxels []uint16
}

// PhantomKind names a synthetic test volume
type PhantomKind string

const (
	// Sphere is a solid ball of foreground in a background field
	Sphere PhantomKind = "sphere"

	// Shell is the surface of a ball, a tenth of the radius thick
	Shell PhantomKind = "shell"

	// Ramp rises linearly from background to foreground along Z
	Ramp PhantomKind = "ramp"
)

// NewPhantom generates a synthetic Source. radius is a fraction of the
// smallest physical half extent and is ignored for Ramp.
func NewPhantom(kind PhantomKind, resolution [3]int, spacing [3]float32, radius float64, background, foreground uint16) (*Source, error) {
	for i, r := range resolution {
		if r < 1 {
			return nil, fmt.Errorf("phantom resolution[%d] must be at least 1, got %d", i, r)
		}
	}

	src := &Source{
		Resolution: resolution,
		Spacing:    spacing,
		Voxels:     make([]uint16, resolution[0]*resolution[1]*resolution[2]),
	}

	var extent, center [3]float64
	for i := 0; i < 3; i++ {
		extent[i] = float64(resolution[i]) * float64(spacing[i])
		center[i] = extent[i] / 2
	}
	halfMin := math.Min(center[0], math.Min(center[1], center[2]))
	r := radius * halfMin

	var inside func(x, y, z int) float64
	switch kind {
	case Sphere:
		inside = func(x, y, z int) float64 {
			if dist(x, y, z, spacing, center) <= r {
				return 1
			}
			return 0
		}
	case Shell:
		thickness := r / 10
		inside = func(x, y, z int) float64 {
			if math.Abs(dist(x, y, z, spacing, center)-r) <= thickness {
				return 1
			}
			return 0
		}
	case Ramp:
		inside = func(x, y, z int) float64 {
			if resolution[2] == 1 {
				return 0
			}
			return float64(z) / float64(resolution[2]-1)
		}
	default:
		return nil, fmt.Errorf("unknown phantom kind %q (must be sphere, shell or ramp)", kind)
	}

	bg, fg := float64(background), float64(foreground)
	for z := 0; z < resolution[2]; z++ {
		for y := 0; y < resolution[1]; y++ {
			for x := 0; x < resolution[0]; x++ {
				t := inside(x, y, z)
				idx := z*resolution[0]*resolution[1] + y*resolution[0] + x
				src.Voxels[idx] = uint16(math.Round(bg + t*(fg-bg)))
			}
		}
	}

	return src, nil
}

// dist returns the physical distance from the centre of voxel (x, y, z)
// to center
func dist(x, y, z int, spacing [3]float32, center [3]float64) float64 {
	dx := (float64(x)+0.5)*float64(spacing[0]) - center[0]
	dy := (float64(y)+0.5)*float64(spacing[1]) - center[1]
	dz := (float64(z)+0.5)*float64(spacing[2]) - center[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
