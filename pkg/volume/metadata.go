package volume

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Metadata holds every spatial quantity derived from a volume's resolution,
// spacing and normalization flag. It is produced as a whole by
// DeriveMetadata and never edited field by field.
type Metadata struct {
	// InvResolution is 1/Resolution per axis
	InvResolution mgl32.Vec3

	// Spacing is the effective physical voxel size after normalization
	Spacing mgl32.Vec3

	// InvSpacing is 1/Spacing per axis
	InvSpacing mgl32.Vec3

	// Size is the physical extent, Resolution * Spacing
	Size mgl32.Vec3

	// InvSize is 1/Size per axis
	InvSize mgl32.Vec3

	// MinAABB and MaxAABB bound the volume centred on the origin
	MinAABB mgl32.Vec3
	MaxAABB mgl32.Vec3

	// GradientDeltaX/Y/Z each carry the smallest voxel edge along one axis.
	// Callers step by these for central-difference gradients.
	GradientDeltaX mgl32.Vec3
	GradientDeltaY mgl32.Vec3
	GradientDeltaZ mgl32.Vec3
}

// DeriveMetadata computes the derived fields for a volume of the given
// resolution and raw spacing. When normalize is set the spacing is scaled
// uniformly so that the longest axis of the physical extent becomes 1.
//
// Zero resolution components yield infinite inverses rather than a panic;
// such a volume holds no voxels and samples as zero.
func DeriveMetadata(resolution [3]int, spacing mgl32.Vec3, normalize bool) Metadata {
	res := resolutionVec(resolution)

	scale := float32(1)
	if normalize {
		physical := mulElem(res, spacing)
		longest := max(physical[0], physical[1], physical[2])
		if longest > 0 {
			scale = 1 / longest
		}
	}

	var m Metadata
	m.InvResolution = invElem(res)
	m.Spacing = spacing.Mul(scale)
	m.InvSpacing = invElem(m.Spacing)
	m.Size = mulElem(res, m.Spacing)
	m.InvSize = invElem(m.Size)
	m.MinAABB = m.Size.Mul(-0.5)
	m.MaxAABB = m.Size.Mul(0.5)

	minVoxel := min(m.Spacing[0], m.Spacing[1], m.Spacing[2])
	m.GradientDeltaX = mgl32.Vec3{minVoxel, 0, 0}
	m.GradientDeltaY = mgl32.Vec3{0, minVoxel, 0}
	m.GradientDeltaZ = mgl32.Vec3{0, 0, minVoxel}

	return m
}

// Contains reports whether p lies inside the bounding box, edges included
func (m Metadata) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < m.MinAABB[i] || p[i] > m.MaxAABB[i] {
			return false
		}
	}
	return true
}

// VoxelCount returns the number of voxels a buffer for resolution must hold.
// Any non-positive component gives zero.
func VoxelCount(resolution [3]int) int {
	if resolution[0] <= 0 || resolution[1] <= 0 || resolution[2] <= 0 {
		return 0
	}
	return resolution[0] * resolution[1] * resolution[2]
}

func resolutionVec(r [3]int) mgl32.Vec3 {
	return mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func invElem(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{1 / v[0], 1 / v[1], 1 / v[2]}
}
