// Package volume implements the voxel grid used by the sampling stages of
// the renderer: a flat buffer of 16-bit samples plus the physical-space
// metadata derived from its resolution and voxel spacing.
//
// Samples are stored row-major with X varying fastest, then Y, then Z:
//
//	index = z*resX*resY + y*resX + x
//
// The volume is centred on the origin, so its bounding box runs from
// -Size/2 to +Size/2.
//
// A Volume is mutated (New, Rebuild, Assign, Release) before rendering and
// then read concurrently by any number of samplers. It does no locking of
// its own; callers keep the write phase and the read phase apart.
package volume

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Volume owns a 3D grid of unsigned 16-bit voxels and its derived metadata.
// The zero value is an empty volume that samples as zero everywhere.
type Volume struct {
	resolution [3]int
	spacing    mgl32.Vec3 // as supplied, before normalization
	normalize  bool
	meta       Metadata

	// GradientMagnitudeRange holds the minimum and maximum gradient
	// magnitude of the data. It is filled in by preprocessing (see
	// ComputeGradientMagnitudeRange) and is not derived from the geometry.
	GradientMagnitudeRange [2]float32

	voxels  []uint16
	storage Storage
}

// Option configures a Volume at construction
type Option func(*Volume)

// WithStorage selects where the voxel buffer is allocated. The default is
// HostStorage.
func WithStorage(s Storage) Option {
	return func(v *Volume) {
		if s != nil {
			v.storage = s
		}
	}
}

// New creates a volume from raw inputs. The voxels are deep-copied; the
// caller keeps ownership of the slice it passed in. A nil voxels slice gives
// a volume with valid geometry that samples as zero.
func New(resolution [3]int, spacing mgl32.Vec3, normalize bool, voxels []uint16, opts ...Option) *Volume {
	v := &Volume{}
	for _, opt := range opts {
		opt(v)
	}
	v.Rebuild(resolution, spacing, normalize, voxels)
	return v
}

// Rebuild replaces the geometry and contents of the volume in one step.
// Metadata is derived and the new buffer filled before anything is stored
// on v, and the previous buffer is released afterwards, so voxels may alias
// the volume's own buffer.
//
// If the resolution has a non-positive component, or voxels is nil, the
// volume ends up without a buffer.
func (v *Volume) Rebuild(resolution [3]int, spacing mgl32.Vec3, normalize bool, voxels []uint16) {
	s := v.store()
	meta := DeriveMetadata(resolution, spacing, normalize)

	var buf []uint16
	if n := VoxelCount(resolution); n > 0 && voxels != nil {
		buf = s.Allocate(n)
		s.Copy(buf, voxels)
	}

	old := v.voxels

	v.resolution = resolution
	v.spacing = spacing
	v.normalize = normalize
	v.meta = meta
	v.voxels = buf

	if old != nil {
		s.Free(old)
	}
}

// Assign makes v a deep copy of src: geometry, derived metadata, gradient
// range and voxels. v keeps its own storage location. Assigning a volume to
// itself is a no-op and a nil src empties v.
func (v *Volume) Assign(src *Volume) {
	if src == v {
		return
	}
	if src == nil {
		v.Rebuild([3]int{}, mgl32.Vec3{}, false, nil)
		v.GradientMagnitudeRange = [2]float32{}
		return
	}

	v.Rebuild(src.resolution, src.spacing, src.normalize, src.voxels)
	v.GradientMagnitudeRange = src.GradientMagnitudeRange
}

// Clone returns a deep copy of v using the same storage
func (v *Volume) Clone() *Volume {
	c := &Volume{storage: v.storage}
	c.Assign(v)
	return c
}

// Release frees the voxel buffer. Geometry is left untouched, so the volume
// keeps its bounds and samples as zero. Calling Release more than once is
// safe.
func (v *Volume) Release() {
	if v.voxels == nil {
		return
	}
	v.store().Free(v.voxels)
	v.voxels = nil
}

// SetNormalizeSize toggles size normalization and rederives the metadata.
// The voxel buffer is unaffected.
func (v *Volume) SetNormalizeSize(normalize bool) {
	v.meta = DeriveMetadata(v.resolution, v.spacing, normalize)
	v.normalize = normalize
}

// SetSpacing changes the raw voxel spacing and rederives the metadata.
func (v *Volume) SetSpacing(spacing mgl32.Vec3) {
	v.meta = DeriveMetadata(v.resolution, spacing, v.normalize)
	v.spacing = spacing
}

// SampleByIndex returns the voxel at xyz. Each coordinate is clamped into
// [0, Resolution-1] first, so out-of-range indices read the nearest edge
// voxel. A volume without a buffer returns 0.
func (v *Volume) SampleByIndex(xyz [3]int) uint16 {
	if v.voxels == nil {
		return 0
	}

	for i := 0; i < 3; i++ {
		xyz[i] = clampInt(xyz[i], 0, v.resolution[i]-1)
	}

	idx := v.offset(xyz)
	if idx < 0 || idx >= len(v.voxels) {
		return 0
	}
	return v.voxels[idx]
}

// SampleByPosition returns the voxel containing the physical-space point p.
// p is mapped to voxel space with Resolution * ((p - MinAABB) * InvSize),
// truncated, and looked up with SampleByIndex. No interpolation is done.
func (v *Volume) SampleByPosition(p mgl32.Vec3) uint16 {
	local := mulElem(resolutionVec(v.resolution), mulElem(p.Sub(v.meta.MinAABB), v.meta.InvSize))

	var xyz [3]int
	for i := 0; i < 3; i++ {
		xyz[i] = truncate(local[i], v.resolution[i])
	}
	return v.SampleByIndex(xyz)
}

// Resolution returns the voxel count per axis
func (v *Volume) Resolution() [3]int { return v.resolution }

// RawSpacing returns the spacing as supplied, before normalization
func (v *Volume) RawSpacing() mgl32.Vec3 { return v.spacing }

// NormalizeSize reports whether the physical size is normalized
func (v *Volume) NormalizeSize() bool { return v.normalize }

// Metadata returns a snapshot of all derived fields
func (v *Volume) Metadata() Metadata { return v.meta }

func (v *Volume) InvResolution() mgl32.Vec3 { return v.meta.InvResolution }
func (v *Volume) Spacing() mgl32.Vec3       { return v.meta.Spacing }
func (v *Volume) InvSpacing() mgl32.Vec3    { return v.meta.InvSpacing }
func (v *Volume) Size() mgl32.Vec3          { return v.meta.Size }
func (v *Volume) InvSize() mgl32.Vec3       { return v.meta.InvSize }
func (v *Volume) MinAABB() mgl32.Vec3       { return v.meta.MinAABB }
func (v *Volume) MaxAABB() mgl32.Vec3       { return v.meta.MaxAABB }

// GradientDelta returns the X, Y and Z gradient step vectors
func (v *Volume) GradientDelta() (x, y, z mgl32.Vec3) {
	return v.meta.GradientDeltaX, v.meta.GradientDeltaY, v.meta.GradientDeltaZ
}

// Len returns the number of voxels held, zero without a buffer
func (v *Volume) Len() int { return len(v.voxels) }

// HasVoxels reports whether the volume owns a buffer
func (v *Volume) HasVoxels() bool { return v.voxels != nil }

// Location reports where the voxel buffer is allocated
func (v *Volume) Location() Location { return v.store().Location() }

func (v *Volume) store() Storage {
	if v.storage == nil {
		v.storage = HostStorage{}
	}
	return v.storage
}

func (v *Volume) offset(xyz [3]int) int {
	return xyz[2]*v.resolution[0]*v.resolution[1] + xyz[1]*v.resolution[0] + xyz[0]
}

func clampInt(x, lo, hi int) int {
	if x > hi {
		x = hi
	}
	if x < lo {
		x = lo
	}
	return x
}

// truncate converts a voxel-space coordinate to an index, keeping NaN and
// huge values from overflowing the int conversion. The result is clamped
// again by SampleByIndex.
func truncate(f float32, res int) int {
	if f != f || f < 0 {
		return 0
	}
	if f >= float32(res) {
		return res
	}
	return int(f)
}
