package volume

import (
	"context"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// GradientAt estimates the gradient of the raw data at p by central
// differences, stepping by the volume's GradientDelta vectors.
func (v *Volume) GradientAt(p mgl32.Vec3) mgl32.Vec3 {
	dx, dy, dz := v.GradientDelta()
	step := dx[0]
	if step <= 0 || step != step {
		return mgl32.Vec3{}
	}

	diff := func(d mgl32.Vec3) float32 {
		return float32(v.SampleByPosition(p.Add(d))) - float32(v.SampleByPosition(p.Sub(d)))
	}
	return mgl32.Vec3{diff(dx), diff(dy), diff(dz)}.Mul(0.5 / step)
}

// VoxelCenter returns the physical-space centre of voxel xyz
func (v *Volume) VoxelCenter(xyz [3]int) mgl32.Vec3 {
	var p mgl32.Vec3
	for i := 0; i < 3; i++ {
		p[i] = v.meta.MinAABB[i] + (float32(xyz[i])+0.5)*v.meta.Spacing[i]
	}
	return p
}

// ComputeGradientMagnitudeRange evaluates the gradient magnitude at every
// voxel centre and returns its minimum and maximum. Z slabs are spread over
// workers goroutines (runtime.NumCPU when workers <= 0). The volume is only
// read, so it can be shared with other samplers while this runs.
//
// The result is typically stored in v.GradientMagnitudeRange by the caller.
// An empty volume yields [0, 0]; the only error is ctx's.
func ComputeGradientMagnitudeRange(ctx context.Context, v *Volume, workers int) ([2]float32, error) {
	res := v.Resolution()
	if !v.HasVoxels() || VoxelCount(res) == 0 {
		return [2]float32{}, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	slabMin := make([]float64, res[2])
	slabMax := make([]float64, res[2])

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for z := 0; z < res[2]; z++ {
		z := z // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			mags := make([]float64, res[0]*res[1])
			for y := 0; y < res[1]; y++ {
				for x := 0; x < res[0]; x++ {
					grad := v.GradientAt(v.VoxelCenter([3]int{x, y, z}))
					mags[y*res[0]+x] = float64(grad.Len())
				}
			}

			slabMin[z] = floats.Min(mags)
			slabMax[z] = floats.Max(mags)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return [2]float32{}, err
	}

	return [2]float32{float32(floats.Min(slabMin)), float32(floats.Max(slabMax))}, nil
}
