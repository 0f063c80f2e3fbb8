package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"voxelcore/pkg/transfer"
	"voxelcore/pkg/volume"
)

// Classifier maps a raw voxel value to a scalar in [0, 1].
// *transfer.Function satisfies it.
type Classifier interface {
	Evaluate(position float32) float32
}

// Viewer extracts axis-aligned slices from a volume and classifies them
// through a transfer function for inspection.
type Viewer struct {
	// vol is the volume being inspected
	vol *volume.Volume

	// classifier maps raw values to intensities; nil shows raw values
	classifier Classifier
}

// NewViewer creates a new slice viewer. classifier may be nil.
func NewViewer(vol *volume.Volume, classifier Classifier) *Viewer {
	return &Viewer{
		vol:        vol,
		classifier: classifier,
	}
}

// planeSize returns the image size of a slice along axis and the number of
// slices available
func (v *Viewer) planeSize(axis string) (w, h, count int, err error) {
	res := v.vol.Resolution()
	switch axis {
	case "x", "X":
		return res[2], res[1], res[0], nil
	case "y", "Y":
		return res[0], res[2], res[1], nil
	case "z", "Z":
		return res[0], res[1], res[2], nil
	default:
		return 0, 0, 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// voxelAt maps image pixel (i, j) of slice position along axis to a voxel
func voxelAt(axis string, position, i, j int) [3]int {
	switch axis {
	case "x", "X":
		return [3]int{position, j, i}
	case "y", "Y":
		return [3]int{i, position, j}
	default:
		return [3]int{i, j, position}
	}
}

// forEachPixel validates the slice request and calls fn for every pixel
func (v *Viewer) forEachPixel(axis string, position int, fn func(i, j int, raw uint16)) error {
	if position < 0 {
		return fmt.Errorf("position must be non-negative")
	}

	w, h, count, err := v.planeSize(axis)
	if err != nil {
		return err
	}
	if position >= count {
		return fmt.Errorf("position %d exceeds %s extent %d", position, axis, count)
	}

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			fn(i, j, v.vol.SampleByIndex(voxelAt(axis, position, i, j)))
		}
	}
	return nil
}

// ExtractSlice extracts a classified 16-bit grayscale slice perpendicular to
// axis at the given voxel position
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	w, h, _, err := v.planeSize(axis)
	if err != nil {
		return nil, err
	}
	img := image.NewGray16(image.Rect(0, 0, w, h))

	err = v.forEachPixel(axis, position, func(i, j int, raw uint16) {
		img.SetGray16(i, j, color.Gray16{Y: v.classify(raw)})
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ExtractColorSlice extracts a slice classified through an RGBA colour map
func (v *Viewer) ExtractColorSlice(axis string, position int, cm *transfer.ColorMap) (*image.NRGBA64, error) {
	w, h, _, err := v.planeSize(axis)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))

	err = v.forEachPixel(axis, position, func(i, j int, raw uint16) {
		c := cm.Evaluate(float32(raw))
		img.SetNRGBA64(i, j, color.NRGBA64{
			R: toUint16(c[0]),
			G: toUint16(c[1]),
			B: toUint16(c[2]),
			A: toUint16(c[3]),
		})
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ExtractRegion extracts the raw voxels of a box-shaped subregion,
// row-major with X fastest
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]uint16, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	res := v.vol.Resolution()
	if startX+sizeX > res[0] || startY+sizeY > res[1] || startZ+sizeZ > res[2] {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]uint16, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region[z*sizeX*sizeY+y*sizeX+x] = v.vol.SampleByIndex([3]int{startX + x, startY + y, startZ + z})
			}
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice as a deflate-compressed TIFF, which
// keeps all 16 bits of each sample
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	_, _, count, err := v.planeSize(axis)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < count; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.tif", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// classify maps a raw voxel to a 16-bit intensity
func (v *Viewer) classify(raw uint16) uint16 {
	if v.classifier == nil {
		return raw
	}
	return toUint16(v.classifier.Evaluate(float32(raw)))
}

// toUint16 scales a [0, 1] value to the 16-bit range, clamping outliers
func toUint16(f float32) uint16 {
	if f != f {
		return 0
	}
	return uint16(math.Max(0, math.Min(65535, math.Round(float64(f)*65535))))
}
