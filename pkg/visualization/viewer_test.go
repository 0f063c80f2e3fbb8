package visualization

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/tiff"

	"voxelcore/pkg/transfer"
	"voxelcore/pkg/volume"
)

// createTestVolume builds a volume where every voxel holds x + 10*y + 100*z
func createTestVolume(width, height, depth int) *volume.Volume {
	data := make([]uint16, width*height*depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[z*width*height+y*width+x] = uint16(x + 10*y + 100*z)
			}
		}
	}
	return volume.New([3]int{width, height, depth}, mgl32.Vec3{1, 1, 1}, false, data)
}

// rampFunction maps [0, max] linearly onto [0, 1]
func rampFunction(max float32) *transfer.Function {
	f := &transfer.Function{}
	f.AddNode(0, 0)
	f.AddNode(max, 1)
	f.Canonicalize()
	return f
}

// TestExtractSliceRaw verifies slice orientation without a classifier
func TestExtractSliceRaw(t *testing.T) {
	width, height, depth := 6, 5, 4
	viewer := NewViewer(createTestVolume(width, height, depth), nil)

	testCases := []struct {
		axis          string
		position      int
		wantW, wantH  int
		pixel         [2]int
		expectedValue uint16
	}{
		{"z", 2, width, height, [2]int{3, 4}, 3 + 40 + 200},
		{"x", 5, depth, height, [2]int{1, 2}, 5 + 20 + 100},
		{"y", 1, width, depth, [2]int{4, 3}, 4 + 10 + 300},
	}

	for _, tc := range testCases {
		img, err := viewer.ExtractSlice(tc.axis, tc.position)
		if err != nil {
			t.Fatalf("Failed to extract %s slice at %d: %v", tc.axis, tc.position, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != tc.wantW || bounds.Dy() != tc.wantH {
			t.Errorf("Expected %s slice dimensions %dx%d, got %dx%d",
				tc.axis, tc.wantW, tc.wantH, bounds.Dx(), bounds.Dy())
		}

		got := img.Gray16At(tc.pixel[0], tc.pixel[1]).Y
		if got != tc.expectedValue {
			t.Errorf("%s slice pixel %v: expected %d, got %d", tc.axis, tc.pixel, tc.expectedValue, got)
		}
	}
}

// TestExtractSliceClassified verifies the transfer function is applied
func TestExtractSliceClassified(t *testing.T) {
	viewer := NewViewer(createTestVolume(4, 4, 4), rampFunction(333))

	img, err := viewer.ExtractSlice("z", 3)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	// voxel (3, 3, 3) holds 333, the top of the ramp
	if got := img.Gray16At(3, 3).Y; got != 65535 {
		t.Errorf("Expected full intensity at (3,3), got %d", got)
	}

	// voxel (0, 0, 3) holds 300
	want := toUint16(300.0 / 333.0)
	if got := img.Gray16At(0, 0).Y; got < want-1 || got > want+1 {
		t.Errorf("Expected ~%d at (0,0), got %d", want, got)
	}
}

// TestExtractSliceErrors verifies invalid requests are rejected
func TestExtractSliceErrors(t *testing.T) {
	viewer := NewViewer(createTestVolume(4, 4, 2), nil)

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	if _, err := viewer.ExtractSlice("z", 2); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}

	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractColorSlice verifies RGBA classification
func TestExtractColorSlice(t *testing.T) {
	viewer := NewViewer(createTestVolume(2, 2, 2), nil)

	cm := &transfer.ColorMap{}
	cm.AddNode(0, mgl32.Vec4{0, 0, 0, 0})
	cm.AddNode(111, mgl32.Vec4{1, 0, 0.5, 1})
	cm.Canonicalize()

	img, err := viewer.ExtractColorSlice("z", 1, cm)
	if err != nil {
		t.Fatalf("Failed to extract colour slice: %v", err)
	}

	c := img.NRGBA64At(1, 1)
	if c.R != 65535 || c.G != 0 || c.A != 65535 {
		t.Errorf("Expected opaque red at (1,1), got %+v", c)
	}
	if c.B < 32767 || c.B > 32768 {
		t.Errorf("Expected half blue at (1,1), got %d", c.B)
	}

	if _, err := viewer.ExtractColorSlice("w", 0, cm); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol := createTestVolume(width, height, depth)
	viewer := NewViewer(vol, nil)

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if len(region) != sizeX*sizeY*sizeZ {
		t.Fatalf("Expected region size %d, got %d", sizeX*sizeY*sizeZ, len(region))
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				got := region[z*sizeX*sizeY+y*sizeX+x]
				want := vol.SampleByIndex([3]int{startX + x, startY + y, startZ + z})
				if got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %d, got %d", x, y, z, want, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}

	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}

	if _, err := viewer.ExtractRegion(width-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSlice verifies that a saved slice decodes back losslessly
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer := NewViewer(createTestVolume(8, 8, 3), nil)
	img, err := viewer.ExtractSlice("z", 2)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "test_slice.tif")
	if err := viewer.SaveSlice(img, filename); err != nil {
		t.Fatalf("Failed to save slice: %v", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Saved file cannot be opened: %v", err)
	}
	defer file.Close()

	decoded, err := tiff.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode saved slice: %v", err)
	}

	r, _, _, _ := decoded.At(7, 7).RGBA()
	if uint16(r) != img.Gray16At(7, 7).Y {
		t.Errorf("Expected decoded value %d, got %d", img.Gray16At(7, 7).Y, r)
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 5, 3
	viewer := NewViewer(createTestVolume(width, height, depth), rampFunction(500))

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.tif", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
