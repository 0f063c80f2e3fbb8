package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelcore/internal/models"
	"voxelcore/pkg/config"
	"voxelcore/pkg/volume"
	"voxelcore/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "voxelcore.yaml", "YAML configuration file (defaults are used if missing)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	numCores := flag.Int("cores", 0, "Number of CPU cores for preprocessing (overrides config when > 0)")
	extractSlices := flag.Bool("extract-slices", false, "Save classified slices along the configured axes")
	slicesDir := flag.String("slices-dir", "", "Directory to save extracted slices (overrides config)")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *slicesDir != "" {
		cfg.Output.SlicesDir = *slicesDir
	}
	if *extractSlices {
		cfg.Output.SaveSlices = true
	}

	fmt.Println("================================")
	fmt.Println("VOXELCORE: VOLUME METADATA AND TRANSFER FUNCTION CLASSIFICATION")
	fmt.Println("================================")

	// Step 1: generate the raw data set
	fmt.Printf("Step 1: Generating %s phantom...\n", cfg.Phantom.Kind)
	src, err := models.NewPhantom(
		models.PhantomKind(cfg.Phantom.Kind),
		cfg.Volume.Resolution,
		cfg.Volume.Spacing,
		cfg.Phantom.Radius,
		cfg.Phantom.Background,
		cfg.Phantom.Foreground,
	)
	if err != nil {
		log.Fatalf("Failed to generate phantom: %v", err)
	}
	src.NormalizeSize = cfg.Volume.NormalizeSize

	// Step 2: build the volume; it owns a private copy of the samples
	fmt.Println("Step 2: Building volume...")
	vol := volume.New(src.Resolution, mgl32.Vec3(src.Spacing), src.NormalizeSize, src.Voxels,
		volume.WithStorage(cfg.Storage()))
	defer vol.Release()
	printMetadata(vol)

	// Step 3: preprocessing
	fmt.Println("Step 3: Estimating gradient magnitude range...")
	startTime := time.Now()
	gradRange, err := volume.ComputeGradientMagnitudeRange(context.Background(), vol, cfg.Processing.NumCores)
	if err != nil {
		log.Fatalf("Gradient preprocessing failed: %v", err)
	}
	vol.GradientMagnitudeRange = gradRange
	fmt.Printf("Gradient magnitude range: [%.3f, %.3f] (%.2f ms on %d cores)\n",
		gradRange[0], gradRange[1], float64(time.Since(startTime).Microseconds())/1000, cfg.Processing.NumCores)

	if lo, hi, ok := volume.IntensityRange(vol); ok {
		fmt.Printf("Intensity range: [%d, %d], mean %.2f\n", lo, hi, volume.Mean(vol))
	}
	if cfg.Output.Verbose {
		printHistogram(volume.ComputeHistogram(vol, cfg.Processing.HistogramBins))
	}

	// Step 4: transfer function
	fmt.Println("Step 4: Building transfer function...")
	cm := cfg.ColorMap()
	fmt.Printf("Opacity nodes after canonicalization: %d (of %d configured)\n",
		cm.Opacity.Count(), len(cfg.Transfer.Nodes))

	center := vol.SampleByPosition(mgl32.Vec3{})
	rgba := cm.Evaluate(float32(center))
	fmt.Printf("Centre voxel %d classifies to RGBA (%.3f, %.3f, %.3f, %.3f)\n",
		center, rgba[0], rgba[1], rgba[2], rgba[3])

	// Step 5: optional slice output
	if cfg.Output.SaveSlices {
		fmt.Println("\nStep 5: Extracting classified slices...")
		viewer := visualization.NewViewer(vol, &cm.Opacity)

		for _, axis := range cfg.Output.Axes {
			axisDir := filepath.Join(cfg.Output.SlicesDir, strings.ToLower(axis))
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}

		fmt.Println("Slice extraction completed!")
	}

}

// printMetadata shows the derived geometry of the volume
func printMetadata(vol *volume.Volume) {
	m := vol.Metadata()
	res := vol.Resolution()

	fmt.Printf("Resolution:     %d x %d x %d (%d voxels, %s storage)\n", res[0], res[1], res[2], vol.Len(), vol.Location())
	fmt.Printf("Normalized:     %v\n", vol.NormalizeSize())
	fmt.Printf("Spacing:        %v\n", m.Spacing)
	fmt.Printf("Size:           %v\n", m.Size)
	fmt.Printf("AABB:           %v .. %v\n", m.MinAABB, m.MaxAABB)
	fmt.Printf("Gradient delta: %v\n", m.GradientDeltaX[0])
}

// printHistogram draws a text histogram of voxel values
func printHistogram(h volume.Histogram) {
	if len(h.Counts) == 0 {
		return
	}

	var peak float64
	for _, c := range h.Counts {
		peak = max(peak, c)
	}

	fmt.Println("Intensity histogram:")
	for i, c := range h.Counts {
		bar := 0
		if peak > 0 {
			bar = int(40 * c / peak)
		}
		fmt.Printf("  [%7.0f, %7.0f) %8.0f %s\n", h.Dividers[i], h.Dividers[i+1], c, strings.Repeat("#", bar))
	}
}
