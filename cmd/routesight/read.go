package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/Oculis-Navigate/go-routesight/detect/tesseract"
	"github.com/Oculis-Navigate/go-routesight/postprocess"
	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	readOut       string
	readWhitelist string
)

var readCmd = &cobra.Command{
	Use:   "read <images...>",
	Short: "Read route identifiers out of already cropped region images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  readImages,
}

func init() {
	readCmd.Flags().StringVar(&readOut, "out", "",
		"write results to this file instead of stdout")
	readCmd.Flags().StringVar(&readWhitelist, "whitelist",
		tesseract.DefaultWhitelist,
		"characters the symbol reader may produce")

	rootCmd.AddCommand(readCmd)
}

func readImages(cmd *cobra.Command, args []string) error {

	poolSize := routesight.DefaultPoolSize()

	pool, err := routesight.NewDetectorPool(poolSize,
		func() (routesight.Detector, error) {
			return tesseract.NewReader(tesseract.Params{
				Whitelist: readWhitelist,
			})
		})

	if err != nil {
		return fmt.Errorf("failed to create symbol readers: %w", err)
	}

	defer pool.Close()

	stitcher := postprocess.NewStitcher(postprocess.StitchParams{
		MinConfidence: params.MinConfidence,
	})

	// each image is treated as an already cropped region, so fragments
	// keep their own coordinate space
	region := routesight.NormalizedBox{X: 0, Y: 0, Width: 1, Height: 1}

	bar := progressbar.Default(int64(len(args)), "reading")

	results := make([]string, len(args))

	var mu sync.Mutex

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(poolSize)

	for i, file := range args {
		g.Go(func() error {

			defer bar.Add(1)

			read, err := readOne(ctx, pool, stitcher, region, file)

			line := fmt.Sprintf("%s\t%s\t%.2f", file, read.Text, read.Score)

			if err != nil {
				line = fmt.Sprintf("%s\terror: %v", file, err)
			}

			mu.Lock()
			results[i] = line
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	output := strings.Join(results, "\n") + "\n"

	if readOut != "" {
		return os.WriteFile(readOut, []byte(output), 0644)
	}

	fmt.Print(output)

	return nil
}

// readOne loads an image file and runs the symbol reader and stitcher
// over it
func readOne(ctx context.Context, pool *routesight.DetectorPool,
	stitcher *postprocess.Stitcher, region routesight.NormalizedBox,
	file string) (postprocess.Read, error) {

	img, err := imaging.Open(file)

	if err != nil {
		return postprocess.Read{}, fmt.Errorf("failed to open image: %w", err)
	}

	buf := routesight.FromImage(img)

	if buf == nil {
		return postprocess.Read{}, fmt.Errorf("image has no pixels")
	}

	frags, err := pool.Detect(ctx, buf)

	if err != nil {
		return postprocess.Read{}, fmt.Errorf("symbol read failed: %w", err)
	}

	return stitcher.Stitch(frags, region), nil
}
