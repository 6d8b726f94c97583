// Package assets loads the slide images shown by the demo and provides the fullscreen quad mesh
// every pass draws with.
package assets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Slide dimensions. Every slide is scaled to the offscreen target size.
const (
	SlideWidth  = 1920
	SlideHeight = 1080
)

// ErrTooFewSlides is returned when a directory holds fewer slides than the timeline needs.
var ErrTooFewSlides = errors.New("assets: too few slides")

var slideExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// SlidePaths lists the image files in dir sorted by name.
//
// Parameters:
//   - dir: the slide directory
//
// Returns:
//   - []string: the slide paths in display order
//   - error: an error if the directory cannot be read
func SlidePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !slideExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadSlides decodes every slide in dir concurrently and scales each to SlideWidth x SlideHeight.
//
// Parameters:
//   - dir: the slide directory
//   - min: the minimum number of slides required
//
// Returns:
//   - []common.TextureStagingData: RGBA slides in name order
//   - error: ErrTooFewSlides, or the first read or decode failure
func LoadSlides(dir string, min int) ([]common.TextureStagingData, error) {
	paths, err := SlidePaths(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) < min {
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrTooFewSlides, dir, len(paths), min)
	}

	slides := make([]common.TextureStagingData, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			img, err := decodeFile(path)
			if err != nil {
				return err
			}
			slides[i] = stage(filepath.Base(path), img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Str("dir", dir).Int("count", len(slides)).Msg("slides loaded")
	return slides, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("format", format).Stringer("bounds", img.Bounds()).Msg("slide decoded")
	return img, nil
}

// ScaleToSlide resamples img to the slide size with Catmull-Rom filtering.
func ScaleToSlide(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, SlideWidth, SlideHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func stage(label string, img image.Image) common.TextureStagingData {
	rgba := ScaleToSlide(img)
	return common.TextureStagingData{
		Label:  label,
		Pixels: rgba.Pix,
		Width:  SlideWidth,
		Height: SlideHeight,
	}
}

// GenerateSlides builds n procedural slides for running without a slide directory. Each slide is a
// diagonal gradient with its own hue and a band whose height encodes the slide index.
//
// Parameters:
//   - n: the number of slides
//
// Returns:
//   - []common.TextureStagingData: the generated slides
func GenerateSlides(n int) []common.TextureStagingData {
	slides := make([]common.TextureStagingData, n)
	var g errgroup.Group
	for i := range slides {
		g.Go(func() error {
			slides[i] = stage(fmt.Sprintf("generated-%02d", i), gradient(i, n))
			return nil
		})
	}
	_ = g.Wait()
	return slides
}

// gradient renders at a quarter of the slide size; stage scales it up.
func gradient(index, count int) image.Image {
	const w, h = SlideWidth / 4, SlideHeight / 4
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	hue := float64(index) / math.Max(float64(count), 1)
	band := h * (index + 1) / (count + 1)
	for y := range h {
		for x := range w {
			t := (float64(x)/w + float64(y)/h) / 2
			r, g, b := hueToRGB(hue + t*0.15)
			shade := 0.35 + 0.65*(1-t)
			if y > h-band && x < w/16 {
				shade = 1
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(r * shade * 255),
				G: uint8(g * shade * 255),
				B: uint8(b * shade * 255),
				A: 255,
			})
		}
	}
	return img
}

func hueToRGB(h float64) (float64, float64, float64) {
	h -= math.Floor(h)
	channel := func(offset float64) float64 {
		v := math.Abs(math.Mod(h*6+offset, 6)-3) - 1
		return math.Min(math.Max(v, 0), 1)
	}
	return channel(0), channel(4), channel(2)
}
