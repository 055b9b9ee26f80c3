package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// checkerImage produces alternating bright and dark blocks, so the
// difference hash has both set and unset bits.
func checkerImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint8
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func TestImageDimensions(t *testing.T) {
	t.Parallel()

	path := writePNG(t, checkerImage(64, 48))
	width, height, err := ImageDimensions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if width != 64 || height != 48 {
		t.Fatalf("unexpected dimensions: %dx%d", width, height)
	}
}

func TestDifferenceHashIsDeterministic(t *testing.T) {
	t.Parallel()

	img := checkerImage(64, 64)
	first := DifferenceHash(img)
	second := DifferenceHash(img)

	if first != second {
		t.Fatalf("hash is not deterministic: %s vs %s", first, second)
	}
	if len(first) != dhashSize*dhashSize/4 {
		t.Fatalf("unexpected hash length: %d", len(first))
	}
}

func TestDifferenceHashSeparatesDistinctImages(t *testing.T) {
	t.Parallel()

	checker := DifferenceHash(checkerImage(64, 64))
	flat := DifferenceHash(image.NewRGBA(image.Rect(0, 0, 64, 64)))

	distance, err := HammingDistance(checker, flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if distance == 0 {
		t.Fatalf("expected distinct images to produce different hashes")
	}
}

func TestHammingDistance(t *testing.T) {
	t.Parallel()

	distance, err := HammingDistance("ff00", "0000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if distance != 8 {
		t.Fatalf("expected distance 8, got %d", distance)
	}

	if _, err := HammingDistance("ff", "ff00"); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := HammingDistance("zz", "ff"); err == nil {
		t.Fatalf("expected hex decode error")
	}
}
