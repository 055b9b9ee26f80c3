package media

import (
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// dhashSize is the edge length of the grid the difference hash is computed
// on. 32 rows of 32 horizontal comparisons pack into a 128 byte hash.
const dhashSize = 32

// ImageDimensions reads the pixel dimensions of an image file without
// decoding the full pixel data.
func ImageDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// DecodeImageFile decodes a cached image file into memory.
func DecodeImageFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DifferenceHash computes a perceptual hash of an image: the image is
// scaled down to a (dhashSize+1) x dhashSize grayscale grid and each bit
// records whether a pixel is brighter than its right neighbour. Hashes of
// visually near-identical images differ in few bits.
func DifferenceHash(img image.Image) string {
	scaled := image.NewGray(image.Rect(0, 0, dhashSize+1, dhashSize))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	bits := make([]byte, dhashSize*dhashSize/8)
	i := 0
	for y := 0; y < dhashSize; y++ {
		for x := 0; x < dhashSize; x++ {
			if scaled.GrayAt(x, y).Y > scaled.GrayAt(x+1, y).Y {
				bits[i/8] |= 1 << uint(7-i%8)
			}
			i++
		}
	}
	return hex.EncodeToString(bits)
}

// HammingDistance counts differing bits between two hex-encoded hashes of
// equal length.
func HammingDistance(a, b string) (int, error) {
	rawA, err := hex.DecodeString(a)
	if err != nil {
		return 0, fmt.Errorf("decode hash: %w", err)
	}
	rawB, err := hex.DecodeString(b)
	if err != nil {
		return 0, fmt.Errorf("decode hash: %w", err)
	}
	if len(rawA) != len(rawB) {
		return 0, fmt.Errorf("hash length mismatch: %d vs %d", len(rawA), len(rawB))
	}

	distance := 0
	for i := range rawA {
		x := rawA[i] ^ rawB[i]
		for x != 0 {
			distance++
			x &= x - 1
		}
	}
	return distance, nil
}
