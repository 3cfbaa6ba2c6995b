package classify

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Preprocess decodes image bytes and converts them to a batched NHWC float
// tensor matching the model's input shape: decode, Lanczos3 resize to
// height x width, force 3 channels, scale pixel values to [0,1].
func Preprocess(data []byte, shape [3]int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	height, width := shape[0], shape[1]
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	// Batch dimension is 1; layout is NHWC.
	out := make([]float32, height*width*3)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			out[i] = float32(r) / 65535.0
			out[i+1] = float32(g) / 65535.0
			out[i+2] = float32(b) / 65535.0
			i += 3
		}
	}
	return out, nil
}
