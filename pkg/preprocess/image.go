package preprocess

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// ImageTransformer resizes images to a fixed grayscale resolution and
// scales intensities to [0,1]. Image support is partial: rows must carry the
// encoded bytes in a single column.
type ImageTransformer struct {
	Column       string
	Width        int
	Height       int
	FeatureNames []string
}

func fitImage(column string) *ImageTransformer {
	t := &ImageTransformer{Column: column, Width: 32, Height: 32}
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			t.FeatureNames = append(t.FeatureNames, fmt.Sprintf("px_%d_%d", y, x))
		}
	}
	return t
}

// Transform decodes, resizes, and flattens each row's image cell.
func (t *ImageTransformer) Transform(rows []map[string]any) ([][]float64, error) {
	X := make([][]float64, len(rows))
	for i, row := range rows {
		data, err := imageBytes(row[t.Column])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to decode image: %w", i, err)
		}
		X[i] = t.flatten(img)
	}
	return X, nil
}

func imageBytes(v any) ([]byte, error) {
	switch data := v.(type) {
	case []byte:
		return data, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("image cell is not valid base64: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("image cell must be bytes or base64 text, got %T", v)
	}
}

// flatten resamples with nearest neighbour onto the fixed grid and converts
// to normalized grayscale.
func (t *ImageTransformer) flatten(img image.Image) []float64 {
	bounds := img.Bounds()
	out := make([]float64, 0, t.Width*t.Height)
	for y := 0; y < t.Height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/t.Height
		for x := 0; x < t.Width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/t.Width
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			out = append(out, gray)
		}
	}
	return out
}
