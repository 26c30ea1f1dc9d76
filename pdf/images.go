package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// importable lists the image formats pdfcpu embeds directly.
var importable = map[string]bool{
	"jpeg": true,
	"png":  true,
	"tiff": true,
	"webp": true,
}

// NormalizeImages returns paths pdfcpu can import. Images in other decodable
// formats are re-encoded as PNG into dir; the returned slice keeps input order.
func NormalizeImages(paths []string, dir string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for i, p := range paths {
		img, format, err := decodeIfForeign(p)
		if err != nil {
			return nil, err
		}
		if img == nil {
			out = append(out, p)
			continue
		}

		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		converted := filepath.Join(dir, fmt.Sprintf("%03d-%s.png", i, base))
		if err := writePNG(converted, img); err != nil {
			return nil, fmt.Errorf("failed to convert %s image %s: %w", format, p, err)
		}
		out = append(out, converted)
	}
	return out, nil
}

// decodeIfForeign returns the decoded image only when its format is not
// importable as-is.
func decodeIfForeign(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s is not a supported image: %v", ErrInvalidInput, path, err)
	}
	if importable[format] {
		return nil, format, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, format, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeJPEG flattens img onto a white background and encodes it as JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
