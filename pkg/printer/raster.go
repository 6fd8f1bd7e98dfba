package printer

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"
)

// Logo geometry and ink threshold used on receipts.
const (
	LogoWidth     = 144
	LogoHeight    = 72
	LogoThreshold = 150
)

//go:embed assets/logo.png
var defaultLogo []byte

// Raster is a packed 1-bit image, most significant bit first, one padded
// row of WidthBytes bytes per scanline.
type Raster struct {
	WidthBytes int
	Height     int
	Data       []byte
}

// Header returns the GS v 0 preamble for the raster with little-endian
// byte-width and height.
func (r *Raster) Header() []byte {
	return []byte{
		GS, 'v', '0', 0x00,
		byte(r.WidthBytes & 0xff), byte((r.WidthBytes >> 8) & 0xff),
		byte(r.Height & 0xff), byte((r.Height >> 8) & 0xff),
	}
}

// Rasterize scales src to width x height by nearest-neighbor sampling at
// pixel centers and thresholds it to one bit per pixel. A pixel is inked when
// it is mostly opaque and darker than threshold.
func Rasterize(src image.Image, width, height int, threshold float64) *Raster {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	bytesPerRow := (width + 7) / 8

	r := &Raster{
		WidthBytes: bytesPerRow,
		Height:     height,
		Data:       make([]byte, bytesPerRow*height),
	}
	if srcW == 0 || srcH == 0 {
		return r
	}

	offset := 0
	for y := 0; y < height; y++ {
		srcY := sampleIndex(y, height, srcH)
		for xByte := 0; xByte < bytesPerRow; xByte++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				x := xByte*8 + bit
				if x >= width {
					continue
				}
				srcX := sampleIndex(x, width, srcW)
				c := color.NRGBAModel.Convert(src.At(bounds.Min.X+srcX, bounds.Min.Y+srcY)).(color.NRGBA)
				lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
				if c.A > 128 && lum < threshold {
					b |= 0x80 >> uint(bit)
				}
			}
			r.Data[offset] = b
			offset++
		}
	}
	return r
}

// sampleIndex maps destination index i of dst onto a source axis of length
// src, clamped to the last source index.
func sampleIndex(i, dst, src int) int {
	s := (2*i + 1) * src / (2 * dst)
	if s > src-1 {
		s = src - 1
	}
	return s
}

// DecodeLogo decodes an image and rasterizes it at logo size.
func DecodeLogo(data []byte) (*Raster, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("printer: failed to decode logo: %w", err)
	}
	return Rasterize(img, LogoWidth, LogoHeight, LogoThreshold), nil
}

// LoadLogo rasterizes the image at path, or the bundled logo when path is empty.
func LoadLogo(path string) (*Raster, error) {
	if path == "" {
		return DecodeLogo(defaultLogo)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("printer: failed to read logo %s: %w", path, err)
	}
	return DecodeLogo(data)
}
