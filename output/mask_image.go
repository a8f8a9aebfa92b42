package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/shadow"
	"github.com/fogleman/gg"
)

const legendHeight = 24

// WriteMaskPNG draws the shadow mask one image pixel per raster pixel, with a
// legend strip underneath.
func WriteMaskPNG(mask *shadow.Mask, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	width := max(mask.Width, 240)
	dc := gg.NewContext(width, mask.Height+legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			setColor(dc, mask.At(x, y))
			dc.SetPixel(x, y)
		}
	}

	lx := 4.0
	ly := float64(mask.Height) + 5
	for _, c := range []shadow.Class{shadow.Clear, shadow.Shadow, shadow.Undefined} {
		setColor(dc, c)
		dc.DrawRectangle(lx, ly, 14, 14)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(c.String(), lx+18, ly+7, 0, 0.5)
		lx += 78
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save mask image: %w", err)
	}
	return nil
}

func setColor(dc *gg.Context, c shadow.Class) {
	col := properties.ColorMap[c.String()]
	dc.SetRGB255(int(col.R), int(col.G), int(col.B))
}
