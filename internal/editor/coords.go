package editor

import (
	"fmt"
	"math"
)

// Point is a pointer position in display space, relative to the image's top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the laid-out size of the displayed image, in display units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Resolution is an image's natural size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Hotspot is a source-image pixel coordinate marking where a localized edit applies.
type Hotspot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (h Hotspot) String() string {
	return fmt.Sprintf("(%d, %d)", h.X, h.Y)
}

// MapClick converts a click on a scaled image into natural-resolution pixel
// coordinates. Each axis is scaled independently, rounded to the nearest pixel
// and clamped into [0, natural-1].
func MapClick(click Point, displayed Size, natural Resolution) (Hotspot, error) {
	if !(displayed.Width > 0) || !(displayed.Height > 0) || math.IsInf(displayed.Width, 0) || math.IsInf(displayed.Height, 0) {
		return Hotspot{}, NewError(KindInvalidGeometry, OpLocalizedEdit,
			fmt.Sprintf("displayed size %gx%g is not laid out", displayed.Width, displayed.Height), nil)
	}
	if natural.Width <= 0 || natural.Height <= 0 {
		return Hotspot{}, NewError(KindInvalidGeometry, OpLocalizedEdit,
			fmt.Sprintf("natural size %dx%d is invalid", natural.Width, natural.Height), nil)
	}
	if math.IsNaN(click.X) || math.IsNaN(click.Y) || math.IsInf(click.X, 0) || math.IsInf(click.Y, 0) {
		return Hotspot{}, NewError(KindInvalidGeometry, OpLocalizedEdit, "click position is not finite", nil)
	}

	scaleX := float64(natural.Width) / displayed.Width
	scaleY := float64(natural.Height) / displayed.Height

	return Hotspot{
		X: clampAxis(math.Round(click.X*scaleX), natural.Width),
		Y: clampAxis(math.Round(click.Y*scaleY), natural.Height),
	}, nil
}

func clampAxis(v float64, size int) int {
	if v < 0 {
		return 0
	}
	if v > float64(size-1) {
		return size - 1
	}
	return int(v)
}
