package editor

import (
	"errors"
	"math"
	"testing"
)

func TestMapClick(t *testing.T) {
	tests := []struct {
		name      string
		click     Point
		displayed Size
		natural   Resolution
		want      Hotspot
	}{
		{"identity", Point{10, 20}, Size{100, 100}, Resolution{100, 100}, Hotspot{10, 20}},
		{"downscaled display", Point{50, 25}, Size{500, 250}, Resolution{2000, 1000}, Hotspot{200, 100}},
		{"independent axes", Point{10, 10}, Size{100, 50}, Resolution{1000, 1000}, Hotspot{100, 200}},
		{"rounds to nearest", Point{1.3, 1.6}, Size{10, 10}, Resolution{15, 15}, Hotspot{2, 2}},
		{"clamps far edge", Point{100, 100}, Size{100, 100}, Resolution{100, 100}, Hotspot{99, 99}},
		{"clamps negative", Point{-5, -1}, Size{100, 100}, Resolution{100, 100}, Hotspot{0, 0}},
		{"clamps past edge", Point{150, 10}, Size{100, 100}, Resolution{400, 400}, Hotspot{399, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapClick(tt.click, tt.displayed, tt.natural)
			if err != nil {
				t.Fatalf("MapClick() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MapClick() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapClickInvalidGeometry(t *testing.T) {
	tests := []struct {
		name      string
		click     Point
		displayed Size
		natural   Resolution
	}{
		{"zero width", Point{1, 1}, Size{0, 100}, Resolution{100, 100}},
		{"zero height", Point{1, 1}, Size{100, 0}, Resolution{100, 100}},
		{"negative display", Point{1, 1}, Size{-10, 100}, Resolution{100, 100}},
		{"NaN display", Point{1, 1}, Size{math.NaN(), 100}, Resolution{100, 100}},
		{"zero natural", Point{1, 1}, Size{100, 100}, Resolution{0, 100}},
		{"NaN click", Point{math.NaN(), 1}, Size{100, 100}, Resolution{100, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapClick(tt.click, tt.displayed, tt.natural)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("MapClick() error = %v, want InvalidGeometry", err)
			}
		})
	}
}

func TestMapClickIdempotentAndScaleInvariant(t *testing.T) {
	natural := Resolution{Width: 1920, Height: 1080}
	clicks := []Point{{0, 0}, {17.25, 3.5}, {333, 199.75}, {639.9, 359.9}}

	for _, c := range clicks {
		first, err := MapClick(c, Size{640, 360}, natural)
		if err != nil {
			t.Fatalf("MapClick: %v", err)
		}
		again, _ := MapClick(c, Size{640, 360}, natural)
		if first != again {
			t.Errorf("MapClick(%v) not idempotent: %v vs %v", c, first, again)
		}

		doubled, _ := MapClick(Point{c.X * 2, c.Y * 2}, Size{1280, 720}, natural)
		if first != doubled {
			t.Errorf("MapClick(%v) not scale invariant: %v vs %v", c, first, doubled)
		}
	}
}
