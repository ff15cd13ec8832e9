package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ParseBounds parses a "latMin,lonMin,latMax,lonMax" bounding box.
func ParseBounds(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box %q: want latMin,lonMin,latMax,lonMax", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounding box %q: %w", s, err)
		}
		v[i] = f
	}

	latMin, lonMin, latMax, lonMax := v[0], v[1], v[2], v[3]
	if latMin < -90 || latMax > 90 || lonMin < -180 || lonMax > 180 {
		return orb.Bound{}, fmt.Errorf("bounding box %q: coordinates out of range", s)
	}
	if latMin > latMax || lonMin > lonMax {
		return orb.Bound{}, fmt.Errorf("bounding box %q: min exceeds max", s)
	}

	return orb.Bound{
		Min: orb.Point{lonMin, latMin},
		Max: orb.Point{lonMax, latMax},
	}, nil
}

// FormatBounds renders b in the "latMin,lonMin,latMax,lonMax" form.
func FormatBounds(b orb.Bound) string {
	return strings.Join([]string{
		formatFloat(b.Min.Lat()),
		formatFloat(b.Min.Lon()),
		formatFloat(b.Max.Lat()),
		formatFloat(b.Max.Lon()),
	}, ",")
}
