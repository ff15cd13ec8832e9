package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// BuildTable converts raw stations into readings for one cycle.
// All rows share the same timestamp; AQI values that are not numeric become missing.
func BuildTable(stations []RawStation, now time.Time) []StationReading {
	readings := make([]StationReading, 0, len(stations))
	for _, st := range stations {
		readings = append(readings, StationReading{
			Lat:       st.Lat,
			Lon:       st.Lon,
			AQI:       CoerceNumber(st.AQI),
			Name:      st.Name,
			Timestamp: now,
		})
	}
	return readings
}

// CoerceNumber parses a JSON number or numeric string.
// Anything else (null, "-", NaN, infinities, objects) yields nil.
func CoerceNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
		text = strings.TrimSpace(text)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
