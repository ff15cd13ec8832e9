package ingest

import (
	"strconv"
	"time"
)

// TimestampLayout is the text form of capture timestamps in every sink.
const TimestampLayout = time.RFC3339

// Header lists the column names in cell order.
func Header() []string {
	return []string{
		"lat", "lon", "aqi", "name", "timestamp",
		"frc", "currentSpeed", "freeFlowSpeed", "currentTravelTime",
		"freeFlowTravelTime", "confidence", "roadClosure",
	}
}

// Cells flattens the record into ordered cell text.
// Timestamps become RFC 3339 text and missing values become "".
func (m MergedRecord) Cells() []string {
	return []string{
		formatFloat(m.Lat),
		formatFloat(m.Lon),
		formatOptFloat(m.AQI),
		m.Name,
		m.Timestamp.Format(TimestampLayout),
		formatOptString(m.FRC),
		formatOptFloat(m.CurrentSpeed),
		formatOptFloat(m.FreeFlowSpeed),
		formatOptFloat(m.CurrentTravelTime),
		formatOptFloat(m.FreeFlowTravelTime),
		formatOptFloat(m.Confidence),
		formatOptBool(m.RoadClosure),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptBool(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "True"
	default:
		return "False"
	}
}
