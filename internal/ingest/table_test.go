package ingest

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable_ScenarioSingleStation(t *testing.T) {
	body := []byte(`{"data":[{"lat":28.5,"lon":77.0,"aqi":"55","station":{"name":"S1"}}]}`)
	var payload struct {
		Data []struct {
			Lat     float64         `json:"lat"`
			Lon     float64         `json:"lon"`
			AQI     json.RawMessage `json:"aqi"`
			Station struct {
				Name string `json:"name"`
			} `json:"station"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))

	var raw []RawStation
	for _, d := range payload.Data {
		raw = append(raw, RawStation{Lat: d.Lat, Lon: d.Lon, AQI: d.AQI, Name: d.Station.Name})
	}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := BuildTable(raw, now)

	require.Len(t, rows, 1)
	assert.Equal(t, 28.5, rows[0].Lat)
	assert.Equal(t, 77.0, rows[0].Lon)
	require.NotNil(t, rows[0].AQI)
	assert.Equal(t, 55.0, *rows[0].AQI)
	assert.Equal(t, "S1", rows[0].Name)
	assert.Equal(t, now, rows[0].Timestamp)
}

func TestBuildTable_SharedTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := []RawStation{
		{Lat: 1, Lon: 2, AQI: json.RawMessage(`12`), Name: "a"},
		{Lat: 3, Lon: 4, AQI: json.RawMessage(`"-"`), Name: "b"},
		{Lat: 5, Lon: 6, AQI: json.RawMessage(`"77"`), Name: "c"},
	}

	rows := BuildTable(raw, now)

	require.Len(t, rows, len(raw))
	for i, r := range rows {
		assert.Equal(t, now, r.Timestamp, "row %d", i)
		assert.Equal(t, raw[i].Name, r.Name)
	}
	assert.Nil(t, rows[1].AQI)
}

func TestBuildTable_Empty(t *testing.T) {
	rows := BuildTable(nil, time.Now())
	assert.Empty(t, rows)
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{name: "integer", raw: `42`, want: ptr(42.0)},
		{name: "float", raw: `42.5`, want: ptr(42.5)},
		{name: "negative", raw: `-3`, want: ptr(-3.0)},
		{name: "numeric string", raw: `"55"`, want: ptr(55.0)},
		{name: "padded numeric string", raw: `" 7 "`, want: ptr(7.0)},
		{name: "dash", raw: `"-"`},
		{name: "empty string", raw: `""`},
		{name: "word", raw: `"n/a"`},
		{name: "nan string", raw: `"NaN"`},
		{name: "inf string", raw: `"inf"`},
		{name: "null", raw: `null`},
		{name: "bool", raw: `true`},
		{name: "object", raw: `{"v":1}`},
		{name: "absent", raw: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceNumber(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.False(t, math.IsNaN(*got))
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
