package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBounds_RoundTrip(t *testing.T) {
	b, err := ParseBounds("28.402,76.838,28.883,77.348")
	require.NoError(t, err)

	assert.Equal(t, 28.402, b.Min.Lat())
	assert.Equal(t, 76.838, b.Min.Lon())
	assert.Equal(t, 28.883, b.Max.Lat())
	assert.Equal(t, 77.348, b.Max.Lon())
	assert.Equal(t, "28.402,76.838,28.883,77.348", FormatBounds(b))
}

func TestParseBounds_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "too few parts", in: "1,2,3"},
		{name: "not a number", in: "a,2,3,4"},
		{name: "min above max", in: "10,10,5,20"},
		{name: "latitude out of range", in: "-91,0,10,10"},
		{name: "empty", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBounds(tt.in)
			assert.Error(t, err)
		})
	}
}
