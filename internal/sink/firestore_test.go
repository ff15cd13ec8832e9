package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFirestoreRecord(t *testing.T) {
	batch := testBatch()

	full := toFirestoreRecord(batch.CycleID.String(), batch.Records[0])
	assert.Equal(t, batch.CycleID.String(), full.CycleID)
	assert.Equal(t, "2024-05-01T10:00:00Z", full.Timestamp)
	assert.Equal(t, 55.0, *full.AQI)
	assert.Equal(t, "FRC2", *full.FRC)

	empty := toFirestoreRecord("c", batch.Records[1])
	assert.Nil(t, empty.AQI)
	assert.Nil(t, empty.CurrentSpeed)
	assert.Nil(t, empty.RoadClosure)
	assert.Equal(t, "S2", empty.Name)
}
