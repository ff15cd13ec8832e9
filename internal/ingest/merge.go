package ingest

import "github.com/paulmach/orb"

// Merge inner-joins readings and samples on exact (lat, lon).
// Samples sharing coordinates are paired with readings one-to-one in order,
// so repeated station positions never multiply rows. Readings without a
// counterpart are dropped; the number dropped is returned.
func Merge(readings []StationReading, samples []TrafficSample) ([]MergedRecord, int) {
	pending := make(map[orb.Point][]TrafficSample, len(samples))
	for _, s := range samples {
		p := s.Point()
		pending[p] = append(pending[p], s)
	}

	merged := make([]MergedRecord, 0, len(readings))
	dropped := 0
	for _, r := range readings {
		p := r.Point()
		queue := pending[p]
		if len(queue) == 0 {
			dropped++
			continue
		}
		merged = append(merged, newMergedRecord(r, queue[0]))
		pending[p] = queue[1:]
	}
	return merged, dropped
}
