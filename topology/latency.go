package topology

import (
	"time"

	"github.com/montanaflynn/stats"
)

// medianRTT returns the median round-trip time across every server that
// currently has one, for use in periodic diagnostic logging. A single
// slow outlier skews an average far more than it skews a median, which is
// what operators actually want to see when eyeballing deployment health.
func (t *Topology) medianRTT() (time.Duration, bool) {
	desc := t.Description()
	var samples []float64
	for _, s := range desc.Servers() {
		if s.AverageRTTSet {
			samples = append(samples, float64(s.AverageRTT))
		}
	}
	if len(samples) == 0 {
		return 0, false
	}

	median, err := stats.Median(samples)
	if err != nil {
		return 0, false
	}
	return time.Duration(median), true
}
