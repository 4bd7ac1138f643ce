package annotate

import (
	"sort"
	"time"

	"github.com/MagGeo/MagGeo/internal/geo"
	"github.com/MagGeo/MagGeo/internal/swarm"
	"github.com/MagGeo/MagGeo/internal/track"
)

// TimeWindow is the temporal half-width of the space-time cylinder. Like the
// search-radius curve it is an empirical constant from the original study,
// pinned for reproducibility.
const TimeWindow = 4 * time.Hour

// Neighbor is one satellite measurement inside a GPS point's space-time
// cylinder, with its precomputed great-circle distance and time offset.
type Neighbor struct {
	Meas     swarm.Measurement
	Distance float64 // meters to the GPS point
	DT       float64 // seconds, gps minus measurement, signed
}

// Cylinder returns the measurements within SearchRadius(pt.Latitude) and
// ±window of a GPS point, pooled across the three satellites. The slice is
// ordered satellite A, B, C and by time within each satellite, which fixes
// the summation order of every downstream reduction. An empty cylinder is a
// normal outcome: the caller receives an empty slice, not an error.
//
// The membership test is symmetric across satellites (all three streams are
// pooled) and asymmetric in time: nothing requires both past and future
// neighbors to exist.
func Cylinder(pt track.Point, pool *swarm.Pool, window time.Duration) []Neighbor {
	radius := geo.SearchRadius(pt.Latitude)
	half := int64(window / time.Second)
	lo, hi := pt.Epoch-half, pt.Epoch+half

	var out []Neighbor
	for _, sat := range swarm.Satellites {
		stream := pool.BySatellite(sat)

		// The stream is sorted by epoch; binary search the window bounds.
		first := sort.Search(len(stream), func(i int) bool { return stream[i].Epoch >= lo })
		for i := first; i < len(stream) && stream[i].Epoch <= hi; i++ {
			m := stream[i]
			d := geo.Distance(pt.Latitude, pt.Longitude, m.Latitude, m.Longitude)
			if d > radius {
				continue
			}
			out = append(out, Neighbor{
				Meas:     m,
				Distance: d,
				DT:       float64(pt.Epoch - m.Epoch),
			})
		}
	}
	return out
}
