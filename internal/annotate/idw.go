package annotate

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DistanceFloor is the minimum distance, in meters, used when weighting a
// neighbor. It keeps the weight finite when a measurement coincides exactly
// with the GPS point; with a single neighbor the interpolated value is the
// neighbor's value for any floor.
const DistanceFloor = 1.0

// Interpolation is the IDW reduction of one space-time cylinder: the weighted
// residual vector plus the diagnostic statistics carried into the result
// table. An empty cylinder yields TotalPoints 0 and NaN everywhere else.
type Interpolation struct {
	ResN        float64
	ResE        float64
	ResC        float64
	TotalPoints int
	MinDistance float64
	AvgDistance float64
	Kp          float64
}

// Interpolate reduces a cylinder to a single residual estimate. Each of the
// three channels is weighted independently by 1/distance (floored). The
// summation follows the cylinder's fixed ordering, so identical cylinders
// produce bit-identical results on every run and platform. Kp is taken from
// the single nearest-in-time neighbor, ties resolved by cylinder order.
func Interpolate(cyl []Neighbor) Interpolation {
	if len(cyl) == 0 {
		nan := math.NaN()
		return Interpolation{
			ResN: nan, ResE: nan, ResC: nan,
			TotalPoints: 0,
			MinDistance: nan, AvgDistance: nan, Kp: nan,
		}
	}

	var sumW, sumN, sumE, sumC float64
	distances := make([]float64, len(cyl))

	nearest := 0
	for i, nb := range cyl {
		distances[i] = nb.Distance

		d := nb.Distance
		if d < DistanceFloor {
			d = DistanceFloor
		}
		w := 1.0 / d
		sumW += w
		sumN += w * nb.Meas.ResN
		sumE += w * nb.Meas.ResE
		sumC += w * nb.Meas.ResC

		if math.Abs(nb.DT) < math.Abs(cyl[nearest].DT) {
			nearest = i
		}
	}

	return Interpolation{
		ResN:        sumN / sumW,
		ResE:        sumE / sumW,
		ResC:        sumC / sumW,
		TotalPoints: len(cyl),
		MinDistance: floats.Min(distances),
		AvgDistance: stat.Mean(distances, nil),
		Kp:          cyl[nearest].Meas.Kp,
	}
}
