// Package annotate implements the spatio-temporal annotation engine: the
// space-time filter that selects the satellite measurements local to a GPS
// point, the inverse-distance-weighted interpolation that reduces them to one
// residual estimate, the reference-field correction that turns residuals into
// absolute field components, the derived classical magnetic elements, and the
// chunk scheduler that runs the whole pipeline in parallel over a trajectory.
package annotate

import (
	"math"
	"time"
)

// Result is the annotation for one GPS point. The identity fields are
// bitwise-equal to the originating point's; Row joins the result back to the
// caller's original columns. Missing magnetic values are NaN, never zero, and
// results are immutable once the scheduler hands them out.
type Result struct {
	Latitude   float64
	Longitude  float64
	AltitudeKm float64
	Time       time.Time
	Row        int

	// Interpolated residuals and cylinder diagnostics.
	ResN        float64
	ResE        float64
	ResC        float64
	TotalPoints int
	MinDistance float64 // meters
	AvgDistance float64 // meters
	Kp          float64 // Kp of the nearest-in-time measurement used

	// Absolute field at the GPS point (model + residual), geodetic NEC.
	N float64
	E float64
	C float64

	// Model-only field, kept separately for quality auditing.
	NObs float64
	EObs float64
	CObs float64

	// Derived elements.
	H float64 // horizontal intensity, nT
	D float64 // declination, degrees, (-180, 180]
	I float64 // inclination, degrees
	F float64 // total intensity, nT
}

// HasField reports whether the absolute field is present for this result.
func (r *Result) HasField() bool {
	return !math.IsNaN(r.N) && !math.IsNaN(r.E) && !math.IsNaN(r.C)
}
