package annotate

import (
	"math"
	"time"

	"github.com/MagGeo/MagGeo/internal/geo"
	"github.com/MagGeo/MagGeo/internal/model"
	"github.com/MagGeo/MagGeo/internal/track"
)

// RotateToNEC converts a geocentric spherical field vector into the local
// geodetic North-East-Center frame at the given geodetic position. The
// geocentric axes map to NEC as N = -Theta, E = Phi, C = -Radial; the N and C
// components are then rotated through the angle between the geocentric and
// geodetic verticals using the sd/cd factors of the WGS-84 conversion.
func RotateToNEC(f model.GeocentricField, pt track.Point) (n, e, c float64) {
	_, _, sd, cd := geo.GeodeticToGeocentric(pt.AltitudeKm, 90-pt.Latitude)

	x := -f.Theta  // N in the geocentric frame
	z := -f.Radial // C in the geocentric frame

	n = x*cd + z*sd
	e = f.Phi
	c = z*cd - x*sd
	return n, e, c
}

// correctChunk fills the absolute and model-only field components of a chunk
// of results whose residual fields are already populated. The model is
// evaluated once per point (or once per chunk for batch-capable models); the
// absolute field is the rotated model value plus the interpolated residual,
// so NaN residuals propagate into NaN absolute values while the model-only
// columns stay intact for auditing.
//
// A failed per-point lookup marks that point's field components missing. A
// failed batch lookup marks the whole chunk's field components missing. In
// both cases the GPS identity and residual columns survive untouched.
func correctChunk(m model.FieldModel, pts []track.Point, results []Result) {
	fields, batchErr := evaluateModel(m, pts)

	for i := range results {
		r := &results[i]
		if batchErr != nil || fields[i] == nil {
			markFieldMissing(r)
			continue
		}

		nObs, eObs, cObs := RotateToNEC(*fields[i], pts[i])
		r.NObs, r.EObs, r.CObs = nObs, eObs, cObs
		r.N = nObs + r.ResN
		r.E = eObs + r.ResE
		r.C = cObs + r.ResC
		r.H, r.D, r.I, r.F = DerivedElements(r.N, r.E, r.C)
	}
}

// evaluateModel prefers the batch form when the model implements it. The
// returned slice holds nil for positions whose per-point lookup failed; a
// non-nil error means the whole batch failed.
func evaluateModel(m model.FieldModel, pts []track.Point) ([]*model.GeocentricField, error) {
	fields := make([]*model.GeocentricField, len(pts))

	if batch, ok := m.(model.BatchEvaluator); ok {
		lats := make([]float64, len(pts))
		lons := make([]float64, len(pts))
		alts := make([]float64, len(pts))
		times := make([]time.Time, len(pts))
		for i, p := range pts {
			lats[i], lons[i], alts[i], times[i] = p.Latitude, p.Longitude, p.AltitudeKm, p.Time
		}
		values, err := batch.EvaluateBatch(lats, lons, alts, times)
		if err != nil {
			return fields, err
		}
		for i := range values {
			fields[i] = &values[i]
		}
		return fields, nil
	}

	for i, p := range pts {
		f, err := m.Evaluate(p.Latitude, p.Longitude, p.AltitudeKm, p.Time)
		if err != nil {
			continue // per-point missing, not fatal
		}
		v := f
		fields[i] = &v
	}
	return fields, nil
}

func markFieldMissing(r *Result) {
	nan := math.NaN()
	r.N, r.E, r.C = nan, nan, nan
	r.NObs, r.EObs, r.CObs = nan, nan, nan
	r.H, r.D, r.I, r.F = nan, nan, nan, nan
}
