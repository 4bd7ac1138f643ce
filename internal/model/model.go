// Package model defines the reference geomagnetic field model consumed by the
// annotation pipeline. The pipeline treats the model as an opaque external
// collaborator: it asks for the core+crust+magnetosphere field at a geodetic
// location and time and receives geocentric spherical components back. Any
// error is handled as a per-point (or, for batch evaluation, per-chunk)
// missing-value condition, never as a substitute zero.
package model

import "time"

// GeocentricField is a magnetic field vector in the geocentric spherical
// frame, in nT: Radial (outward), Theta (along increasing colatitude, i.e.
// southward) and Phi (eastward).
type GeocentricField struct {
	Radial float64
	Theta  float64
	Phi    float64
}

// FieldModel evaluates the reference field at a geodetic position and time.
// Altitude is kilometers above the WGS-84 ellipsoid.
type FieldModel interface {
	Evaluate(lat, lon, altKm float64, t time.Time) (GeocentricField, error)
}

// BatchEvaluator is an optional refinement for models that are cheaper to
// evaluate over a whole chunk of positions at once. All slices have equal
// length. An error poisons the entire batch: callers must treat every
// position in it as missing.
type BatchEvaluator interface {
	EvaluateBatch(lats, lons, altsKm []float64, times []time.Time) ([]GeocentricField, error)
}
