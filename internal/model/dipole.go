package model

import (
	"fmt"
	"math"
	"time"

	"github.com/MagGeo/MagGeo/internal/geo"
)

// WMM2025 degree-1 Gauss coefficients (nT) and their secular variation
// (nT/year). A degree-1 expansion is the tilted dipole: it reproduces the
// large-scale core field to within a few thousand nT, which is enough for an
// offline stand-in when no full reference model is wired up.
const (
	wmmEpoch = 2025.0
	g10Base  = -29351.8
	g11Base  = -1410.8
	h11Base  = 4545.4
	g10Dot   = 12.0
	g11Dot   = 9.7
	h11Dot   = -21.5

	// Geomagnetic reference sphere radius, km.
	referenceRadiusKm = 6371.2
)

// Dipole is a built-in FieldModel synthesizing the degree-1 (tilted dipole)
// field from the WMM2025 coefficients, with secular variation applied from
// the model epoch. It needs no external data and never fails inside the
// coefficients' valid window.
type Dipole struct{}

var _ FieldModel = Dipole{}
var _ BatchEvaluator = Dipole{}

// Evaluate returns the dipole field at the given geodetic position in the
// geocentric spherical frame.
func (d Dipole) Evaluate(lat, lon, altKm float64, t time.Time) (GeocentricField, error) {
	if lat < -90 || lat > 90 {
		return GeocentricField{}, fmt.Errorf("latitude %.4f out of range [-90, 90]", lat)
	}

	delta := decimalYear(t.UTC()) - wmmEpoch
	g10 := g10Base + g10Dot*delta
	g11 := g11Base + g11Dot*delta
	h11 := h11Base + h11Dot*delta

	radiusKm, colatDeg, _, _ := geo.GeodeticToGeocentric(altKm, 90-lat)

	theta := colatDeg * math.Pi / 180
	phi := lon * math.Pi / 180
	ratio := referenceRadiusKm / radiusKm
	ratio3 := ratio * ratio * ratio

	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)
	sectoral := g11*cosPhi + h11*sinPhi

	return GeocentricField{
		Radial: 2 * ratio3 * (g10*cosTheta + sectoral*sinTheta),
		Theta:  ratio3 * (g10*sinTheta - sectoral*cosTheta),
		Phi:    ratio3 * (g11*sinPhi - h11*cosPhi),
	}, nil
}

// EvaluateBatch evaluates the dipole at every position of a chunk.
func (d Dipole) EvaluateBatch(lats, lons, altsKm []float64, times []time.Time) ([]GeocentricField, error) {
	if len(lats) != len(lons) || len(lats) != len(altsKm) || len(lats) != len(times) {
		return nil, fmt.Errorf("batch slices have mismatched lengths")
	}
	out := make([]GeocentricField, len(lats))
	for i := range lats {
		f, err := d.Evaluate(lats[i], lons[i], altsKm[i], times[i])
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func decimalYear(t time.Time) float64 {
	y := t.Year()
	start := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y+1, 1, 1, 0, 0, 0, 0, time.UTC)
	duration := end.Sub(start)
	if duration <= 0 {
		return float64(y)
	}
	return float64(y) + float64(t.Sub(start))/float64(duration)
}
