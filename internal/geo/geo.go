// Package geo provides the spherical and ellipsoidal geometry used by the
// annotation pipeline: great-circle distances between GPS and satellite
// positions, the latitude-dependent search radius of the space-time cylinder,
// and the WGS-84 geodetic to geocentric coordinate conversion.
package geo

import "math"

const (
	// Mean Earth radius used by the haversine distance, in meters.
	earthRadiusM = 6373.0e3

	// WGS-84 ellipsoid parameters, in kilometers.
	equatorialRadiusKm = 6378.137
	flattening         = 1.0 / 298.257223563

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Distance returns the great-circle distance in meters between two points
// given in decimal degrees. The haversine form is numerically stable for
// antipodal points, near the poles, and across the antimeridian.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// Rounding can push h a hair above 1 for antipodal pairs.
	if h > 1 {
		h = 1
	}
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// SearchRadius returns the radius in meters of the spatial kernel for a GPS
// point at the given latitude. Swarm ground tracks converge towards the poles,
// so the radius shrinks linearly with absolute latitude:
//
//	R(lat) = (1800 - 10*|lat|) km
//
// pinned to the curve published in Benitez-Paez et al. (2021). The value is
// positive and finite on the whole closed interval [-90, 90]: 1800 km at the
// equator down to 900 km at the poles. Latitudes outside the interval are
// clamped.
func SearchRadius(lat float64) float64 {
	abs := math.Abs(lat)
	if abs > 90 {
		abs = 90
	}
	return (1800 - 10*abs) * 1000.0
}

// GeodeticToGeocentric converts an altitude (km) above the WGS-84 ellipsoid at
// the given geodetic colatitude (degrees) into the geocentric radius (km) and
// geocentric colatitude (degrees), together with the sine and cosine of the
// angle between the geodetic and geocentric vertical. The sd/cd pair rotates
// field components between the geocentric and geodetic frames.
//
// Equations (51)-(53) from Langel, "The main field", in Jacobs (ed.),
// Geomagnetism Vol. 1, Academic Press, 1987.
func GeodeticToGeocentric(altKm, gdColatDeg float64) (radiusKm, colatDeg, sd, cd float64) {
	polarRadiusKm := equatorialRadiusKm * (1 - flattening)

	ct := math.Cos(gdColatDeg * degToRad)
	st := math.Sin(gdColatDeg * degToRad)

	a2 := equatorialRadiusKm * equatorialRadiusKm
	a4 := a2 * a2
	b2 := polarRadiusKm * polarRadiusKm
	b4 := b2 * b2

	c2 := ct * ct
	s2 := 1 - c2

	rho := math.Sqrt(a2*s2 + b2*c2)
	radiusKm = math.Sqrt(altKm*(altKm+2*rho) + (a4*s2+b4*c2)/(rho*rho))

	cd = (altKm + rho) / radiusKm
	sd = (a2 - b2) * ct * st / (rho * radiusKm)

	cthc := ct*cd - st*sd
	// Guard acos against rounding just outside [-1, 1].
	if cthc > 1 {
		cthc = 1
	} else if cthc < -1 {
		cthc = -1
	}
	colatDeg = math.Acos(cthc) * radToDeg

	return radiusKm, colatDeg, sd, cd
}
