package annotate

import "math"

// DerivedElements computes the classical magnetic elements from an absolute
// NEC vector:
//
//	H = sqrt(N² + E²)        horizontal intensity
//	D = atan2(E, N)          declination, degrees, (-180, 180]
//	I = atan2(C, H)          inclination, degrees
//	F = sqrt(N² + E² + C²)   total intensity
//
// The four outputs are missing as a group: any NaN input makes all of them
// NaN, never a partial set.
func DerivedElements(n, e, c float64) (h, d, i, f float64) {
	if math.IsNaN(n) || math.IsNaN(e) || math.IsNaN(c) {
		nan := math.NaN()
		return nan, nan, nan, nan
	}

	h = math.Hypot(n, e)

	// atan2 returns exactly -pi for due south approached from below; fold it
	// onto the (-180, 180] contract before converting, where the boundary is
	// still exact.
	dRad := math.Atan2(e, n)
	if dRad == -math.Pi {
		dRad = math.Pi
	}
	d = dRad * 180 / math.Pi
	i = math.Atan2(c, h) * 180 / math.Pi
	f = math.Sqrt(n*n + e*e + c*c)
	return h, d, i, f
}
