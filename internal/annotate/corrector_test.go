package annotate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/MagGeo/MagGeo/internal/model"
	"github.com/MagGeo/MagGeo/internal/track"
)

// constModel returns the same geocentric field everywhere, or a fixed error.
type constModel struct {
	field model.GeocentricField
	err   error
}

func (m constModel) Evaluate(lat, lon, altKm float64, t time.Time) (model.GeocentricField, error) {
	return m.field, m.err
}

// batchErrModel fails the batch path while the per-point path would succeed.
type batchErrModel struct {
	constModel
}

func (m batchErrModel) EvaluateBatch(lats, lons, altsKm []float64, times []time.Time) ([]model.GeocentricField, error) {
	return nil, errors.New("model service unavailable")
}

func TestRotateToNECEquator(t *testing.T) {
	// At the equator (sea level) the geocentric and geodetic verticals
	// coincide, so the rotation reduces to the axis relabeling.
	pt := track.Point{Latitude: 0, Longitude: 0, AltitudeKm: 0}
	f := model.GeocentricField{Radial: -50000, Theta: -30000, Phi: 1000}

	n, e, c := RotateToNEC(f, pt)
	if math.Abs(n-30000) > 1e-6 {
		t.Errorf("N = %v, want 30000", n)
	}
	if e != 1000 {
		t.Errorf("E = %v, want 1000", e)
	}
	if math.Abs(c-50000) > 1e-6 {
		t.Errorf("C = %v, want 50000", c)
	}
}

func TestRotateToNECPreservesMagnitude(t *testing.T) {
	pt := track.Point{Latitude: 45, Longitude: 10, AltitudeKm: 0.3}
	f := model.GeocentricField{Radial: -40000, Theta: -20000, Phi: 3000}

	n, e, c := RotateToNEC(f, pt)
	wantNC := math.Hypot(f.Theta, f.Radial)
	if math.Abs(math.Hypot(n, c)-wantNC) > 1e-6 {
		t.Errorf("rotation changed the meridional magnitude: got %v, want %v",
			math.Hypot(n, c), wantNC)
	}
	if e != f.Phi {
		t.Errorf("E = %v, want %v", e, f.Phi)
	}
}

func testPoints(n int) []track.Point {
	pts := make([]track.Point, n)
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := range pts {
		tm := base.Add(time.Duration(i) * time.Minute)
		pts[i] = track.Point{
			Latitude:   10 + float64(i)*0.01,
			Longitude:  -5,
			AltitudeKm: 0.1,
			Time:       tm,
			Epoch:      tm.Unix(),
			Row:        i,
		}
	}
	return pts
}

func TestCorrectChunkRoundTrip(t *testing.T) {
	pts := testPoints(3)
	results := make([]Result, len(pts))
	for i := range results {
		results[i] = Result{ResN: 12.5, ResE: -3.25, ResC: 8, TotalPoints: 2}
	}

	m := constModel{field: model.GeocentricField{Radial: -45000, Theta: -25000, Phi: 2000}}
	correctChunk(m, pts, results)

	for i, r := range results {
		if math.IsNaN(r.N) || math.IsNaN(r.NObs) {
			t.Fatalf("point %d: field missing with a healthy model", i)
		}
		// Absolute minus residual recovers the model-only value.
		if math.Abs(r.N-r.ResN-r.NObs) > 1e-9 ||
			math.Abs(r.E-r.ResE-r.EObs) > 1e-9 ||
			math.Abs(r.C-r.ResC-r.CObs) > 1e-9 {
			t.Errorf("point %d: round trip broken: N=%v ResN=%v NObs=%v", i, r.N, r.ResN, r.NObs)
		}
		if math.IsNaN(r.H) || math.IsNaN(r.F) {
			t.Errorf("point %d: derived elements missing", i)
		}
	}
}

func TestCorrectChunkNaNResidualPropagates(t *testing.T) {
	pts := testPoints(1)
	nan := math.NaN()
	results := []Result{{ResN: nan, ResE: nan, ResC: nan, MinDistance: nan, AvgDistance: nan, Kp: nan}}

	m := constModel{field: model.GeocentricField{Radial: -45000, Theta: -25000, Phi: 2000}}
	correctChunk(m, pts, results)

	r := results[0]
	if !math.IsNaN(r.N) || !math.IsNaN(r.E) || !math.IsNaN(r.C) {
		t.Error("absolute field must be NaN when residuals are NaN")
	}
	if math.IsNaN(r.NObs) || math.IsNaN(r.EObs) || math.IsNaN(r.CObs) {
		t.Error("model-only columns must survive a NaN residual")
	}
	if !math.IsNaN(r.H) || !math.IsNaN(r.D) || !math.IsNaN(r.I) || !math.IsNaN(r.F) {
		t.Error("derived elements must be NaN when residuals are NaN")
	}
}

func TestCorrectChunkPointFailure(t *testing.T) {
	pts := testPoints(2)
	results := make([]Result, len(pts))
	for i := range results {
		results[i] = Result{ResN: 1, ResE: 2, ResC: 3, TotalPoints: 5}
	}

	m := constModel{err: errors.New("coefficients not loaded")}
	correctChunk(m, pts, results)

	for i, r := range results {
		if !math.IsNaN(r.N) || !math.IsNaN(r.NObs) || !math.IsNaN(r.F) {
			t.Errorf("point %d: field must be missing when the model fails", i)
		}
		if r.ResN != 1 || r.ResE != 2 || r.ResC != 3 || r.TotalPoints != 5 {
			t.Errorf("point %d: residual columns must survive a model failure", i)
		}
	}
}

func TestCorrectChunkBatchFailure(t *testing.T) {
	pts := testPoints(4)
	results := make([]Result, len(pts))
	for i := range results {
		results[i] = Result{ResN: 1, ResE: 2, ResC: 3}
	}

	m := batchErrModel{constModel{field: model.GeocentricField{Radial: -45000}}}
	correctChunk(m, pts, results)

	for i, r := range results {
		if !math.IsNaN(r.N) || !math.IsNaN(r.NObs) {
			t.Errorf("point %d: whole chunk must be missing after a batch failure", i)
		}
		if r.ResN != 1 {
			t.Errorf("point %d: residuals must survive a batch failure", i)
		}
	}
}
