package annotate

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/MagGeo/MagGeo/internal/model"
	"github.com/MagGeo/MagGeo/internal/swarm"
	"github.com/MagGeo/MagGeo/internal/track"
)

func schedulerFixture(nPoints int) (*track.Trajectory, *swarm.Pool) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	pts := make([]track.Point, nPoints)
	for i := range pts {
		tm := base.Add(time.Duration(i) * time.Minute)
		pts[i] = track.Point{
			Latitude:   20 + float64(i%40)*0.05,
			Longitude:  -3 + float64(i)*0.002,
			AltitudeKm: 0.2,
			Time:       tm,
			Epoch:      tm.Unix(),
			Row:        i,
		}
	}

	pool := &swarm.Pool{}
	for _, sat := range swarm.Satellites {
		var stream []swarm.Measurement
		for i := 0; i < nPoints*2; i++ {
			tm := base.Add(time.Duration(i*31) * time.Second)
			stream = append(stream, swarm.Measurement{
				Satellite: sat,
				Latitude:  20 + float64(i%50)*0.1,
				Longitude: -3 + float64(i%20)*0.1,
				Time:      tm,
				Epoch:     tm.Unix(),
				ResN:      float64(i%7) - 3,
				ResE:      float64(i%5) - 2,
				ResC:      float64(i%11) - 5,
				Kp:        float64(i % 9),
			})
		}
		switch sat {
		case swarm.SatelliteA:
			pool.A = stream
		case swarm.SatelliteB:
			pool.B = stream
		case swarm.SatelliteC:
			pool.C = stream
		}
	}
	pool.Sort()
	return &track.Trajectory{Points: pts}, pool
}

// sameResult compares two results treating NaN as equal to NaN.
func sameResult(a, b Result) bool {
	eq := func(x, y float64) bool {
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		return x == y
	}
	return a.Row == b.Row && a.TotalPoints == b.TotalPoints &&
		eq(a.ResN, b.ResN) && eq(a.ResE, b.ResE) && eq(a.ResC, b.ResC) &&
		eq(a.MinDistance, b.MinDistance) && eq(a.AvgDistance, b.AvgDistance) &&
		eq(a.Kp, b.Kp) &&
		eq(a.N, b.N) && eq(a.E, b.E) && eq(a.C, b.C) &&
		eq(a.NObs, b.NObs) && eq(a.EObs, b.EObs) && eq(a.CObs, b.CObs) &&
		eq(a.H, b.H) && eq(a.D, b.D) && eq(a.I, b.I) && eq(a.F, b.F)
}

func TestAnnotateParallelMatchesSequential(t *testing.T) {
	traj, pool := schedulerFixture(130)
	ctx := context.Background()

	seq, err := NewScheduler(&model.Dipole{}, Options{Workers: 1, ChunkSize: len(traj.Points)}).
		Annotate(ctx, traj, pool)
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}

	par, err := NewScheduler(&model.Dipole{}, Options{Workers: 4, ChunkSize: 7}).
		Annotate(ctx, traj, pool)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	if len(seq) != len(par) {
		t.Fatalf("result counts differ: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		if !sameResult(seq[i], par[i]) {
			t.Fatalf("row %d differs between worker counts:\nseq: %+v\npar: %+v", i, seq[i], par[i])
		}
	}
}

func TestAnnotateRowInvariance(t *testing.T) {
	traj, pool := schedulerFixture(83)

	s := NewScheduler(&model.Dipole{}, Options{Workers: 3, ChunkSize: 10})
	results, err := s.Annotate(context.Background(), traj, pool)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if len(results) != len(traj.Points) {
		t.Fatalf("got %d results for %d points", len(results), len(traj.Points))
	}
	for i, r := range results {
		if r.Row != i {
			t.Fatalf("result %d carries row %d; order not preserved", i, r.Row)
		}
		p := traj.Points[i]
		if r.Latitude != p.Latitude || r.Longitude != p.Longitude || !r.Time.Equal(p.Time) {
			t.Fatalf("result %d identity does not match its point", i)
		}
	}
	if s.State() != StateDone {
		t.Errorf("state = %s, want done", s.State())
	}
}

func TestAnnotateEmptyCylinderPoint(t *testing.T) {
	traj, pool := schedulerFixture(5)
	// A point far from every measurement and outside the time window.
	lone := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	traj.Points = append(traj.Points, track.Point{
		Latitude: -75, Longitude: 170, AltitudeKm: 0,
		Time: lone, Epoch: lone.Unix(), Row: 5,
	})

	results, err := NewScheduler(&model.Dipole{}, Options{Workers: 2}).
		Annotate(context.Background(), traj, pool)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	r := results[5]
	if r.TotalPoints != 0 {
		t.Fatalf("lone point TotalPoints = %d, want 0", r.TotalPoints)
	}
	if !math.IsNaN(r.ResN) || !math.IsNaN(r.N) || !math.IsNaN(r.Kp) {
		t.Error("lone point magnetic columns must be NaN")
	}
	if r.Latitude != -75 || r.Row != 5 {
		t.Error("lone point identity must be preserved")
	}
	if math.IsNaN(r.NObs) {
		t.Error("model-only columns are independent of the cylinder")
	}
}

func TestAnnotateEmptyTrajectory(t *testing.T) {
	_, pool := schedulerFixture(5)
	s := NewScheduler(&model.Dipole{}, Options{})

	results, err := s.Annotate(context.Background(), &track.Trajectory{}, pool)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results for an empty trajectory", len(results))
	}
	if s.State() != StateDone {
		t.Errorf("state = %s, want done", s.State())
	}
}

type panicModel struct{}

func (panicModel) Evaluate(lat, lon, altKm float64, t time.Time) (model.GeocentricField, error) {
	panic("corrupted coefficient table")
}

func TestAnnotateWorkerCrash(t *testing.T) {
	traj, pool := schedulerFixture(60)
	s := NewScheduler(panicModel{}, Options{Workers: 2, ChunkSize: 10})

	results, err := s.Annotate(context.Background(), traj, pool)
	if err == nil {
		t.Fatal("expected an error from a crashing worker")
	}
	if results != nil {
		t.Error("partial results must be discarded on failure")
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestAnnotateCanceledContext(t *testing.T) {
	traj, pool := schedulerFixture(200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(&model.Dipole{}, Options{Workers: 2, ChunkSize: 10})
	_, err := s.Annotate(ctx, traj, pool)
	if err == nil {
		t.Fatal("expected an error from a canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in the chain", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestSchedulerStateString(t *testing.T) {
	want := map[State]string{
		StateIdle: "idle", StateSplitting: "splitting", StateDispatching: "dispatching",
		StateCollecting: "collecting", StateDone: "done", StateFailed: "failed",
	}
	for st, s := range want {
		if st.String() != s {
			t.Errorf("State(%d).String() = %q, want %q", st, st.String(), s)
		}
	}
}

func TestChunkSizeClamp(t *testing.T) {
	if got := chunkSize(100, 4); got != 50 {
		t.Errorf("small trajectory: chunk size %d, want floor 50", got)
	}
	if got := chunkSize(1_000_000, 4); got != 200 {
		t.Errorf("huge trajectory: chunk size %d, want cap 200", got)
	}
	if got := chunkSize(2400, 4); got != 150 {
		t.Errorf("mid trajectory: chunk size %d, want 150", got)
	}
}
