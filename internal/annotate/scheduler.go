package annotate

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MagGeo/MagGeo/internal/model"
	"github.com/MagGeo/MagGeo/internal/swarm"
	"github.com/MagGeo/MagGeo/internal/track"
)

// State tracks the scheduler through one annotation run.
type State int32

const (
	StateIdle State = iota
	StateSplitting
	StateDispatching
	StateCollecting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSplitting:
		return "splitting"
	case StateDispatching:
		return "dispatching"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options controls one annotation run.
type Options struct {
	// Workers is the number of concurrent chunk workers. Zero means one
	// worker per CPU.
	Workers int

	// ChunkSize forces a fixed chunk size. Zero lets the scheduler size
	// chunks from the trajectory length and worker count.
	ChunkSize int

	// Window is the temporal half-width of the cylinder. Zero means
	// TimeWindow.
	Window time.Duration

	// Verbose enables per-chunk progress logging.
	Verbose bool
}

// Scheduler runs the annotation pipeline over a trajectory, splitting the GPS
// points into chunks and fanning them out to workers. Only the GPS side is
// chunked; every worker reads the complete satellite pool, so a point near a
// chunk boundary sees exactly the neighbors it would see in a sequential run.
type Scheduler struct {
	model model.FieldModel
	opts  Options
	state atomic.Int32
}

// NewScheduler returns a scheduler that corrects residuals with m.
func NewScheduler(m model.FieldModel, opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Window <= 0 {
		opts.Window = TimeWindow
	}
	return &Scheduler{model: m, opts: opts}
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

type chunk struct {
	index  int
	points []track.Point
}

// Annotate runs the full pipeline over traj and returns one result per GPS
// point, in trajectory order regardless of which worker finished first. The
// output is bit-identical for any worker count because chunk boundaries never
// change the cylinder a point sees and each chunk is reduced in a fixed order.
//
// A point-local problem (empty cylinder, failed model lookup) shows up as NaN
// fields in that point's result, not as an error. An error return means the
// run as a whole failed: the context was canceled or a worker crashed. On
// error the partial results are discarded.
func (s *Scheduler) Annotate(ctx context.Context, traj *track.Trajectory, pool *swarm.Pool) ([]Result, error) {
	pts := traj.Points
	if len(pts) == 0 {
		s.setState(StateDone)
		return []Result{}, nil
	}

	s.setState(StateSplitting)
	size := s.opts.ChunkSize
	if size <= 0 {
		size = chunkSize(len(pts), s.opts.Workers)
	}
	chunks := splitPoints(pts, size)
	if s.opts.Verbose {
		log.Printf("annotating %d points in %d chunks of <=%d across %d workers",
			len(pts), len(chunks), size, s.opts.Workers)
	}

	s.setState(StateDispatching)
	jobs := make(chan chunk)
	errCh := make(chan error, s.opts.Workers)
	done := make([][]Result, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errCh <- fmt.Errorf("annotation worker crashed: %v", r)
				}
			}()
			for c := range jobs {
				done[c.index] = s.annotateChunk(c.points, pool)
				if s.opts.Verbose {
					log.Printf("chunk %d/%d done (%d points)", c.index+1, len(chunks), len(c.points))
				}
			}
		}()
	}

	var runErr error
dispatch:
	for i, c := range chunks {
		select {
		case jobs <- chunk{index: i, points: c}:
		case err := <-errCh:
			runErr = err
			break dispatch
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)

	s.setState(StateCollecting)
	wg.Wait()
	if runErr == nil {
		select {
		case err := <-errCh:
			runErr = err
		default:
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("annotation run failed: %w", runErr)
	}

	out := make([]Result, 0, len(pts))
	for _, part := range done {
		out = append(out, part...)
	}
	s.setState(StateDone)
	return out, nil
}

// annotateChunk runs filter, interpolation and correction for one chunk.
func (s *Scheduler) annotateChunk(pts []track.Point, pool *swarm.Pool) []Result {
	results := make([]Result, len(pts))
	for i, p := range pts {
		cyl := Cylinder(p, pool, s.opts.Window)
		itp := Interpolate(cyl)
		results[i] = Result{
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			AltitudeKm: p.AltitudeKm,
			Time:       p.Time,
			Row:        p.Row,

			ResN:        itp.ResN,
			ResE:        itp.ResE,
			ResC:        itp.ResC,
			TotalPoints: itp.TotalPoints,
			MinDistance: itp.MinDistance,
			AvgDistance: itp.AvgDistance,
			Kp:          itp.Kp,
		}
	}
	correctChunk(s.model, pts, results)
	return results
}

// chunkSize keeps roughly four chunks in flight per worker, clamped so tiny
// trajectories are not over-split and huge ones still stream progress.
func chunkSize(n, workers int) int {
	size := n / (workers * 4)
	if size < 50 {
		size = 50
	}
	if size > 200 {
		size = 200
	}
	return size
}

func splitPoints(pts []track.Point, size int) [][]track.Point {
	var chunks [][]track.Point
	for start := 0; start < len(pts); start += size {
		end := start + size
		if end > len(pts) {
			end = len(pts)
		}
		chunks = append(chunks, pts[start:end])
	}
	return chunks
}
