// Package swarm models the three Swarm satellite magnetic measurement streams
// consumed by the annotation pipeline. The pool is read-only for the duration
// of a run and is shared, complete, with every worker: chunking it would
// corrupt the space-time neighborhood of points near chunk edges.
package swarm

import (
	"time"

	"golang.org/x/exp/slices"
)

// Satellite identifies one of the three Swarm spacecraft.
type Satellite string

const (
	SatelliteA Satellite = "A"
	SatelliteB Satellite = "B"
	SatelliteC Satellite = "C"
)

// Satellites lists the spacecraft in the fixed iteration order used
// everywhere measurements are pooled. Keeping this order stable keeps
// floating-point reductions bit-reproducible across runs and platforms.
var Satellites = []Satellite{SatelliteA, SatelliteB, SatelliteC}

// Measurement is one magnetic field sample from one satellite. ResN/ResE/ResC
// are the residuals against the reference model (the unmodelled ionospheric
// contribution), in nT, in the NEC frame. Kp is attached upstream by the
// data-acquisition layer.
type Measurement struct {
	Satellite Satellite
	Latitude  float64
	Longitude float64
	Time      time.Time
	Epoch     int64
	ResN      float64
	ResE      float64
	ResC      float64
	Kp        float64

	// Quality fields, consumed by the loader's filter and not used past it.
	FRes   float64
	FlagsF int
	FlagsB int
}

// Pool holds the measurement streams for all three satellites, each sorted by
// epoch. No component mutates a pool after Sort.
type Pool struct {
	A []Measurement
	B []Measurement
	C []Measurement
}

// BySatellite returns the stream for one satellite.
func (p *Pool) BySatellite(s Satellite) []Measurement {
	switch s {
	case SatelliteA:
		return p.A
	case SatelliteB:
		return p.B
	case SatelliteC:
		return p.C
	}
	return nil
}

// Total returns the number of measurements across all three streams.
func (p *Pool) Total() int {
	return len(p.A) + len(p.B) + len(p.C)
}

// Sort orders each stream by epoch, ties broken by latitude for determinism.
// Filters rely on this ordering for their binary searches.
func (p *Pool) Sort() {
	for _, s := range Satellites {
		m := p.BySatellite(s)
		slices.SortFunc(m, func(a, b Measurement) int {
			if a.Epoch != b.Epoch {
				if a.Epoch < b.Epoch {
					return -1
				}
				return 1
			}
			switch {
			case a.Latitude < b.Latitude:
				return -1
			case a.Latitude > b.Latitude:
				return 1
			}
			return 0
		})
	}
}

// TimeRange returns the earliest and latest epochs present in the pool, or
// zeros for an empty pool.
func (p *Pool) TimeRange() (first, last int64) {
	for _, s := range Satellites {
		m := p.BySatellite(s)
		if len(m) == 0 {
			continue
		}
		if first == 0 || m[0].Epoch < first {
			first = m[0].Epoch
		}
		if m[len(m)-1].Epoch > last {
			last = m[len(m)-1].Epoch
		}
	}
	return first, last
}

// PassesQuality reports whether a measurement survives the residual quality
// screen: |F_res| within 2000 nT and both instrument flags nominal (0 or 1).
func (m *Measurement) PassesQuality() bool {
	if m.FRes < -2000 || m.FRes > 2000 {
		return false
	}
	if m.FlagsF < 0 || m.FlagsF > 1 {
		return false
	}
	if m.FlagsB < 0 || m.FlagsB > 1 {
		return false
	}
	return true
}
