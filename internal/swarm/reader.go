package swarm

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Pool files are one CSV per satellite per UTC calendar day, optionally
// zstd-compressed:
//
//	swarm_A_2020-03-21.csv
//	swarm_A_2020-03-21.csv.zst
//
// written by the data-acquisition layer. The reader consumes whatever subset
// of the requested days exists; absent days simply contribute no candidates.

// Expected CSV columns. Header matching is case-insensitive.
var requiredColumns = []string{"epoch", "latitude", "longitude", "n_res", "e_res", "c_res", "kp"}

// Filename returns the pool file base name (uncompressed form) for one
// satellite and day.
func Filename(sat Satellite, day time.Time) string {
	return fmt.Sprintf("swarm_%s_%s.csv", sat, day.UTC().Format("2006-01-02"))
}

// Available reports whether a pool file for the satellite and day exists in
// dir, compressed or not.
func Available(dir string, sat Satellite, day time.Time) bool {
	base := filepath.Join(dir, Filename(sat, day))
	if _, err := os.Stat(base); err == nil {
		return true
	}
	if _, err := os.Stat(base + ".zst"); err == nil {
		return true
	}
	return false
}

// LoadDirectory reads the pool files for the given days from dir, applies the
// residual quality screen, and returns the three streams sorted by time.
// Missing files are skipped; the caller can detect thin coverage through
// Pool.Total or the maggeo-coverage tool.
func LoadDirectory(dir string, days []time.Time) (*Pool, error) {
	pool := &Pool{}
	for _, sat := range Satellites {
		for _, day := range days {
			base := filepath.Join(dir, Filename(sat, day))
			path := base
			if _, err := os.Stat(path); err != nil {
				path = base + ".zst"
				if _, err := os.Stat(path); err != nil {
					continue
				}
			}

			ms, err := loadFile(path, sat)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			switch sat {
			case SatelliteA:
				pool.A = append(pool.A, ms...)
			case SatelliteB:
				pool.B = append(pool.B, ms...)
			case SatelliteC:
				pool.C = append(pool.C, ms...)
			}
		}
	}
	pool.Sort()
	return pool, nil
}

// loadFile reads one pool file, transparently decompressing .zst.
func loadFile(path string, sat Satellite) ([]Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return ReadMeasurements(r, sat)
}

// ReadMeasurements parses one satellite's measurement CSV and drops rows that
// fail the quality screen.
func ReadMeasurements(r io.Reader, sat Satellite) ([]Measurement, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse measurement CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("measurement file is empty")
	}

	idx, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	var out []Measurement
	for i, row := range records[1:] {
		m, err := parseRow(row, idx, sat)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !m.PassesQuality() {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type columnIndex struct {
	epoch, lat, lon, resN, resE, resC, kp int
	fRes, flagsF, flagsB                  int // -1 when absent
}

func headerIndex(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := pos[name]; !ok {
			return columnIndex{}, fmt.Errorf("column %q not found in measurement header %v", name, header)
		}
	}

	optional := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	return columnIndex{
		epoch:  pos["epoch"],
		lat:    pos["latitude"],
		lon:    pos["longitude"],
		resN:   pos["n_res"],
		resE:   pos["e_res"],
		resC:   pos["c_res"],
		kp:     pos["kp"],
		fRes:   optional("f_res"),
		flagsF: optional("flags_f"),
		flagsB: optional("flags_b"),
	}, nil
}

func parseRow(row []string, idx columnIndex, sat Satellite) (Measurement, error) {
	epoch, err := strconv.ParseInt(row[idx.epoch], 10, 64)
	if err != nil {
		return Measurement{}, fmt.Errorf("invalid epoch %q: %w", row[idx.epoch], err)
	}

	floatAt := func(i int, name string) (float64, error) {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", name, row[i], err)
		}
		return v, nil
	}

	m := Measurement{Satellite: sat, Epoch: epoch, Time: time.Unix(epoch, 0).UTC()}
	if m.Latitude, err = floatAt(idx.lat, "latitude"); err != nil {
		return Measurement{}, err
	}
	if m.Longitude, err = floatAt(idx.lon, "longitude"); err != nil {
		return Measurement{}, err
	}
	if m.ResN, err = floatAt(idx.resN, "n_res"); err != nil {
		return Measurement{}, err
	}
	if m.ResE, err = floatAt(idx.resE, "e_res"); err != nil {
		return Measurement{}, err
	}
	if m.ResC, err = floatAt(idx.resC, "c_res"); err != nil {
		return Measurement{}, err
	}
	if m.Kp, err = floatAt(idx.kp, "kp"); err != nil {
		return Measurement{}, err
	}

	if idx.fRes >= 0 {
		if m.FRes, err = floatAt(idx.fRes, "f_res"); err != nil {
			return Measurement{}, err
		}
	}
	intAt := func(i int, name string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", name, row[i], err)
		}
		return v, nil
	}
	if idx.flagsF >= 0 {
		if m.FlagsF, err = intAt(idx.flagsF, "flags_f"); err != nil {
			return Measurement{}, err
		}
	}
	if idx.flagsB >= 0 {
		if m.FlagsB, err = intAt(idx.flagsB, "flags_b"); err != nil {
			return Measurement{}, err
		}
	}

	return m, nil
}
