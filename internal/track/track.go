// Package track loads GPS trajectories for annotation. Trajectories arrive as
// CSV files with caller-defined column names; the original rows are preserved
// verbatim so the output table can carry every caller column alongside the
// annotation results.
package track

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// Point is a single GPS fix. Points are immutable once read; every point maps
// to exactly one annotation result, joined back by Row.
type Point struct {
	Latitude   float64
	Longitude  float64
	AltitudeKm float64
	Time       time.Time
	Epoch      int64 // Unix seconds, compared against satellite epochs
	Row        int   // zero-based index into Trajectory.Rows
}

// Columns names the trajectory columns in the caller's CSV file. Altitude is
// optional; when empty every point is placed at ground level.
type Columns struct {
	Lat      string
	Lon      string
	DateTime string
	Altitude string
}

// Trajectory is an ordered GPS track plus the original CSV content it was
// read from.
type Trajectory struct {
	Header []string
	Rows   [][]string
	Points []Point
}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ReadCSV reads a GPS trajectory from a CSV file using the given column
// mapping. Timestamps are parsed as UTC and truncated to whole minutes, the
// sampling granularity of the satellite streams. Missing or negative
// altitudes become 0.
func ReadCSV(path string, cols Columns) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPS CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("GPS file %s has no data rows", path)
	}

	header := records[0]
	latIdx, err := columnIndex(header, cols.Lat)
	if err != nil {
		return nil, err
	}
	lonIdx, err := columnIndex(header, cols.Lon)
	if err != nil {
		return nil, err
	}
	timeIdx, err := columnIndex(header, cols.DateTime)
	if err != nil {
		return nil, err
	}
	altIdx := -1
	if cols.Altitude != "" {
		if altIdx, err = columnIndex(header, cols.Altitude); err != nil {
			return nil, err
		}
	}

	traj := &Trajectory{
		Header: header,
		Rows:   records[1:],
		Points: make([]Point, 0, len(records)-1),
	}

	for i, row := range traj.Rows {
		lat, err := strconv.ParseFloat(row[latIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid latitude %q: %w", i+1, row[latIdx], err)
		}
		lon, err := strconv.ParseFloat(row[lonIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid longitude %q: %w", i+1, row[lonIdx], err)
		}
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("row %d: latitude %.6f out of range [-90, 90]", i+1, lat)
		}
		if lon < -180 || lon > 180 {
			return nil, fmt.Errorf("row %d: longitude %.6f out of range [-180, 180]", i+1, lon)
		}

		ts, err := parseTime(row[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		alt := 0.0
		if altIdx >= 0 && row[altIdx] != "" {
			alt, err = strconv.ParseFloat(row[altIdx], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid altitude %q: %w", i+1, row[altIdx], err)
			}
			if alt < 0 {
				alt = 0
			}
		}

		traj.Points = append(traj.Points, Point{
			Latitude:   lat,
			Longitude:  lon,
			AltitudeKm: alt,
			Time:       ts,
			Epoch:      ts.Unix(),
			Row:        i,
		})
	}

	return traj, nil
}

// RequiredDates returns the UTC calendar days the satellite pool must cover
// for this trajectory, sorted ascending. A day is included when any point
// falls on it; a neighboring day is added when the point's cylinder window
// reaches across midnight into it. With the default 4-hour window that means
// points before 04:00 pull in the previous day and points from 20:00 on pull
// in the next.
func (t *Trajectory) RequiredDates(window time.Duration) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, p := range t.Points {
		first := p.Time.UTC().Add(-window).Truncate(24 * time.Hour)
		last := p.Time.UTC().Add(window).Truncate(24 * time.Hour)
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			seen[day] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found in GPS file header %v", name, header)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC().Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
