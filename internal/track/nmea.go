package track

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adrianmo/go-nmea"
)

// Synthesized header for trajectories imported from NMEA logs. The annotator
// and exporter treat these like any caller-supplied CSV columns.
var nmeaHeader = []string{"latitude", "longitude", "datetime", "altitude_km"}

// NMEAColumns is the column mapping for trajectories produced by ReadNMEA.
var NMEAColumns = Columns{
	Lat:      "latitude",
	Lon:      "longitude",
	DateTime: "datetime",
	Altitude: "altitude_km",
}

// ReadNMEA imports a GPS trajectory from a raw NMEA sentence log, as written
// by most GPS loggers and by maggeo-record. One point is emitted per valid
// RMC sentence (RMC carries the date); altitude is taken from the most recent
// GGA sentence, in meters above mean sea level, and converted to kilometers.
func ReadNMEA(path string) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NMEA log: %w", err)
	}
	defer f.Close()

	traj := &Trajectory{Header: nmeaHeader}
	lastAltKm := 0.0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] != '$' {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// Loggers interleave proprietary sentences; skip anything
			// that does not parse as standard NMEA.
			continue
		}

		switch s := sentence.(type) {
		case nmea.GGA:
			if s.FixQuality != nmea.Invalid {
				lastAltKm = s.Altitude / 1000.0
			}
		case nmea.RMC:
			if s.Validity != "A" {
				continue
			}
			ts := time.Date(2000+s.Date.YY, time.Month(s.Date.MM), s.Date.DD,
				s.Time.Hour, s.Time.Minute, s.Time.Second, 0, time.UTC).Truncate(time.Minute)

			p := Point{
				Latitude:   s.Latitude,
				Longitude:  s.Longitude,
				AltitudeKm: lastAltKm,
				Time:       ts,
				Epoch:      ts.Unix(),
				Row:        len(traj.Points),
			}
			traj.Points = append(traj.Points, p)
			traj.Rows = append(traj.Rows, []string{
				strconv.FormatFloat(p.Latitude, 'f', 8, 64),
				strconv.FormatFloat(p.Longitude, 'f', 8, 64),
				ts.Format(time.RFC3339),
				strconv.FormatFloat(p.AltitudeKm, 'f', 4, 64),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NMEA log: %w", err)
	}
	if len(traj.Points) == 0 {
		return nil, fmt.Errorf("no valid RMC sentences in %s", path)
	}

	return traj, nil
}
