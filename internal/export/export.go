// Package export writes annotated trajectories to the output formats. The CSV
// form is the primary product: the caller's original columns verbatim, then
// the annotation columns. GeoJSON is provided for quick map inspection.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/MagGeo/MagGeo/internal/annotate"
	"github.com/MagGeo/MagGeo/internal/track"
)

// AnnotationColumns are the columns appended to the caller's table, in output
// order.
var AnnotationColumns = []string{
	"N_res", "E_res", "C_res",
	"TotalPoints", "Minimum_Distance", "Average_Distance", "Kp",
	"N", "E", "C",
	"N_Obs", "E_Obs", "C_Obs",
	"H", "D", "I", "F",
}

// WriteCSV writes the annotated trajectory to filename. Every original row
// appears once, in input order, with the annotation columns appended. Missing
// magnetic values are written as empty cells, never as "NaN" or zero.
func WriteCSV(filename string, traj *track.Trajectory, results []annotate.Result) error {
	if len(results) != len(traj.Rows) {
		return fmt.Errorf("result count %d does not match row count %d", len(results), len(traj.Rows))
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append(append([]string{}, traj.Header...), AnnotationColumns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		row := append([]string{}, traj.Rows[r.Row]...)
		row = append(row,
			cell(r.ResN), cell(r.ResE), cell(r.ResC),
			strconv.Itoa(r.TotalPoints), cell(r.MinDistance), cell(r.AvgDistance), cell(r.Kp),
			cell(r.N), cell(r.E), cell(r.C),
			cell(r.NObs), cell(r.EObs), cell(r.CObs),
			cell(r.H), cell(r.D), cell(r.I), cell(r.F),
		)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", r.Row, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteGeoJSON writes the annotated trajectory as a GeoJSON FeatureCollection,
// one Point feature per GPS fix, for web mapping tools.
func WriteGeoJSON(filename string, results []annotate.Result) error {
	features := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		features = append(features, map[string]interface{}{
			"type": "Feature",
			"geometry": map[string]interface{}{
				"type":        "Point",
				"coordinates": []float64{r.Longitude, r.Latitude},
			},
			"properties": map[string]interface{}{
				"time":             r.Time.Format(time.RFC3339),
				"altitude_km":      r.AltitudeKm,
				"total_points":     r.TotalPoints,
				"kp":               jsonValue(r.Kp),
				"n_res":            jsonValue(r.ResN),
				"e_res":            jsonValue(r.ResE),
				"c_res":            jsonValue(r.ResC),
				"n":                jsonValue(r.N),
				"e":                jsonValue(r.E),
				"c":                jsonValue(r.C),
				"h":                jsonValue(r.H),
				"d":                jsonValue(r.D),
				"i":                jsonValue(r.I),
				"f":                jsonValue(r.F),
				"minimum_distance": jsonValue(r.MinDistance),
				"average_distance": jsonValue(r.AvgDistance),
			},
		})
	}

	geojson := map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
		"properties": map[string]interface{}{
			"title":  "Geomagnetic trajectory annotation",
			"points": len(results),
		},
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create GeoJSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(geojson); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return nil
}

// cell formats a float for the CSV table. NaN means missing and becomes an
// empty cell.
func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// jsonValue maps NaN to null, which encoding/json refuses to emit directly.
func jsonValue(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
