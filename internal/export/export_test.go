package export

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MagGeo/MagGeo/internal/annotate"
	"github.com/MagGeo/MagGeo/internal/track"
)

func fixture() (*track.Trajectory, []annotate.Result) {
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	traj := &track.Trajectory{
		Header: []string{"bird_id", "location-lat", "location-long", "timestamp"},
		Rows: [][]string{
			{"b42", "52.10", "4.30", "2024-03-10 12:00:00"},
			{"b42", "52.11", "4.31", "2024-03-10 12:01:00"},
		},
		Points: []track.Point{
			{Latitude: 52.10, Longitude: 4.30, Time: ts, Epoch: ts.Unix(), Row: 0},
			{Latitude: 52.11, Longitude: 4.31, Time: ts.Add(time.Minute), Epoch: ts.Add(time.Minute).Unix(), Row: 1},
		},
	}

	nan := math.NaN()
	results := []annotate.Result{
		{
			Latitude: 52.10, Longitude: 4.30, Time: ts, Row: 0,
			ResN: 12.5, ResE: -3.25, ResC: 8, TotalPoints: 6,
			MinDistance: 120e3, AvgDistance: 400e3, Kp: 2,
			N: 18000, E: 500, C: 45000,
			NObs: 17987.5, EObs: 503.25, CObs: 44992,
			H: 18006.9, D: 1.59, I: 68.2, F: 48467.1,
		},
		{
			Latitude: 52.11, Longitude: 4.31, Time: ts.Add(time.Minute), Row: 1,
			ResN: nan, ResE: nan, ResC: nan, TotalPoints: 0,
			MinDistance: nan, AvgDistance: nan, Kp: nan,
			N: nan, E: nan, C: nan, NObs: nan, EObs: nan, CObs: nan,
			H: nan, D: nan, I: nan, F: nan,
		},
	}
	return traj, results
}

func TestWriteCSV(t *testing.T) {
	traj, results := fixture()
	path := filepath.Join(t.TempDir(), "annotated.csv")

	if err := WriteCSV(path, traj, results); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}

	header := records[0]
	wantCols := len(traj.Header) + len(AnnotationColumns)
	if len(header) != wantCols {
		t.Fatalf("header has %d columns, want %d", len(header), wantCols)
	}
	if header[0] != "bird_id" || header[len(header)-1] != "F" {
		t.Errorf("header order wrong: first=%q last=%q", header[0], header[len(header)-1])
	}

	// Original columns pass through verbatim.
	if records[1][0] != "b42" || records[1][1] != "52.10" {
		t.Errorf("original columns not preserved: %v", records[1][:4])
	}

	// The annotated row has a populated N_res, the empty one a blank cell.
	nResIdx := len(traj.Header)
	if records[1][nResIdx] == "" {
		t.Error("annotated row must have a populated N_res cell")
	}
	if records[2][nResIdx] != "" {
		t.Errorf("missing value must be an empty cell, got %q", records[2][nResIdx])
	}

	// TotalPoints is always a number, even for the empty cylinder.
	tpIdx := nResIdx + 3
	if records[2][tpIdx] != "0" {
		t.Errorf("TotalPoints cell = %q, want \"0\"", records[2][tpIdx])
	}
}

func TestWriteCSVCountMismatch(t *testing.T) {
	traj, results := fixture()
	path := filepath.Join(t.TempDir(), "annotated.csv")

	if err := WriteCSV(path, traj, results[:1]); err == nil {
		t.Fatal("expected an error for a result/row count mismatch")
	}
}

func TestWriteGeoJSON(t *testing.T) {
	_, results := fixture()
	path := filepath.Join(t.TempDir(), "annotated.geojson")

	if err := WriteGeoJSON(path, results); err != nil {
		t.Fatalf("WriteGeoJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.Type != "FeatureCollection" {
		t.Errorf("type = %q, want FeatureCollection", doc.Type)
	}
	if len(doc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(doc.Features))
	}

	first := doc.Features[0]
	if first.Geometry.Coordinates[0] != 4.30 || first.Geometry.Coordinates[1] != 52.10 {
		t.Errorf("coordinates must be [lon, lat], got %v", first.Geometry.Coordinates)
	}
	if first.Properties["n_res"] == nil {
		t.Error("annotated feature must carry n_res")
	}
	if doc.Features[1].Properties["n_res"] != nil {
		t.Error("missing value must serialize as null")
	}
}
