// MagGeo Coverage - satellite data coverage report for a GPS trajectory
// Checks which per-satellite daily files are present before an annotation
// run, so missing days can be fetched instead of silently producing empty
// cylinders.
package main

import (
	"fmt"
	"os"

	"github.com/MagGeo/MagGeo/internal/annotate"
	"github.com/MagGeo/MagGeo/internal/swarm"
	"github.com/MagGeo/MagGeo/internal/track"
	"github.com/MagGeo/MagGeo/internal/version"

	"github.com/spf13/cobra"
)

var (
	gpsFile     string
	latCol      string
	lonCol      string
	timeCol     string
	swarmDir    string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "maggeo-coverage",
	Short: "Report satellite data coverage for a GPS trajectory",
	Long: `MagGeo Coverage reads a GPS trajectory, works out which UTC days the
annotation run will need satellite data for, and reports which per-satellite
daily files are present in the data directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.Info("maggeo-coverage"))
			return
		}
		if err := runCoverage(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&gpsFile, "gps-file", "g", "", "GPS trajectory CSV file (required)")
	rootCmd.Flags().StringVar(&latCol, "lat-col", "location-lat", "latitude column name")
	rootCmd.Flags().StringVar(&lonCol, "lon-col", "location-long", "longitude column name")
	rootCmd.Flags().StringVar(&timeCol, "time-col", "timestamp", "timestamp column name")
	rootCmd.Flags().StringVarP(&swarmDir, "swarm-dir", "s", "./swarm", "directory with per-satellite daily CSV files")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")
	rootCmd.MarkFlagRequired("gps-file")
}

func runCoverage() error {
	traj, err := track.ReadCSV(gpsFile, track.Columns{
		Lat:      latCol,
		Lon:      lonCol,
		DateTime: timeCol,
	})
	if err != nil {
		return fmt.Errorf("failed to load trajectory: %w", err)
	}

	dates := traj.RequiredDates(annotate.TimeWindow)
	if len(dates) == 0 {
		fmt.Println("Trajectory has no points; nothing to cover.")
		return nil
	}

	fmt.Printf("Trajectory: %s (%d points)\n", gpsFile, len(traj.Points))
	fmt.Printf("Days needed: %d (%s to %s)\n\n",
		len(dates), dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"))

	fmt.Printf("%-12s  %s  %s  %s\n", "Date", "A", "B", "C")
	missing := 0
	for _, day := range dates {
		marks := make([]string, len(swarm.Satellites))
		for i, sat := range swarm.Satellites {
			if swarm.Available(swarmDir, sat, day) {
				marks[i] = "+"
			} else {
				marks[i] = "-"
				missing++
			}
		}
		fmt.Printf("%-12s  %s  %s  %s\n", day.Format("2006-01-02"), marks[0], marks[1], marks[2])
	}

	fmt.Println()
	if missing == 0 {
		fmt.Println("Coverage complete.")
		return nil
	}
	fmt.Printf("%d satellite-day files missing from %s\n", missing, swarmDir)
	fmt.Printf("Expected names look like: %s\n", swarm.Filename(swarm.SatelliteA, dates[0]))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
