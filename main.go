// MagGeo - geomagnetic annotation tool for GPS trajectories
// This program enriches GPS tracking data with the Earth's magnetic field
// as measured by the Swarm satellite constellation at the time and place
// of each GPS fix.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MagGeo/MagGeo/internal/annotate"
	"github.com/MagGeo/MagGeo/internal/config"
	"github.com/MagGeo/MagGeo/internal/export"
	"github.com/MagGeo/MagGeo/internal/model"
	"github.com/MagGeo/MagGeo/internal/swarm"
	"github.com/MagGeo/MagGeo/internal/track"
	"github.com/MagGeo/MagGeo/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile     string // Configuration file path
	gpsFile     string // GPS trajectory file path
	gpsFormat   string // Input format: csv or nmea
	latCol      string // Latitude column name
	lonCol      string // Longitude column name
	timeCol     string // Timestamp column name
	altCol      string // Altitude column name (optional)
	swarmDir    string // Satellite data directory
	workers     int    // Concurrent chunk workers
	chunkSize   int    // Fixed chunk size (0 = automatic)
	outputCSV   string // Annotated CSV output path
	outputGeo   string // GeoJSON output path
	verbose     bool   // Enable verbose logging
	showVersion bool   // Print version and exit
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maggeo",
	Short: "Annotate GPS trajectories with Swarm geomagnetic data",
	Long: `MagGeo annotates GPS tracking data with the Earth's magnetic field at the
time and place of each fix, interpolated from Swarm satellite measurements
and corrected against a reference field model.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.Info("maggeo"))
			return
		}
		if err := runAnnotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	// Initialize configuration when cobra starts
	cobra.OnInitialize(initConfig)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./config.yaml", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Trajectory input options
	rootCmd.Flags().StringVarP(&gpsFile, "gps-file", "g", "", "GPS trajectory file (CSV or NMEA log)")
	rootCmd.Flags().StringVar(&gpsFormat, "gps-format", "csv", "trajectory format: csv or nmea")
	rootCmd.Flags().StringVar(&latCol, "lat-col", "location-lat", "latitude column name")
	rootCmd.Flags().StringVar(&lonCol, "lon-col", "location-long", "longitude column name")
	rootCmd.Flags().StringVar(&timeCol, "time-col", "timestamp", "timestamp column name")
	rootCmd.Flags().StringVar(&altCol, "alt-col", "", "altitude column name (optional, km)")

	// Satellite data and annotation options
	rootCmd.Flags().StringVarP(&swarmDir, "swarm-dir", "s", "./swarm", "directory with per-satellite daily CSV files")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent workers (0 = one per CPU)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "points per chunk (0 = automatic)")

	// Output options
	rootCmd.Flags().StringVarP(&outputCSV, "output", "o", "annotated.csv", "annotated CSV output path")
	rootCmd.Flags().StringVar(&outputGeo, "geojson", "", "GeoJSON output path (optional)")

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("gps.file", rootCmd.Flags().Lookup("gps-file"))
	viper.BindPFlag("gps.format", rootCmd.Flags().Lookup("gps-format"))
	viper.BindPFlag("gps.lat_column", rootCmd.Flags().Lookup("lat-col"))
	viper.BindPFlag("gps.lon_column", rootCmd.Flags().Lookup("lon-col"))
	viper.BindPFlag("gps.datetime_column", rootCmd.Flags().Lookup("time-col"))
	viper.BindPFlag("gps.altitude_column", rootCmd.Flags().Lookup("alt-col"))
	viper.BindPFlag("swarm.dir", rootCmd.Flags().Lookup("swarm-dir"))
	viper.BindPFlag("annotation.workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("annotation.chunk_size", rootCmd.Flags().Lookup("chunk-size"))
	viper.BindPFlag("output.csv", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("output.geojson", rootCmd.Flags().Lookup("geojson"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config.yaml in current directory
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Read in environment variables that match
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runAnnotate is the main application logic
func runAnnotate() error {
	// Load default configuration
	cfg := config.DefaultConfig()

	// Override with values from config file and command line flags
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GPS.File == "" {
		return fmt.Errorf("no trajectory file: set --gps-file or gps.file in the config")
	}
	switch cfg.GPS.Format {
	case "csv", "nmea":
	default:
		return fmt.Errorf("invalid trajectory format: %s (must be 'csv' or 'nmea')", cfg.GPS.Format)
	}
	if cfg.Output.CSV == "" {
		return fmt.Errorf("no output path: set --output or output.csv in the config")
	}

	// Display startup information
	fmt.Printf("MagGeo %s starting...\n", version.Short())
	fmt.Printf("Trajectory: %s (%s)\n", cfg.GPS.File, cfg.GPS.Format)
	fmt.Printf("Swarm data: %s\n", cfg.Swarm.Dir)
	fmt.Printf("Output: %s\n", cfg.Output.CSV)

	// Load the trajectory
	var traj *track.Trajectory
	var err error
	switch cfg.GPS.Format {
	case "nmea":
		traj, err = track.ReadNMEA(cfg.GPS.File)
	default:
		traj, err = track.ReadCSV(cfg.GPS.File, track.Columns{
			Lat:      cfg.GPS.LatColumn,
			Lon:      cfg.GPS.LonColumn,
			DateTime: cfg.GPS.DateTimeColumn,
			Altitude: cfg.GPS.AltitudeColumn,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to load trajectory: %w", err)
	}
	fmt.Printf("Loaded %d GPS points\n", len(traj.Points))

	// Load satellite data for every day the trajectory's cylinders can reach
	window := cfg.Annotation.Window
	if window <= 0 {
		window = annotate.TimeWindow
	}
	dates := traj.RequiredDates(window)
	if len(dates) > 0 {
		fmt.Printf("Satellite coverage needed: %s to %s (%d days)\n",
			dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"), len(dates))
	}

	pool, err := swarm.LoadDirectory(cfg.Swarm.Dir, dates)
	if err != nil {
		return fmt.Errorf("failed to load satellite data: %w", err)
	}
	if pool.Total() == 0 {
		return fmt.Errorf("no satellite measurements found in %s for the trajectory dates", cfg.Swarm.Dir)
	}
	fmt.Printf("Loaded %d satellite measurements\n", pool.Total())

	reportCoverage(cfg.Swarm.Dir, dates)

	// Annotate, stopping cleanly on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := annotate.NewScheduler(&model.Dipole{}, annotate.Options{
		Workers:   cfg.Annotation.Workers,
		ChunkSize: cfg.Annotation.ChunkSize,
		Window:    window,
		Verbose:   verbose,
	})

	start := time.Now()
	results, err := scheduler.Annotate(ctx, traj, pool)
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}
	elapsed := time.Since(start)

	// Write outputs
	if err := export.WriteCSV(cfg.Output.CSV, traj, results); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if cfg.Output.GeoJSON != "" {
		if err := export.WriteGeoJSON(cfg.Output.GeoJSON, results); err != nil {
			return fmt.Errorf("failed to write GeoJSON: %w", err)
		}
	}

	annotated := 0
	for i := range results {
		if results[i].TotalPoints > 0 {
			annotated++
		}
	}
	fmt.Printf("Annotated %d of %d points in %v\n", annotated, len(results), elapsed.Round(time.Millisecond))
	fmt.Printf("Results written to %s\n", cfg.Output.CSV)
	return nil
}

// reportCoverage warns about trajectory days with no satellite files. Missing
// days are not fatal: points near them simply end up with empty cylinders.
func reportCoverage(dir string, dates []time.Time) {
	for _, day := range dates {
		for _, sat := range swarm.Satellites {
			if !swarm.Available(dir, sat, day) {
				fmt.Fprintf(os.Stderr, "Warning: no data for satellite %s on %s\n",
					sat, day.Format("2006-01-02"))
			}
		}
	}
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
