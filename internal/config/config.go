// Package config provides configuration structures and defaults for MagGeo
package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	GPS        GPSConfig        `yaml:"gps" mapstructure:"gps"`               // GPS trajectory input settings
	Swarm      SwarmConfig      `yaml:"swarm" mapstructure:"swarm"`           // Satellite data pool settings
	Annotation AnnotationConfig `yaml:"annotation" mapstructure:"annotation"` // Annotation run settings
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`         // Output file settings
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`       // Logging configuration
}

// GPSConfig contains GPS trajectory input parameters
type GPSConfig struct {
	File           string `yaml:"file" mapstructure:"file"`                       // Trajectory CSV or NMEA log path
	Format         string `yaml:"format" mapstructure:"format"`                   // Input format: "csv" or "nmea"
	LatColumn      string `yaml:"lat_column" mapstructure:"lat_column"`           // Latitude column name (CSV)
	LonColumn      string `yaml:"lon_column" mapstructure:"lon_column"`           // Longitude column name (CSV)
	DateTimeColumn string `yaml:"datetime_column" mapstructure:"datetime_column"` // Timestamp column name (CSV)
	AltitudeColumn string `yaml:"altitude_column" mapstructure:"altitude_column"` // Altitude column name (CSV, optional)
}

// SwarmConfig contains satellite measurement pool parameters
type SwarmConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // Directory holding per-satellite daily CSV files
}

// AnnotationConfig contains annotation run parameters
type AnnotationConfig struct {
	Workers   int           `yaml:"workers" mapstructure:"workers"`       // Concurrent chunk workers (0 = one per CPU)
	ChunkSize int           `yaml:"chunk_size" mapstructure:"chunk_size"` // Fixed chunk size (0 = automatic)
	Window    time.Duration `yaml:"window" mapstructure:"window"`         // Temporal half-width of the cylinder
}

// OutputConfig contains output file parameters
type OutputConfig struct {
	CSV     string `yaml:"csv" mapstructure:"csv"`         // Annotated CSV output path
	GeoJSON string `yaml:"geojson" mapstructure:"geojson"` // GeoJSON output path (empty = skip)
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // Log level (debug, info, warn, error)
	File  string `yaml:"file" mapstructure:"file"`  // Log file path
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		GPS: GPSConfig{
			File:           "",              // No default trajectory
			Format:         "csv",           // Movebank-style CSV by default
			LatColumn:      "location-lat",  // Movebank column names
			LonColumn:      "location-long", //
			DateTimeColumn: "timestamp",     //
			AltitudeColumn: "",              // Ground level unless given
		},
		Swarm: SwarmConfig{
			Dir: "./swarm", // Per-satellite daily files live here
		},
		Annotation: AnnotationConfig{
			Workers:   0,             // One worker per CPU
			ChunkSize: 0,             // Sized from trajectory length
			Window:    4 * time.Hour, // Temporal half-width
		},
		Output: OutputConfig{
			CSV:     "annotated.csv", // Annotated table
			GeoJSON: "",              // GeoJSON disabled by default
		},
		Logging: LoggingConfig{
			Level: "info",       // Info level logging
			File:  "maggeo.log", // Log to maggeo.log file
		},
	}
}
