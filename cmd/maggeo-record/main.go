// MagGeo Record - live GPS trajectory recorder
// Streams fixes from a serial NMEA receiver or a gpsd daemon into a
// trajectory CSV that the annotation tool can consume directly.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MagGeo/MagGeo/internal/recorder"
	"github.com/MagGeo/MagGeo/internal/version"

	"github.com/spf13/cobra"
)

var (
	gpsMode     string
	gpsPort     string
	baudRate    int
	gpsdHost    string
	gpsdPort    string
	outputPath  string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "maggeo-record",
	Short: "Record a GPS trajectory for later annotation",
	Long: `MagGeo Record captures live GPS fixes into a trajectory CSV, one fix per
minute, until interrupted. The output file feeds straight into the maggeo
annotation command.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.Info("maggeo-record"))
			return
		}
		if err := runRecord(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&gpsMode, "gps-mode", "nmea", "GPS source: nmea or gpsd")
	rootCmd.Flags().StringVarP(&gpsPort, "gps-port", "p", "/dev/ttyUSB0", "GPS serial port (for NMEA mode)")
	rootCmd.Flags().IntVar(&baudRate, "baud-rate", 9600, "serial baud rate (for NMEA mode)")
	rootCmd.Flags().StringVar(&gpsdHost, "gpsd-host", "localhost", "GPSD host address (for gpsd mode)")
	rootCmd.Flags().StringVar(&gpsdPort, "gpsd-port", "2947", "GPSD port (for gpsd mode)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "track.csv", "trajectory CSV output path")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")
}

func runRecord() error {
	var source recorder.Source
	switch gpsMode {
	case "nmea":
		s, err := recorder.NewSerialSource(gpsPort, baudRate)
		if err != nil {
			return err
		}
		source = s
	case "gpsd":
		source = recorder.NewGPSDSource(gpsdHost, gpsdPort)
	default:
		return fmt.Errorf("invalid GPS mode: %s (must be 'nmea' or 'gpsd')", gpsMode)
	}

	rec, err := recorder.NewRecorder(outputPath)
	if err != nil {
		return err
	}

	if err := source.Start(); err != nil {
		rec.Close()
		return err
	}
	defer source.Close()

	fmt.Printf("Recording to %s (mode: %s), press Ctrl-C to stop...\n", outputPath, gpsMode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case fix, ok := <-source.Fixes():
			if !ok {
				break loop
			}
			kept, err := rec.Record(fix)
			if err != nil {
				rec.Close()
				return err
			}
			if kept {
				fmt.Printf("Fix %d: %.6f, %.6f (%.1f m) at %s\n",
					rec.Count(), fix.Latitude, fix.Longitude, fix.AltitudeM,
					fix.Time.UTC().Format("15:04:05"))
			}
		case <-sigChan:
			fmt.Println("\nStopping...")
			break loop
		}
	}

	if err := rec.Close(); err != nil {
		return err
	}
	fmt.Printf("Recorded %d fixes to %s\n", rec.Count(), outputPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
