// Package recorder captures live GPS fixes into a trajectory CSV that the
// annotation pipeline can consume directly. Fixes come either from a serial
// NMEA receiver or from a running gpsd daemon.
package recorder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/stratoberry/go-gpsd"
	"go.bug.st/serial"
)

// Fix is one recorded GPS position.
type Fix struct {
	Latitude  float64
	Longitude float64
	AltitudeM float64
	Time      time.Time
}

// Source delivers a stream of fixes. Start launches the stream, Fixes yields
// them, Close stops the stream and closes the channel.
type Source interface {
	Start() error
	Fixes() <-chan Fix
	Close() error
}

// SerialSource reads NMEA sentences from a serial GPS receiver. GGA sentences
// carry the altitude, RMC sentences carry the validated position and time; a
// fix is emitted per valid RMC using the most recent GGA altitude.
type SerialSource struct {
	port  serial.Port
	fixes chan Fix

	mu      sync.Mutex
	lastAlt float64
}

// NewSerialSource opens portName in 8N1 mode at the given baud rate.
func NewSerialSource(portName string, baudRate int) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS port %s: %w", portName, err)
	}
	return &SerialSource{port: port, fixes: make(chan Fix, 16)}, nil
}

func (s *SerialSource) Start() error {
	go s.readLoop()
	return nil
}

func (s *SerialSource) Fixes() <-chan Fix {
	return s.fixes
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}

func (s *SerialSource) readLoop() {
	defer close(s.fixes)
	scanner := bufio.NewScanner(s.port)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] != '$' {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue // receivers interleave binary and malformed lines
		}

		switch m := sentence.(type) {
		case nmea.GGA:
			if m.FixQuality != nmea.Invalid {
				s.mu.Lock()
				s.lastAlt = m.Altitude
				s.mu.Unlock()
			}
		case nmea.RMC:
			if m.Validity != "A" || !m.Time.Valid || !m.Date.Valid {
				continue
			}
			s.mu.Lock()
			alt := s.lastAlt
			s.mu.Unlock()

			ts := time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
				m.Time.Hour, m.Time.Minute, m.Time.Second, 0, time.UTC)
			s.emit(Fix{
				Latitude:  m.Latitude,
				Longitude: m.Longitude,
				AltitudeM: alt,
				Time:      ts,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("recorder: serial read ended: %v", err)
	}
}

func (s *SerialSource) emit(f Fix) {
	select {
	case s.fixes <- f:
	default: // drop rather than stall the read loop
	}
}

// GPSDSource reads fixes from a gpsd daemon.
type GPSDSource struct {
	address string
	session *gpsd.Session
	fixes   chan Fix
}

// NewGPSDSource prepares a source for the daemon at host:port. Empty host and
// port mean the gpsd default address.
func NewGPSDSource(host, port string) *GPSDSource {
	address := gpsd.DefaultAddress
	if host != "" && port != "" {
		address = fmt.Sprintf("%s:%s", host, port)
	}
	return &GPSDSource{address: address, fixes: make(chan Fix, 16)}
}

func (g *GPSDSource) Start() error {
	session, err := gpsd.Dial(g.address)
	if err != nil {
		return fmt.Errorf("failed to connect to gpsd at %s: %w", g.address, err)
	}
	g.session = session

	g.session.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			return
		}
		// Mode 2 is a 2D fix, mode 3 a 3D fix.
		if tpv.Mode < 2 || (tpv.Lat == 0 && tpv.Lon == 0) {
			return
		}
		f := Fix{
			Latitude:  tpv.Lat,
			Longitude: tpv.Lon,
			AltitudeM: tpv.Alt,
			Time:      tpv.Time,
		}
		select {
		case g.fixes <- f:
		default:
		}
	})

	g.session.Watch()
	return nil
}

func (g *GPSDSource) Fixes() <-chan Fix {
	return g.fixes
}

// Close stops the gpsd session. The fix channel is left open: the TPV filter
// callback runs on the session's goroutine and may still be mid-send, so
// closing the channel here could panic it. The channel is dropped with the
// source instead.
func (g *GPSDSource) Close() error {
	if g.session != nil {
		g.session.Close()
	}
	return nil
}

// Header is the column layout of recorded trajectory files. It matches the
// default column mapping of the annotation command, so a recorded file can be
// annotated without remapping.
var Header = []string{"timestamp", "location-lat", "location-long", "height"}

// Recorder appends fixes to a trajectory CSV, keeping at most one fix per
// minute to match the sampling granularity of the annotation pipeline.
type Recorder struct {
	file   *os.File
	writer *csv.Writer

	lastMinute time.Time
	count      int
}

// NewRecorder creates (or truncates) path and writes the header row.
func NewRecorder(path string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trajectory file: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write trajectory header: %w", err)
	}
	writer.Flush()
	return &Recorder{file: file, writer: writer}, nil
}

// Record writes the fix unless one was already written for the same minute.
// It reports whether the fix was kept.
func (r *Recorder) Record(f Fix) (bool, error) {
	minute := f.Time.UTC().Truncate(time.Minute)
	if minute.Equal(r.lastMinute) {
		return false, nil
	}

	row := []string{
		minute.Format("2006-01-02 15:04:05"),
		strconv.FormatFloat(f.Latitude, 'f', 6, 64),
		strconv.FormatFloat(f.Longitude, 'f', 6, 64),
		strconv.FormatFloat(f.AltitudeM, 'f', 1, 64),
	}
	if err := r.writer.Write(row); err != nil {
		return false, fmt.Errorf("failed to write fix: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return false, err
	}

	r.lastMinute = minute
	r.count++
	return true, nil
}

// Count returns the number of fixes written so far.
func (r *Recorder) Count() int {
	return r.count
}

// Close flushes and closes the trajectory file.
func (r *Recorder) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
