// Package levels implements the peak/RMS level detector the capture
// callback feeds on every buffer, and the lock-free slot UI code reads
// from at its own cadence.
//
// The detector and the slot are deliberately separate: the detector runs
// on the audio callback and must never allocate or block; the slot is
// four independent atomically-stored float bit-patterns that a reader
// polls without synchronizing with the writer. Torn reads across the
// four values are acceptable; they only feed a UI indicator.
package levels

import (
	"math"
	"sync/atomic"
)

// FloorDB is the dB value reported for a fully silent window.
const FloorDB = -60.0

// windowMs is the RMS accumulation window.
const windowMs = 300

// Detector computes an instantaneous peak (running max since last reset)
// and a rolling RMS over a fixed time window. It is not safe for
// concurrent use; the capture callback is its only caller.
type Detector struct {
	sampleRate int

	peak        float32
	windowSumSq float64
	windowCount int
	windowSize  int

	lastRMS float32
}

// NewDetector returns a Detector sized for sampleRate.
func NewDetector(sampleRate int) *Detector {
	windowSize := sampleRate * windowMs / 1000
	if windowSize < 1 {
		windowSize = 1
	}
	return &Detector{sampleRate: sampleRate, windowSize: windowSize}
}

// Reading is the computed peak/RMS values for one callback invocation.
type Reading struct {
	PeakLinear float32
	RMSLinear  float32
	PeakDB     float32
	RMSDB      float32
}

// Process folds frame (already converted to float32 in [-1,1]) into the
// running peak and windowed RMS accumulators and returns the latest
// reading. Safe to call from a real-time callback: no allocation.
func (d *Detector) Process(frame []float32) Reading {
	for _, s := range frame {
		a := s
		if a < 0 {
			a = -a
		}
		if a > d.peak {
			d.peak = a
		}
		d.windowSumSq += float64(s) * float64(s)
		d.windowCount++
		if d.windowCount >= d.windowSize {
			d.lastRMS = float32(math.Sqrt(d.windowSumSq / float64(d.windowCount)))
			d.windowSumSq = 0
			d.windowCount = 0
		}
	}

	r := Reading{
		PeakLinear: d.peak,
		RMSLinear:  d.lastRMS,
	}
	r.PeakDB = linearToDB(r.PeakLinear)
	r.RMSDB = linearToDB(r.RMSLinear)

	// The instantaneous peak is a running max since last reset;
	// resetting here would make it an average instead, so the caller
	// resets explicitly (e.g. between notes) via Reset.
	return r
}

// Reset clears the running peak and the in-progress RMS window.
func (d *Detector) Reset() {
	d.peak = 0
	d.windowSumSq = 0
	d.windowCount = 0
	d.lastRMS = 0
}

func linearToDB(x float32) float32 {
	if x <= 0 {
		return FloorDB
	}
	db := 20 * math.Log10(float64(x))
	if db < FloorDB {
		return FloorDB
	}
	return float32(db)
}

// Slot is a lock-free holder for the four level values a UI polls.
// Each field is stored as the bit pattern of a float32 via its own
// atomic.Uint32, so writer and reader never block each other.
type Slot struct {
	peakLinear atomic.Uint32
	rmsLinear  atomic.Uint32
	peakDB     atomic.Uint32
	rmsDB      atomic.Uint32
}

// Store publishes a Reading. Called from the capture callback.
func (s *Slot) Store(r Reading) {
	s.peakLinear.Store(math.Float32bits(r.PeakLinear))
	s.rmsLinear.Store(math.Float32bits(r.RMSLinear))
	s.peakDB.Store(math.Float32bits(r.PeakDB))
	s.rmsDB.Store(math.Float32bits(r.RMSDB))
}

// Load returns the most recently stored Reading. Called from any
// goroutine at any cadence.
func (s *Slot) Load() Reading {
	return Reading{
		PeakLinear: math.Float32frombits(s.peakLinear.Load()),
		RMSLinear:  math.Float32frombits(s.rmsLinear.Load()),
		PeakDB:     math.Float32frombits(s.peakDB.Load()),
		RMSDB:      math.Float32frombits(s.rmsDB.Load()),
	}
}
