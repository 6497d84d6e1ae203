package main

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"hwsampler/internal/types"
)

// interNoteGap is the quiescent gap between notes in a range, letting
// the instrument's tail fully decay before the next buffer clear.
const interNoteGap = 300 * time.Millisecond

// hardwareSettle is the fixed pause between the per-note channel panic
// and the note-on.
const hardwareSettle = 50 * time.Millisecond

// captureUnderrunThreshold is the number of accumulated
// CaptureUnderrunErrors a range tolerates before treating them as
// fatal. Individual underruns are logged and the stream continues.
const captureUnderrunThreshold = 5

// midiPort is the subset of MIDITransport the Orchestrator drives.
type midiPort interface {
	NoteOn(channel, note, velocity int) error
	NoteOff(channel, note int) error
	ChannelPanic(channel int) error
	Panic()
}

// captureBuffer is the subset of CaptureEngine the Orchestrator reads
// and arms; kept as an interface so session logic can be tested
// without a live PortAudio stream.
type captureBuffer interface {
	Clear()
	Arm()
	Disarm()
	Snapshot() []float32
	SampleRate() int
	Channels() int
	Errors() <-chan error
}

// Orchestrator is the single driver of the sampling pipeline: for each
// requested (note, velocity) it clears the recording buffer, arms
// capture, schedules MIDI on/off with pre-roll and release tail,
// disarms, and returns the captured frames as a Segment. The worker
// loop is a sequence of blocking sleeps interleaved with state
// transitions, checking a cancellation flag at each boundary rather
// than using a ticker.
type Orchestrator struct {
	midi    midiPort
	capture captureBuffer

	openStream  func() error
	closeStream func()

	cfg types.CaptureConfig

	sleep    func(time.Duration)
	canceled atomic.Bool

	underrunCount int
}

// NewOrchestrator builds an Orchestrator. openStream/closeStream are
// injected so the stream-lifecycle calls (which need a live
// *portaudio.DeviceInfo) stay out of this package's test surface.
func NewOrchestrator(midi midiPort, capture captureBuffer, openStream func() error, closeStream func(), cfg types.CaptureConfig) *Orchestrator {
	return &Orchestrator{
		midi:        midi,
		capture:     capture,
		openStream:  openStream,
		closeStream: closeStream,
		cfg:         cfg,
		sleep:       time.Sleep,
	}
}

// Cancel requests cooperative cancellation: the Orchestrator finishes
// its current note, then skips any remaining ones, disarms, pans, and
// returns partial results.
func (o *Orchestrator) Cancel() { o.canceled.Store(true) }

// SampleOne captures a single note at the given velocity. It is
// equivalent to a SampleRange over a single-note, single-velocity set.
func (o *Orchestrator) SampleOne(note, velocity int) (types.Segment, error) {
	if note < 0 || note > 127 {
		return types.Segment{}, ErrInvalidNote
	}
	segments, err := o.SampleRange(note, note, []int{velocity})
	if err != nil {
		return types.Segment{}, err
	}
	if len(segments) == 0 {
		return types.Segment{}, nil
	}
	return segments[0], nil
}

// SampleRange captures every note in [startNote, endNote] at each of
// velocities, iterating velocity outer / note inner so the
// instrument's amplitude envelope settles between velocity sweeps.
// It owns the stream for the whole range: one open, one close,
// regardless of note count.
func (o *Orchestrator) SampleRange(startNote, endNote int, velocities []int) ([]types.Segment, error) {
	if startNote < 0 || endNote > 127 || startNote > endNote {
		return nil, ErrInvalidRange
	}
	if len(velocities) == 0 {
		velocities = []int{o.cfg.Velocity}
	}
	for _, v := range velocities {
		if v < 1 || v > 127 {
			return nil, ErrInvalidVelocity
		}
	}

	o.midi.Panic()
	if err := o.openStream(); err != nil {
		return nil, err
	}
	defer func() {
		o.capture.Disarm()
		o.closeStream()
		o.midi.Panic()
	}()

	var segments []types.Segment
	first := true
	for _, velocity := range velocities {
		for note := startNote; note <= endNote; note++ {
			if o.canceled.Load() {
				return segments, nil
			}
			if !first {
				o.sleep(interNoteGap)
				if o.canceled.Load() {
					return segments, nil
				}
			}
			first = false

			seg, err := o.captureNote(note, velocity)
			segments = append(segments, seg)
			if err != nil {
				return segments, err
			}

			o.underrunCount += o.drainCaptureErrors()
			if o.underrunCount > captureUnderrunThreshold {
				return segments, fmt.Errorf("orchestrator: %d capture underruns: %w", o.underrunCount, ErrCaptureUnderrunThreshold)
			}
		}
	}
	return segments, nil
}

// drainCaptureErrors pulls every CaptureUnderrunError queued since the
// last check and logs it, returning how many were found. Non-blocking:
// called at note boundaries, never inside the real-time callback.
func (o *Orchestrator) drainCaptureErrors() int {
	n := 0
	for {
		select {
		case err, ok := <-o.capture.Errors():
			if !ok {
				return n
			}
			n++
			log.Printf("[orchestrator] %v", err)
		default:
			return n
		}
	}
}

// captureNote runs the per-note protocol: clear, arm, pre-roll,
// channel panic, settle, note-on, gate, note-off, release tail,
// post-delay, disarm, snapshot. The note-on/note-off writes are
// normal-operation MIDI traffic, not part of the best-effort panic
// sweep, so the first write failure is wrapped as a MidiWriteError and
// returned alongside whatever was captured before the hardware went
// silent.
func (o *Orchestrator) captureNote(note, velocity int) (types.Segment, error) {
	elapsedStart := time.Now()

	o.capture.Clear()
	o.capture.Arm()

	o.sleep(time.Duration(o.cfg.PreRollMs) * time.Millisecond)
	o.midi.ChannelPanic(o.cfg.Channel)
	o.sleep(hardwareSettle)

	tMidi := time.Now()
	var writeErr error
	if err := o.midi.NoteOn(o.cfg.Channel, note, velocity); err != nil {
		writeErr = &MidiWriteError{Err: err}
	}
	o.sleep(time.Duration(o.cfg.NoteGateMs) * time.Millisecond)
	if err := o.midi.NoteOff(o.cfg.Channel, note); err != nil && writeErr == nil {
		writeErr = &MidiWriteError{Err: err}
	}
	gateDuration := time.Since(tMidi)

	o.sleep(time.Duration(o.cfg.ReleaseMs) * time.Millisecond)
	o.sleep(time.Duration(o.cfg.PostDelayMs) * time.Millisecond)

	o.capture.Disarm()
	frames := o.capture.Snapshot()

	seg := types.Segment{
		Note:           note,
		Velocity:       velocity,
		Frames:         frames,
		SampleRate:     o.capture.SampleRate(),
		Channels:       o.capture.Channels(),
		CapturedAt:     elapsedStart,
		GateDuration:   gateDuration,
		CaptureElapsed: time.Since(elapsedStart),
	}
	return seg, writeErr
}
