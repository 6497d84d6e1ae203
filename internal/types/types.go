// Package types holds the data model shared by every stage of the
// sampling pipeline: capture, detection, and export all read and write
// these structures without importing one another.
package types

import "time"

// SampleFormat identifies the native format the capture device delivers.
type SampleFormat int

const (
	FormatFloat32 SampleFormat = iota
	FormatInt16
	FormatUint16
)

// Encoding identifies the on-disk PCM encoding the Exporter writes.
type Encoding int

const (
	EncodingInt16 Encoding = iota
	EncodingInt24
	EncodingFloat32
)

// InstrumentFlavor selects which instrument-definition file(s) the
// Exporter emits alongside the audio files.
type InstrumentFlavor int

const (
	InstrumentNone InstrumentFlavor = iota
	InstrumentDspreset
	InstrumentSfz
	InstrumentBoth
)

// Segment is one recorded note: the audio captured for a single
// (pitch, velocity) pair, plus its performance metadata.
type Segment struct {
	Note           int
	Velocity       int
	Frames         []float32 // interleaved, channels * samples-per-channel
	SampleRate     int
	Channels       int
	CapturedAt     time.Time
	GateDuration   time.Duration // measured MIDI note-on..note-off span
	CaptureElapsed time.Duration // measured total capture span (protocol step 1..13)

	Detection *DetectionResult // nil until Detection has run
	Loop      *LoopCandidate   // nil until loop detection has run and succeeded
}

// SamplesPerChannel returns len(Frames) / Channels, or 0 if Channels <= 0.
func (s *Segment) SamplesPerChannel() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Frames) / s.Channels
}

// DetectionResult is the silence-trim annotation produced by Detection
// for a single Segment. It is never mutated after creation.
type DetectionResult struct {
	Success      bool
	FailReason   string
	RawStart     int // first above-threshold window, in samples, before padding
	RawEnd       int // last above-threshold window, in samples, before padding
	TrimmedStart int // RawStart - pre-trigger padding, saturated at 0
	TrimmedEnd   int // RawEnd + post-trigger padding, clamped to length
	RMSTrace     []float32
}

// LoopCandidate is a candidate (or chosen) loop interval within the
// trimmed region of a Segment.
type LoopCandidate struct {
	Start            int
	End              int
	Length           int
	Correlation      float64
	ZeroCrossAligned bool
	Quality          float64
}

// CaptureConfig is immutable for the lifetime of a recording session.
type CaptureConfig struct {
	PreRollMs   int
	NoteGateMs  int
	ReleaseMs   int
	PostDelayMs int
	Channel     int // 0..15
	Velocity    int // 1..127, default velocity when a range has no explicit list
	DeviceHint  string
}

// DetectionConfig tunes the silence-trim algorithm.
type DetectionConfig struct {
	ThresholdDB         float64 // -60..-10
	WindowMs            int
	MinSegmentMs        int
	PreTriggerMs        int
	PostTriggerMs       int
	ConfirmationWindows int // >= 1
}

// LoopConfig tunes zero-crossing loop-point discovery.
type LoopConfig struct {
	MinLoopSeconds float64
	MaxLoopSeconds float64
	MaxCandidates  int
	CorrelationMin float64
	CrossfadeMs    int
}

// ExportConfig controls how segments are rendered and written to disk.
type ExportConfig struct {
	OutputDir        string
	FilenameTemplate string // placeholders: {note} {note_name} {velocity} {timestamp} {sample_rate}
	Encoding         Encoding
	Flavor           InstrumentFlavor
	Normalize        bool
	FadeInMs         int
	FadeOutMs        int
	DetectionEnabled bool
	Creator          string
	Description      string
}

// DefaultCaptureConfig returns sensible defaults for most hardware synths.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		PreRollMs:   100,
		NoteGateMs:  2000,
		ReleaseMs:   500,
		PostDelayMs: 100,
		Channel:     0,
		Velocity:    100,
	}
}

// DefaultDetectionConfig returns sensible defaults for most captures.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		ThresholdDB:         -40,
		WindowMs:            20,
		MinSegmentMs:        50,
		PreTriggerMs:        5,
		PostTriggerMs:       20,
		ConfirmationWindows: 3,
	}
}

// DefaultLoopConfig returns sensible defaults for sustained material.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MinLoopSeconds: 0.05,
		MaxLoopSeconds: 2.0,
		MaxCandidates:  500,
		CorrelationMin: 0.8,
		CrossfadeMs:    5,
	}
}

// DefaultExportConfig returns sensible defaults for a sample library.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		OutputDir:        "./samples",
		FilenameTemplate: "{note_name}_{note}_vel{velocity}",
		Encoding:         EncodingInt16,
		Flavor:           InstrumentBoth,
		Normalize:        true,
		FadeInMs:         2,
		FadeOutMs:        20,
		DetectionEnabled: true,
	}
}
