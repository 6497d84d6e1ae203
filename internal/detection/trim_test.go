package detection

import (
	"math"
	"testing"

	"hwsampler/internal/types"
)

func sine(amplitude float32, n int, sampleRate, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = amplitude * float32(math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func silence(n int) []float32 { return make([]float32, n) }

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func defaultCfg() types.DetectionConfig {
	return types.DetectionConfig{
		ThresholdDB:         -40,
		WindowMs:            20,
		MinSegmentMs:        50,
		PreTriggerMs:        5,
		PostTriggerMs:       20,
		ConfirmationWindows: 3,
	}
}

func TestTrimSilenceWindowTooSmall(t *testing.T) {
	cfg := defaultCfg()
	cfg.WindowMs = 0
	_, err := TrimSilence(sine(0.5, 1000, 44100, 440), 1, 44100, cfg)
	if err != ErrWindowTooSmall {
		t.Fatalf("err = %v, want ErrWindowTooSmall", err)
	}
}

func TestTrimSilenceFindsTone(t *testing.T) {
	sr := 44100.0
	lead := silence(int(0.2 * sr))
	tone := sine(0.8, int(0.5*sr), sr, 440)
	tail := silence(int(0.2 * sr))
	frames := concat(lead, tone, tail)

	result, err := TrimSilence(frames, 1, int(sr), defaultCfg())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.FailReason)
	}
	if result.TrimmedStart <= 0 || result.TrimmedStart >= len(lead)+5000 {
		t.Errorf("TrimmedStart = %d, want roughly near %d", result.TrimmedStart, len(lead))
	}
	if result.TrimmedEnd <= len(lead) {
		t.Errorf("TrimmedEnd = %d, want greater than lead length %d", result.TrimmedEnd, len(lead))
	}
	if result.TrimmedStart > result.RawStart || result.RawStart > result.RawEnd || result.RawEnd > result.TrimmedEnd {
		t.Errorf("invariant violated: %d <= %d <= %d <= %d", result.TrimmedStart, result.RawStart, result.RawEnd, result.TrimmedEnd)
	}
}

func TestTrimSilenceNoSignal(t *testing.T) {
	frames := silence(44100)
	result, err := TrimSilence(frames, 1, 44100, defaultCfg())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure on pure silence")
	}
}

func TestTrimSilenceTooShortAfterDetection(t *testing.T) {
	cfg := defaultCfg()
	cfg.MinSegmentMs = 5000 // require 5s, buffer is much shorter
	sr := 44100.0
	frames := concat(silence(int(0.05*sr)), sine(0.8, int(0.05*sr), sr, 440), silence(int(0.05*sr)))
	result, err := TrimSilence(frames, 1, int(sr), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure due to min segment length")
	}
	if result.FailReason != "Sample too short after detection" {
		t.Errorf("FailReason = %q", result.FailReason)
	}
}

func TestTrimSilenceIdempotent(t *testing.T) {
	sr := 44100.0
	lead := silence(int(0.2 * sr))
	tone := sine(0.8, int(0.5*sr), sr, 440)
	tail := silence(int(0.2 * sr))
	frames := concat(lead, tone, tail)
	cfg := defaultCfg()

	first, err := TrimSilence(frames, 1, int(sr), cfg)
	if err != nil || !first.Success {
		t.Fatalf("first trim failed: %v %+v", err, first)
	}
	trimmed := ExtractRange(frames, 1, first.TrimmedStart, first.TrimmedEnd)

	second, err := TrimSilence(trimmed, 1, int(sr), cfg)
	if err != nil || !second.Success {
		t.Fatalf("second trim failed: %v %+v", err, second)
	}

	windowLen := cfg.WindowMs * int(sr) / 1000
	if second.TrimmedStart > windowLen {
		t.Errorf("re-trim start moved by %d samples, more than one window (%d)", second.TrimmedStart, windowLen)
	}
	if (len(trimmed) - second.TrimmedEnd) > windowLen {
		t.Errorf("re-trim end moved by %d samples, more than one window (%d)", len(trimmed)-second.TrimmedEnd, windowLen)
	}
}

func TestTrimSilenceMultichannel(t *testing.T) {
	sr := 44100.0
	left := concat(silence(int(0.1*sr)), sine(0.8, int(0.3*sr), sr, 440), silence(int(0.1*sr)))
	right := concat(silence(int(0.1*sr)), sine(0.8, int(0.3*sr), sr, 440), silence(int(0.1*sr)))
	interleaved := make([]float32, len(left)*2)
	for i := range left {
		interleaved[i*2] = left[i]
		interleaved[i*2+1] = right[i]
	}
	result, err := TrimSilence(interleaved, 2, int(sr), defaultCfg())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success for stereo tone: %s", result.FailReason)
	}
}
