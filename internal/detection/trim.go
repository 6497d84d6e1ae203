// Package detection implements the two pure, deterministic analysis
// algorithms the Exporter runs on captured audio: silence-trimmed
// boundary detection and zero-crossing loop-point discovery. Neither
// function performs I/O or touches shared state; they are ordinary
// functions over float32 slices.
package detection

import (
	"errors"
	"math"

	"hwsampler/internal/types"
)

// ErrWindowTooSmall is returned when DetectionConfig.WindowMs resolves to
// zero samples at the segment's sample rate.
var ErrWindowTooSmall = errors.New("detection: window too small")

// TrimSilence computes the silence-trimmed start/end boundaries for a
// segment's frames using windowed RMS against a dBFS threshold. frames
// is interleaved audio; channels must be >= 1. The only error path is
// ErrWindowTooSmall; every other shortfall (no signal, too short after
// padding) is reported via DetectionResult.Success = false, never an
// error.
func TrimSilence(frames []float32, channels, sampleRate int, cfg types.DetectionConfig) (types.DetectionResult, error) {
	windowLen := cfg.WindowMs * sampleRate / 1000
	if windowLen <= 0 {
		return types.DetectionResult{}, ErrWindowTooSmall
	}

	samplesPerChannel := 0
	if channels > 0 {
		samplesPerChannel = len(frames) / channels
	}
	if samplesPerChannel == 0 {
		return types.DetectionResult{Success: false, FailReason: "no signal"}, nil
	}

	proxy := energyProxy(frames, channels)
	hop := windowLen / 2
	if hop < 1 {
		hop = 1
	}
	windowRMS := slideWindowRMS(proxy, windowLen, hop)
	if len(windowRMS) == 0 {
		return types.DetectionResult{Success: false, FailReason: "no signal"}, nil
	}

	thresholdLinear := math.Pow(10, cfg.ThresholdDB/20)
	confirm := cfg.ConfirmationWindows
	if confirm < 1 {
		confirm = 1
	}

	startWindow, startFound := scanForward(windowRMS, thresholdLinear, confirm)
	endWindow, endFound := scanBackward(windowRMS, thresholdLinear, confirm)

	if !startFound && !endFound {
		return types.DetectionResult{
			Success:    false,
			FailReason: "no signal",
			RMSTrace:   float64ToFloat32(windowRMS),
		}, nil
	}

	// Window i covers samples [i*hop, i*hop+windowLen).
	rawStart := startWindow * hop
	rawEnd := endWindow*hop + windowLen
	if rawEnd > samplesPerChannel {
		rawEnd = samplesPerChannel
	}
	if rawStart > rawEnd {
		rawStart = rawEnd
	}

	preSamples := cfg.PreTriggerMs * sampleRate / 1000
	postSamples := cfg.PostTriggerMs * sampleRate / 1000

	finalStart := rawStart - preSamples
	if finalStart < 0 {
		finalStart = 0
	}
	finalEnd := rawEnd + postSamples
	if finalEnd > samplesPerChannel {
		finalEnd = samplesPerChannel
	}

	minSegSamples := ceilDiv(cfg.MinSegmentMs*sampleRate, 1000)

	result := types.DetectionResult{
		RawStart: rawStart,
		RawEnd:   rawEnd,
		RMSTrace: float64ToFloat32(windowRMS),
	}

	if finalEnd-finalStart < minSegSamples {
		result.Success = false
		result.FailReason = "Sample too short after detection"
		result.TrimmedStart = 0
		result.TrimmedEnd = samplesPerChannel
		return result, nil
	}

	result.Success = true
	result.TrimmedStart = finalStart
	result.TrimmedEnd = finalEnd
	return result, nil
}

// ExtractRange returns the interleaved frames for the per-channel sample
// range [start, end), across all channels.
func ExtractRange(frames []float32, channels, start, end int) []float32 {
	if channels <= 0 || start < 0 || end < start {
		return nil
	}
	lo := start * channels
	hi := end * channels
	if hi > len(frames) {
		hi = len(frames)
	}
	if lo > hi {
		lo = hi
	}
	out := make([]float32, hi-lo)
	copy(out, frames[lo:hi])
	return out
}

// energyProxy folds an interleaved multichannel buffer down to one
// energy-summed value per sample index: sqrt(mean of squares across
// channels). Using energy (not signed amplitude) is fine here because
// the silence-trim windows only ever compare RMS magnitudes.
func energyProxy(frames []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(frames))
		copy(out, frames)
		return out
	}
	n := len(frames) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sumSq float64
		for c := 0; c < channels; c++ {
			v := float64(frames[i*channels+c])
			sumSq += v * v
		}
		out[i] = float32(math.Sqrt(sumSq / float64(channels)))
	}
	return out
}

func slideWindowRMS(proxy []float32, windowLen, hop int) []float64 {
	if windowLen <= 0 {
		return nil
	}
	if len(proxy) < windowLen {
		if len(proxy) == 0 {
			return nil
		}
		return []float64{windowRMS(proxy)}
	}
	var out []float64
	for start := 0; start+windowLen <= len(proxy); start += hop {
		out = append(out, windowRMS(proxy[start:start+windowLen]))
	}
	return out
}

func windowRMS(w []float32) float64 {
	if len(w) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range w {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(w)))
}

// scanForward finds the first index i such that windows[i:i+confirm] are
// all above threshold, falling back to the first single window above
// threshold, then to index 0.
func scanForward(windows []float64, threshold float64, confirm int) (int, bool) {
	for i := 0; i+confirm <= len(windows); i++ {
		if allAbove(windows[i:i+confirm], threshold) {
			return i, true
		}
	}
	for i, v := range windows {
		if v >= threshold {
			return i, true
		}
	}
	return 0, false
}

// scanBackward is the symmetric backward-scanning counterpart of
// scanForward, returning the last window index of the confirmed run.
func scanBackward(windows []float64, threshold float64, confirm int) (int, bool) {
	for i := len(windows) - confirm; i >= 0; i-- {
		if allAbove(windows[i:i+confirm], threshold) {
			return i + confirm - 1, true
		}
	}
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i] >= threshold {
			return i, true
		}
	}
	return len(windows) - 1, false
}

func allAbove(windows []float64, threshold float64) bool {
	for _, v := range windows {
		if v < threshold {
			return false
		}
	}
	return true
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
