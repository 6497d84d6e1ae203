package detection

import (
	"errors"
	"math"

	"hwsampler/internal/types"
)

// ErrInsufficientCrossings is returned when the trimmed signal has fewer
// than four zero crossings to build a candidate from.
var ErrInsufficientCrossings = errors.New("detection: insufficient zero crossings")

// referenceLength is the loop length (in samples) the length-ratio
// component of the quality score is measured against: one second at
// 44.1 kHz.
const referenceLength = 44100.0

// ExtractChannel returns the single-channel mono signal for channel ch of
// an interleaved multichannel buffer.
func ExtractChannel(frames []float32, channels, ch int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(frames))
		copy(out, frames)
		return out
	}
	n := len(frames) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = frames[i*channels+ch]
	}
	return out
}

// ZeroCrossings returns every index i >= 1 where sign(x[i-1]) != sign(x[i]),
// treating 0 as non-positive.
func ZeroCrossings(mono []float32) []int {
	var out []int
	for i := 1; i < len(mono); i++ {
		if signOf(mono[i-1]) != signOf(mono[i]) {
			out = append(out, i)
		}
	}
	return out
}

func signOf(x float32) int {
	if x > 0 {
		return 1
	}
	return -1 // zero counts as non-positive
}

// DetectLoop finds the best loop candidate within mono (the trimmed,
// single-channel analysis signal): zero-crossing pairs inside the
// configured length bounds, scored by boundary correlation, crossing
// alignment, and length ratio.
func DetectLoop(mono []float32, sampleRate int, cfg types.LoopConfig) (types.LoopCandidate, error) {
	crossings := ZeroCrossings(mono)
	if len(crossings) < 4 {
		return types.LoopCandidate{}, ErrInsufficientCrossings
	}

	minLen := int(cfg.MinLoopSeconds * float64(sampleRate))
	maxLen := int(cfg.MaxLoopSeconds * float64(sampleRate))
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 1
	}

	var best types.LoopCandidate
	bestQuality := -1.0
	count := 0

outer:
	for ai, a := range crossings {
		for _, b := range crossings[ai+1:] {
			length := b - a
			if length < minLen {
				continue
			}
			if length > maxLen {
				break // crossings are sorted ascending; further b only grow
			}
			if b >= len(mono) {
				break
			}

			count++
			if count > maxCandidates {
				break outer
			}

			corr := boundaryCorrelation(mono, a, b)
			lengthRatio := math.Min(float64(length)/referenceLength, referenceLength/float64(length))
			quality := 0.7*corr + 0.2*1.0 /* zero-cross aligned by construction */ + 0.1*lengthRatio

			if quality > bestQuality {
				bestQuality = quality
				best = types.LoopCandidate{
					Start:            a,
					End:              b,
					Length:           length,
					Correlation:      corr,
					ZeroCrossAligned: true,
					Quality:          quality,
				}
			}
		}
	}

	if bestQuality <= 0.5 {
		return best, errors.New("detection: no loop candidate met the quality threshold")
	}
	return best, nil
}

// boundaryCorrelation computes the normalized cross-correlation between a
// window centered on sample a and a window centered on sample b.
func boundaryCorrelation(mono []float32, a, b int) float64 {
	w := len(mono) / 10
	if w > 1024 {
		w = 1024
	}
	if w < 2 {
		w = 2
	}
	winA := centeredWindow(mono, a, w)
	winB := centeredWindow(mono, b, w)
	n := len(winA)
	if len(winB) < n {
		n = len(winB)
	}
	if n == 0 {
		return 0
	}
	return normalizedCrossCorrelation(winA[:n], winB[:n])
}

// centeredWindow returns up to w samples centered on idx, clamped to the
// bounds of data. The returned slice may be shorter than w near an edge.
func centeredWindow(data []float32, idx, w int) []float32 {
	half := w / 2
	lo := idx - half
	hi := idx + (w - half)
	if lo < 0 {
		lo = 0
	}
	if hi > len(data) {
		hi = len(data)
	}
	if lo > hi {
		lo = hi
	}
	return data[lo:hi]
}

// normalizedCrossCorrelation computes the absolute value of the Pearson
// correlation coefficient between a and b, 0 when the denominator is 0.
func normalizedCrossCorrelation(a, b []float32) float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return 0
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += float64(a[i])
		meanB += float64(b[i])
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var num, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		num += da * db
		sumA2 += da * da
		sumB2 += db * db
	}
	denom := math.Sqrt(sumA2 * sumB2)
	if denom == 0 {
		return 0
	}
	return math.Abs(num / denom)
}

// ApplyCrossfade blends the first cf samples of the loop region with the
// cf samples immediately preceding loop.End, in place, across every
// channel of frames. Skipped when cf >= loop.Length/2 or cf == 0.
func ApplyCrossfade(frames []float32, channels int, loop types.LoopCandidate, sampleRate, crossfadeMs int) {
	cf := crossfadeMs * sampleRate / 1000
	if cf <= 0 || cf >= loop.Length/2 {
		return
	}
	for c := 0; c < channels; c++ {
		for i := 0; i < cf; i++ {
			startIdx := (loop.Start+i)*channels + c
			endIdx := (loop.End-cf+i)*channels + c
			if startIdx < 0 || startIdx >= len(frames) || endIdx < 0 || endIdx >= len(frames) {
				continue
			}
			t := float32(i) / float32(cf)
			frames[startIdx] = frames[startIdx]*(1-t) + frames[endIdx]*t
		}
	}
}
