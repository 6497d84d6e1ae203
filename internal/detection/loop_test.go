package detection

import (
	"math"
	"testing"

	"hwsampler/internal/types"
)

func TestZeroCrossingsSine(t *testing.T) {
	sr := 44100.0
	mono := sine(1.0, int(sr), sr, 440) // 1 second @ 440Hz
	crossings := ZeroCrossings(mono)
	// A 440Hz tone over 1s has 880 crossings (2 per cycle).
	if len(crossings) < 870 || len(crossings) > 890 {
		t.Errorf("len(crossings) = %d, want ~880", len(crossings))
	}
}

func TestZeroCrossingsAreSignChanges(t *testing.T) {
	mono := []float32{0.5, -0.5, 0.5, 0.5, -0.1}
	crossings := ZeroCrossings(mono)
	want := []int{1, 2, 4}
	if len(crossings) != len(want) {
		t.Fatalf("crossings = %v, want %v", crossings, want)
	}
	for i, idx := range want {
		if crossings[i] != idx {
			t.Errorf("crossings[%d] = %d, want %d", i, crossings[i], idx)
		}
	}
}

func TestNormalizedCrossCorrelationSelf(t *testing.T) {
	mono := sine(0.8, 2000, 44100, 440)
	corr := normalizedCrossCorrelation(mono, mono)
	if math.Abs(corr-1.0) > 1e-3 {
		t.Errorf("self-correlation = %v, want ~1.0", corr)
	}
}

func TestNormalizedCrossCorrelationZeroDenominator(t *testing.T) {
	flat := make([]float32, 100)
	corr := normalizedCrossCorrelation(flat, flat)
	if corr != 0 {
		t.Errorf("corr = %v, want 0 for constant signal", corr)
	}
}

func TestDetectLoopInsufficientCrossings(t *testing.T) {
	mono := []float32{0.1, 0.2, 0.3}
	_, err := DetectLoop(mono, 44100, types.DefaultLoopConfig())
	if err != ErrInsufficientCrossings {
		t.Fatalf("err = %v, want ErrInsufficientCrossings", err)
	}
}

func TestDetectLoopPureSine(t *testing.T) {
	sr := 44100.0
	mono := sine(0.8, int(sr), sr, 440) // 1s @ 440Hz, period = 100.2 samples
	cfg := types.LoopConfig{
		MinLoopSeconds: 0.001,
		MaxLoopSeconds: 0.01, // a few periods
		MaxCandidates:  2000,
		CorrelationMin: 0.5,
		CrossfadeMs:    1,
	}
	candidate, err := DetectLoop(mono, int(sr), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate.Quality <= 0.9 {
		t.Errorf("Quality = %v, want > 0.9 for a pure tone", candidate.Quality)
	}
	if candidate.Correlation < 0.95 {
		t.Errorf("Correlation = %v, want >= 0.95", candidate.Correlation)
	}
	if !candidate.ZeroCrossAligned {
		t.Errorf("expected ZeroCrossAligned = true")
	}
	if candidate.Start >= candidate.End {
		t.Errorf("Start (%d) must be < End (%d)", candidate.Start, candidate.End)
	}
}

func TestApplyCrossfadeSkipsWhenTooLarge(t *testing.T) {
	frames := make([]float32, 100)
	loop := types.LoopCandidate{Start: 10, End: 20, Length: 10}
	before := append([]float32(nil), frames...)
	ApplyCrossfade(frames, 1, loop, 44100, 1000) // cf way bigger than loop/2
	for i := range frames {
		if frames[i] != before[i] {
			t.Fatalf("frames modified despite cf >= L/2")
		}
	}
}

func TestApplyCrossfadeBlends(t *testing.T) {
	channels := 1
	frames := make([]float32, 1000)
	for i := range frames {
		frames[i] = float32(i)
	}
	loop := types.LoopCandidate{Start: 100, End: 200, Length: 100}
	ApplyCrossfade(frames, channels, loop, 1000, 5) // cf = 5 samples
	// frames[100] should now be a blend of frames[100](orig=100) and frames[195](orig=195): t=0 -> fully original start.
	if frames[100] != 100 {
		t.Errorf("frames[100] = %v, want 100 (t=0 blend is pure start)", frames[100])
	}
}

func TestExtractChannelStereo(t *testing.T) {
	interleaved := []float32{1, 2, 3, 4, 5, 6}
	left := ExtractChannel(interleaved, 2, 0)
	right := ExtractChannel(interleaved, 2, 1)
	if len(left) != 3 || left[0] != 1 || left[1] != 3 || left[2] != 5 {
		t.Errorf("left = %v", left)
	}
	if len(right) != 3 || right[0] != 2 || right[1] != 4 || right[2] != 6 {
		t.Errorf("right = %v", right)
	}
}
