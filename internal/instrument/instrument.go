// Package instrument emits the two instrument-definition formats the
// Exporter can write alongside a completed sample set: dspreset-style
// XML and sfz-style text. Neither format needs audio
// data, only the filename, (note, velocity) and optional loop points
// carried on each Region, so this package has no dependency on
// capture, detection, or the filesystem beyond writing the two output
// files.
package instrument

import (
	"fmt"
	"os"
	"sort"
)

// Region is one exported sample file's placement in an instrument.
type Region struct {
	Path     string // sample filename, relative to the instrument file
	Note     int    // MIDI note number, 0..127
	Velocity int    // MIDI velocity the sample was captured at, 1..127

	HasLoop   bool
	LoopStart int // trimmed-sample index, valid when HasLoop
	LoopEnd   int
}

// Layer is a velocity-partitioned group of regions, all sharing the
// same [LoVel, HiVel] range.
type Layer struct {
	LoVel, HiVel int
	Regions      []Region
}

// GroupLayers partitions regions into velocity layers: one layer per
// distinct Velocity value present, in ascending order, with 1..127
// divided evenly by layer count. The highest layer's HiVel is always
// 127, so integer division's leftover never opens a gap at the top.
func GroupLayers(regions []Region) []Layer {
	velocities := distinctVelocities(regions)
	if len(velocities) == 0 {
		return nil
	}
	n := len(velocities)
	step := 127 / n
	if step < 1 {
		step = 1
	}

	layers := make([]Layer, n)
	for i, v := range velocities {
		lo := i*step + 1
		hi := (i + 1) * step
		if i == n-1 {
			hi = 127
		}
		layers[i] = Layer{LoVel: lo, HiVel: hi}
		for _, r := range regions {
			if r.Velocity == v {
				layers[i].Regions = append(layers[i].Regions, r)
			}
		}
	}
	return layers
}

func distinctVelocities(regions []Region) []int {
	seen := make(map[int]bool)
	for _, r := range regions {
		seen[r.Velocity] = true
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func noteName(note int) string {
	names := [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", names[note%12], octave)
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("instrument: create %s: %w", path, err)
	}
	return f, nil
}
