package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hwsampler/internal/detection"
	"hwsampler/internal/instrument"
	"hwsampler/internal/types"
	"hwsampler/internal/wavfile"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(note int) string {
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// renderFilename expands {note} {note_name} {velocity} {timestamp}
// {sample_rate} in template and replaces path separators in the
// result with underscores.
func renderFilename(template string, seg types.Segment) string {
	r := strings.NewReplacer(
		"{note}", strconv.Itoa(seg.Note),
		"{note_name}", noteName(seg.Note),
		"{velocity}", strconv.Itoa(seg.Velocity),
		"{timestamp}", strconv.FormatInt(seg.CapturedAt.UnixNano(), 10),
		"{sample_rate}", strconv.Itoa(seg.SampleRate),
	)
	name := r.Replace(template)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name + ".wav"
}

// applyFade applies a linear fade-in over fadeInMs and fade-out over
// fadeOutMs, clamped to the buffer length, across every channel.
func applyFade(frames []float32, channels, sampleRate, fadeInMs, fadeOutMs int) {
	samplesPerChannel := 0
	if channels > 0 {
		samplesPerChannel = len(frames) / channels
	}

	fadeIn := fadeInMs * sampleRate / 1000
	if fadeIn > samplesPerChannel {
		fadeIn = samplesPerChannel
	}
	for i := 0; i < fadeIn; i++ {
		gain := float32(i) / float32(fadeIn)
		for c := 0; c < channels; c++ {
			frames[i*channels+c] *= gain
		}
	}

	fadeOut := fadeOutMs * sampleRate / 1000
	if fadeOut > samplesPerChannel {
		fadeOut = samplesPerChannel
	}
	for i := 0; i < fadeOut; i++ {
		gain := float32(i) / float32(fadeOut)
		idx := samplesPerChannel - 1 - i
		for c := 0; c < channels; c++ {
			frames[idx*channels+c] *= gain
		}
	}
}

// normalize scales frames by 0.95/peak when 0 < peak < 1.
func normalize(frames []float32) {
	var peak float32
	for _, s := range frames {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	if peak <= 0 || peak >= 1 {
		return
	}
	scale := float32(0.95) / peak
	for i := range frames {
		frames[i] *= scale
	}
}

// Export renders, trims, and writes every segment, then emits the
// requested instrument-definition file(s). Per-segment encode failures
// are returned in errs and detection errors are logged; neither aborts
// the batch. When detection is enabled and returns a result, that
// result is stored on the input segment's Detection field; Loop is set
// only when a loop candidate cleared the quality threshold, and both
// stay nil when detection is disabled or errors.
func Export(segments []types.Segment, exportCfg types.ExportConfig, detectionCfg types.DetectionConfig, loopCfg types.LoopConfig) (paths []string, errs []error) {
	if err := os.MkdirAll(exportCfg.OutputDir, 0o755); err != nil {
		return nil, []error{&EncodeError{Path: exportCfg.OutputDir, Err: err}}
	}

	var regions []instrument.Region

	for i := range segments {
		seg := &segments[i]
		filename := renderFilename(exportCfg.FilenameTemplate, *seg)
		path := filepath.Join(exportCfg.OutputDir, filename)

		frames := append([]float32(nil), seg.Frames...)
		channels := seg.Channels
		if channels <= 0 {
			channels = 1
		}

		region := instrument.Region{Path: filename, Note: seg.Note, Velocity: seg.Velocity}

		if exportCfg.DetectionEnabled {
			result, err := detection.TrimSilence(frames, channels, seg.SampleRate, detectionCfg)
			if err != nil {
				log.Printf("[export] detection skipped for %s: %v", filename, err)
			} else {
				seg.Detection = &result
				if result.Success {
					frames = detection.ExtractRange(frames, channels, result.TrimmedStart, result.TrimmedEnd)

					mono := detection.ExtractChannel(frames, channels, 0)
					loop, err := detection.DetectLoop(mono, seg.SampleRate, loopCfg)
					if err != nil {
						log.Printf("[export] no loop point for %s: %v", filename, err)
					} else {
						seg.Loop = &loop
						detection.ApplyCrossfade(frames, channels, loop, seg.SampleRate, loopCfg.CrossfadeMs)
						region.HasLoop = true
						region.LoopStart = loop.Start
						region.LoopEnd = loop.End
					}
				} else {
					log.Printf("[export] %s: %s", filename, result.FailReason)
				}
			}
		}

		applyFade(frames, channels, seg.SampleRate, exportCfg.FadeInMs, exportCfg.FadeOutMs)
		if exportCfg.Normalize {
			normalize(frames)
		}

		if err := writeAudioFile(path, frames, channels, seg.SampleRate, exportCfg.Encoding); err != nil {
			errs = append(errs, &EncodeError{Path: path, Err: err})
			continue
		}

		paths = append(paths, path)
		regions = append(regions, region)
	}

	if err := emitInstrumentFiles(regions, exportCfg, releaseTailSeconds(segments)); err != nil {
		errs = append(errs, err)
	}

	return paths, errs
}

// releaseTailSeconds estimates the instrument's release envelope from
// the longest measured gap between note-off and end of capture. The
// span includes the pre-roll and post-delay, so it overstates the
// true release slightly.
func releaseTailSeconds(segments []types.Segment) float64 {
	var tail float64
	for _, seg := range segments {
		if t := (seg.CaptureElapsed - seg.GateDuration).Seconds(); t > tail {
			tail = t
		}
	}
	return tail
}

func emitInstrumentFiles(regions []instrument.Region, cfg types.ExportConfig, releaseSeconds float64) error {
	if cfg.Flavor == types.InstrumentNone || len(regions) == 0 {
		return nil
	}
	layers := instrument.GroupLayers(regions)

	if cfg.Flavor == types.InstrumentDspreset || cfg.Flavor == types.InstrumentBoth {
		path := filepath.Join(cfg.OutputDir, "instrument.dspreset")
		if err := instrument.WriteDspreset(path, layers, cfg.Creator, cfg.Description); err != nil {
			return &EncodeError{Path: path, Err: err}
		}
	}
	if cfg.Flavor == types.InstrumentSfz || cfg.Flavor == types.InstrumentBoth {
		path := filepath.Join(cfg.OutputDir, "instrument.sfz")
		if err := instrument.WriteSfz(path, layers, ".", releaseSeconds); err != nil {
			return &EncodeError{Path: path, Err: err}
		}
	}
	return nil
}

func writeAudioFile(path string, frames []float32, channels, sampleRate int, encoding types.Encoding) error {
	return wavfile.Write(path, frames, channels, sampleRate, encoding)
}
