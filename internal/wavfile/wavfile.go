// Package wavfile writes the on-disk RIFF/WAVE audio files the Exporter
// produces. Integer PCM (16-bit and 24-bit) is written through
// github.com/go-audio/wav. That library's public Encoder only knows
// how to pack audio.IntBuffer data as signed integers, so it has no
// path for WAV format tag 3 (32-bit IEEE float); the float32 encoding
// is written directly here instead.
package wavfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"hwsampler/internal/types"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// Write encodes frames (interleaved, [-1, +1]) as a RIFF/WAVE file at
// path, per the requested encoding, and fsyncs before returning so a
// rapid batch of exports survives a crash immediately after this call
// returns.
func Write(path string, frames []float32, channels, sampleRate int, encoding types.Encoding) error {
	switch encoding {
	case types.EncodingInt16:
		return writeIntPCM(path, frames, channels, sampleRate, 16)
	case types.EncodingInt24:
		return writeIntPCM(path, frames, channels, sampleRate, 24)
	case types.EncodingFloat32:
		return writeFloatPCM(path, frames, channels, sampleRate)
	default:
		return fmt.Errorf("wavfile: unsupported encoding %v", encoding)
	}
}

func writeIntPCM(path string, frames []float32, channels, sampleRate, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavfile: create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           quantize(frames, bitDepth),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("wavfile: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("wavfile: finalize %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("wavfile: fsync %s: %w", path, err)
	}
	return f.Close()
}

// quantize converts float32 samples in [-1, 1] to signed PCM integers at
// bitDepth, saturating on overflow.
func quantize(frames []float32, bitDepth int) []int {
	maxVal := float64(int64(1)<<(bitDepth-1) - 1)
	minVal := -float64(int64(1) << (bitDepth - 1))
	out := make([]int, len(frames))
	for i, s := range frames {
		v := math.Round(float64(s) * maxVal)
		if v > maxVal {
			v = maxVal
		}
		if v < minVal {
			v = minVal
		}
		out[i] = int(v)
	}
	return out
}

// writeFloatPCM writes a 32-bit IEEE-float WAV file (format tag 3)
// directly: go-audio/wav's Encoder has no float-sample write path.
func writeFloatPCM(path string, frames []float32, channels, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavfile: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	const bitsPerSample = 32
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)
	dataSize := len(frames) * (bitsPerSample / 8)
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	writeErr := func() error {
		if _, err := w.WriteString("RIFF"); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(riffSize)); err != nil {
			return err
		}
		if _, err := w.WriteString("WAVE"); err != nil {
			return err
		}

		if _, err := w.WriteString("fmt "); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(fmtChunkSize)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(wavFormatFloat)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(channels)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(sampleRate)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(byteRate)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(blockAlign)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
			return err
		}

		if _, err := w.WriteString("data"); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, frames)
	}()

	if writeErr != nil {
		f.Close()
		return fmt.Errorf("wavfile: write %s: %w", path, writeErr)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("wavfile: flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("wavfile: fsync %s: %w", path, err)
	}
	return f.Close()
}
