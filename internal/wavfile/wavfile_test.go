package wavfile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"hwsampler/internal/types"
)

func sineFrames(n int, sampleRate, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func readChunkIDs(t *testing.T, path string) (riffSize uint32, ids []string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header in %s", path)
	}
	riffSize = binary.LittleEndian.Uint32(data[4:8])
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		ids = append(ids, id)
		pos += 8 + int(size)
		if size%2 == 1 {
			pos++
		}
	}
	return riffSize, ids
}

func TestWriteInt16RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone16.wav")
	frames := sineFrames(4410, 44100, 440)
	if err := Write(path, frames, 1, 44100, types.EncodingInt16); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, ids := readChunkIDs(t, path)
	if len(ids) < 2 || ids[0] != "fmt " {
		t.Fatalf("chunk ids = %v, want fmt first", ids)
	}
	hasData := false
	for _, id := range ids {
		if id == "data" {
			hasData = true
		}
	}
	if !hasData {
		t.Fatalf("no data chunk found, ids = %v", ids)
	}
}

func TestWriteInt24RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone24.wav")
	frames := sineFrames(2205, 44100, 220)
	if err := Write(path, frames, 1, 44100, types.EncodingInt24); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("expected non-empty file, err=%v", err)
	}
}

func TestWriteFloat32HeaderFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone32f.wav")
	frames := sineFrames(100, 44100, 440)
	channels := 2
	interleaved := make([]float32, len(frames)*channels)
	for i, s := range frames {
		interleaved[i*2] = s
		interleaved[i*2+1] = s
	}
	if err := Write(path, interleaved, channels, 48000, types.EncodingFloat32); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[12:16]) != "fmt " {
		t.Fatalf("unexpected header: %q", data[:16])
	}
	formatTag := binary.LittleEndian.Uint16(data[20:22])
	if formatTag != wavFormatFloat {
		t.Errorf("formatTag = %d, want %d", formatTag, wavFormatFloat)
	}
	gotChannels := binary.LittleEndian.Uint16(data[22:24])
	if int(gotChannels) != channels {
		t.Errorf("channels = %d, want %d", gotChannels, channels)
	}
	gotSampleRate := binary.LittleEndian.Uint32(data[24:28])
	if gotSampleRate != 48000 {
		t.Errorf("sampleRate = %d, want 48000", gotSampleRate)
	}
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	if bitsPerSample != 32 {
		t.Errorf("bitsPerSample = %d, want 32", bitsPerSample)
	}
	if string(data[36:40]) != "data" {
		t.Fatalf("expected data chunk at offset 36, got %q", data[36:40])
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) != len(interleaved)*4 {
		t.Errorf("dataSize = %d, want %d", dataSize, len(interleaved)*4)
	}

	first := math.Float32frombits(binary.LittleEndian.Uint32(data[44:48]))
	if first != interleaved[0] {
		t.Errorf("first sample = %v, want %v", first, interleaved[0])
	}
}

func TestWriteUnsupportedEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wav")
	err := Write(path, []float32{0, 0}, 1, 44100, types.Encoding(99))
	if err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}
