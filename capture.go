package main

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"hwsampler/internal/levels"
	"hwsampler/internal/types"
)

// nativeBuffer converts one native-format PortAudio buffer to 32-bit
// float in [-1,+1].
type nativeBuffer interface {
	toFloat32(out []float32)
}

type float32NativeBuffer []float32

func (b float32NativeBuffer) toFloat32(out []float32) { copy(out, b) }

type int16NativeBuffer []int16

func (b int16NativeBuffer) toFloat32(out []float32) {
	for i, s := range b {
		out[i] = float32(s) / 32767
	}
}

type uint16NativeBuffer []uint16

func (b uint16NativeBuffer) toFloat32(out []float32) {
	for i, s := range b {
		out[i] = (float32(s) - 32768) / 32768
	}
}

// CaptureEngine owns one long-lived PortAudio input stream, feeds every
// converted buffer to the level-meter accumulator, and also appends it
// to the recording buffer while the recordingActive flag is set. The stream stays
// alive across an entire multi-note session; arming and disarming
// only toggle the flag, since the first ~50 ms of a freshly-opened
// stream can carry clicks or clipped frames on some drivers.
type CaptureEngine struct {
	mu sync.Mutex

	stream     paStream
	native     nativeBuffer
	floatBuf   []float32
	sampleRate int
	channels   int

	recordingActive atomic.Bool
	streamAlive     atomic.Bool

	bufMu  sync.Mutex
	buffer []float32

	detector *levels.Detector
	slot     levels.Slot

	errCh chan error

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCaptureEngine returns an idle CaptureEngine.
func NewCaptureEngine() *CaptureEngine {
	return &CaptureEngine{errCh: make(chan error, 1)}
}

// deviceInfo is the subset of *portaudio.DeviceInfo the engine needs;
// declared so resolveInputDevice can be unit-tested without a live
// PortAudio host.
type deviceInfo struct {
	name              string
	defaultSampleRate float64
	defaultLowLatency float64
	maxInputChannels  int
}

// resolveInputDevice picks the device whose name contains hint
// (case-insensitive substring), or
// the first input-capable device if hint is empty or unmatched.
func resolveInputDevice(devices []deviceInfo, hint string) (int, error) {
	if hint != "" {
		for i, d := range devices {
			if d.maxInputChannels > 0 && containsFold(d.name, hint) {
				return i, nil
			}
		}
	}
	for i, d := range devices {
		if d.maxInputChannels > 0 {
			return i, nil
		}
	}
	return -1, fmt.Errorf("capture: no input device available")
}

func containsFold(haystack, needle string) bool {
	hl, nl := []rune(toLower(haystack)), []rune(toLower(needle))
	if len(nl) == 0 {
		return true
	}
	for i := 0; i+len(nl) <= len(hl); i++ {
		match := true
		for j := range nl {
			if hl[i+j] != nl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func toLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// OpenInputDevice enumerates PortAudio input devices and returns the
// one matching hint, per resolveInputDevice's rule.
func OpenInputDevice(hint string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	infos := make([]deviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = deviceInfo{
			name:              d.Name,
			defaultSampleRate: d.DefaultSampleRate,
			defaultLowLatency: d.DefaultLowInputLatency,
			maxInputChannels:  d.MaxInputChannels,
		}
	}
	idx, err := resolveInputDevice(infos, hint)
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	return devices[idx], nil
}

// Start opens and starts the input stream for the given device at
// framesPerBuffer frames per callback, then begins routing frames in
// monitor-only mode (recordingActive starts false). UnsupportedFormat
// is returned for any format other than float32, int16, and uint16.
func (ce *CaptureEngine) Start(device *portaudio.DeviceInfo, channels int, format types.SampleFormat, framesPerBuffer int) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.streamAlive.Load() {
		return nil
	}

	sampleRate := int(device.DefaultSampleRate)
	ce.sampleRate = sampleRate
	ce.channels = channels
	ce.floatBuf = make([]float32, framesPerBuffer*channels)
	ce.detector = levels.NewDetector(sampleRate)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	var stream *portaudio.Stream
	var err error
	switch format {
	case types.FormatFloat32:
		buf := make([]float32, framesPerBuffer*channels)
		ce.native = float32NativeBuffer(buf)
		stream, err = portaudio.OpenStream(params, buf)
	case types.FormatInt16:
		buf := make([]int16, framesPerBuffer*channels)
		ce.native = int16NativeBuffer(buf)
		stream, err = portaudio.OpenStream(params, buf)
	case types.FormatUint16:
		buf := make([]uint16, framesPerBuffer*channels)
		ce.native = uint16NativeBuffer(buf)
		stream, err = portaudio.OpenStream(params, buf)
	default:
		return &UnsupportedFormatError{Format: fmt.Sprintf("%v", format)}
	}
	if err != nil {
		return &DeviceError{Err: err}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return &DeviceError{Err: err}
	}

	ce.stream = stream
	ce.stopCh = make(chan struct{})
	ce.streamAlive.Store(true)

	ce.wg.Add(1)
	go func() { defer ce.wg.Done(); ce.captureLoop() }()
	return nil
}

// captureLoop is the driver side of the real-time boundary: it blocks
// on Read, converts, publishes levels, and conditionally appends to
// the recording buffer. It blocks on nothing but the buffer mutex. Its
// only allocation is append growing the recording buffer past its
// current capacity; Clear keeps that capacity for the next note.
func (ce *CaptureEngine) captureLoop() {
	for ce.streamAlive.Load() {
		if err := ce.stream.Read(); err != nil {
			if ce.streamAlive.Load() {
				select {
				case ce.errCh <- &CaptureUnderrunError{Err: err}:
				default:
				}
			}
			continue
		}

		ce.native.toFloat32(ce.floatBuf)

		reading := ce.detector.Process(ce.floatBuf)
		ce.slot.Store(reading)

		if ce.recordingActive.Load() {
			ce.bufMu.Lock()
			ce.buffer = append(ce.buffer, ce.floatBuf...)
			ce.bufMu.Unlock()
		}
	}
}

// Arm sets recordingActive true. Caller must have cleared the buffer
// first via Clear.
func (ce *CaptureEngine) Arm() { ce.recordingActive.Store(true) }

// Disarm sets recordingActive false.
func (ce *CaptureEngine) Disarm() { ce.recordingActive.Store(false) }

// Clear empties the recording buffer.
func (ce *CaptureEngine) Clear() {
	ce.bufMu.Lock()
	ce.buffer = ce.buffer[:0]
	ce.bufMu.Unlock()
}

// Snapshot copies out the current recording buffer contents. The
// returned slice is independent of the internal buffer.
func (ce *CaptureEngine) Snapshot() []float32 {
	ce.bufMu.Lock()
	defer ce.bufMu.Unlock()
	out := make([]float32, len(ce.buffer))
	copy(out, ce.buffer)
	return out
}

// Levels returns the most recently published level-meter reading.
func (ce *CaptureEngine) Levels() levels.Reading { return ce.slot.Load() }

// SampleRate and Channels report the stream's native parameters,
// valid once Start has succeeded.
func (ce *CaptureEngine) SampleRate() int { return ce.sampleRate }
func (ce *CaptureEngine) Channels() int   { return ce.channels }

// Errors returns the channel carrying asynchronous capture errors.
func (ce *CaptureEngine) Errors() <-chan error { return ce.errCh }

// Stop halts the stream and releases it. Stop() unblocks the blocking
// Read in captureLoop, wg.Wait lets that goroutine exit before Close
// frees the native stream object.
func (ce *CaptureEngine) Stop() {
	if !ce.streamAlive.CompareAndSwap(true, false) {
		return
	}
	close(ce.stopCh)

	ce.mu.Lock()
	if ce.stream != nil {
		ce.stream.Stop()
	}
	ce.mu.Unlock()

	ce.wg.Wait()

	ce.mu.Lock()
	if ce.stream != nil {
		ce.stream.Close()
		ce.stream = nil
	}
	ce.mu.Unlock()

	log.Println("[capture] stream stopped")
}
