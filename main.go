package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"hwsampler/internal/mididevice"
	"hwsampler/internal/sessionconfig"
	"hwsampler/internal/types"
)

// cliFlags holds the command-line overrides layered on top of the
// persisted AppConfig and, if given, a session file. Flags win over
// the session file, which wins over AppConfig, which wins over
// package defaults.
var cliFlags struct {
	midiHint    string
	audioHint   string
	outputDir   string
	sessionPath string
	velocity    int
	channels    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("[hwsampler] %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hwsampler",
		Short: "Multisample a hardware synth over MIDI and an audio interface",
	}

	root.PersistentFlags().StringVar(&cliFlags.midiHint, "midi-port", "", "MIDI output port name hint (substring match)")
	root.PersistentFlags().StringVar(&cliFlags.audioHint, "audio-device", "", "audio input device name hint (substring match)")
	root.PersistentFlags().StringVar(&cliFlags.outputDir, "output", "", "directory to write samples and instrument files into")
	root.PersistentFlags().StringVar(&cliFlags.sessionPath, "session", "", "path to a YAML session file (see internal/sessionconfig)")
	root.PersistentFlags().IntVar(&cliFlags.velocity, "velocity", 0, "default velocity when a command doesn't specify one (1-127)")
	root.PersistentFlags().IntVar(&cliFlags.channels, "channels", 1, "number of input channels to capture")

	root.AddCommand(newDevicesCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newSampleCmd())
	root.AddCommand(newRangeCmd())

	return root
}

func newMonitorCmd() *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show input levels without recording anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, audioHint, err := loadSession()
			if err != nil {
				return err
			}

			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("initialize portaudio: %w", err)
			}
			defer portaudio.Terminate()

			device, err := OpenInputDevice(audioHint)
			if err != nil {
				return err
			}

			capture := NewCaptureEngine()
			if err := capture.Start(device, cliFlags.channels, types.FormatFloat32, 512); err != nil {
				return err
			}
			defer capture.Stop()

			fmt.Printf("monitoring %s for %ds (recording stays off)\n", device.Name, seconds)
			for i := 0; i < seconds*4; i++ {
				time.Sleep(250 * time.Millisecond)
				r := capture.Levels()
				fmt.Printf("\rpeak %6.1f dB  rms %6.1f dB", r.PeakDB, r.RMSDB)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", 10, "how long to monitor before exiting")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available MIDI output ports and audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("initialize portaudio: %w", err)
			}
			defer portaudio.Terminate()

			fmt.Println("MIDI output ports:")
			for _, name := range mididevice.Devices() {
				fmt.Printf("  %s\n", name)
			}

			devices, err := portaudio.Devices()
			if err != nil {
				return fmt.Errorf("enumerate audio devices: %w", err)
			}
			fmt.Println("Audio input devices:")
			for _, d := range devices {
				if d.MaxInputChannels > 0 {
					fmt.Printf("  %s (%d ch, %.0f Hz)\n", d.Name, d.MaxInputChannels, d.DefaultSampleRate)
				}
			}
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	var note int
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Capture a single note at a single velocity",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cfg, audioHint, err := loadSession()
			if err != nil {
				return err
			}
			velocity := cliFlags.velocity
			if velocity == 0 {
				velocity = cfg.Velocity
			}

			o, teardown, err := buildOrchestrator(cfg, audioHint)
			if err != nil {
				return err
			}
			defer teardown()

			seg, err := o.SampleOne(note, velocity)
			if err != nil {
				return err
			}
			return exportAndReport([]types.Segment{seg}, sess)
		},
	}
	cmd.Flags().IntVar(&note, "note", 60, "MIDI note number (0-127)")
	return cmd
}

func newRangeCmd() *cobra.Command {
	var startNote, endNote int
	var velocities []int
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Capture a note range, optionally at multiple velocities",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cfg, audioHint, err := loadSession()
			if err != nil {
				return err
			}
			if len(velocities) == 0 {
				velocities = sess.Velocities
			}

			o, teardown, err := buildOrchestrator(cfg, audioHint)
			if err != nil {
				return err
			}
			defer teardown()

			segments, err := o.SampleRange(startNote, endNote, velocities)
			if err != nil {
				return err
			}
			return exportAndReport(segments, sess)
		},
	}
	cmd.Flags().IntVar(&startNote, "start-note", 48, "first MIDI note in the range (inclusive)")
	cmd.Flags().IntVar(&endNote, "end-note", 72, "last MIDI note in the range (inclusive)")
	cmd.Flags().IntSliceVar(&velocities, "velocities", nil, "velocity layers to capture (default: session velocities)")
	return cmd
}

// loadSession resolves the effective session plan: the YAML file named
// by --session if given, else the persisted AppConfig defaults, with
// flag overrides layered on top. The returned audio hint follows the
// same precedence: flag, then AppConfig.
func loadSession() (sessionconfig.Session, types.CaptureConfig, string, error) {
	appCfg := LoadConfig()

	sess := sessionconfig.Default()
	if cliFlags.sessionPath != "" {
		loaded, err := sessionconfig.Load(cliFlags.sessionPath)
		if err != nil {
			return sessionconfig.Session{}, types.CaptureConfig{}, "", &ConfigParseError{Path: cliFlags.sessionPath, Err: err}
		}
		sess = loaded
	} else {
		sess.Capture = appCfg.Capture
		sess.Detection = appCfg.Detection
		sess.Loop = appCfg.Loop
		sess.Export = appCfg.Export
	}

	cfg := sess.Capture
	if cfg.DeviceHint == "" {
		cfg.DeviceHint = appCfg.MIDIDeviceHint
	}
	if cliFlags.midiHint != "" {
		cfg.DeviceHint = cliFlags.midiHint
	}

	audioHint := cliFlags.audioHint
	if audioHint == "" {
		audioHint = appCfg.AudioDeviceHint
	}

	if cliFlags.outputDir != "" {
		sess.Export.OutputDir = cliFlags.outputDir
	} else if sess.Export.OutputDir == "" {
		sess.Export.OutputDir = appCfg.LastOutputDir
	}

	return sess, cfg, audioHint, nil
}

// buildOrchestrator wires a live MIDI port and CaptureEngine into an
// Orchestrator, returning a teardown func that releases both. The
// stream itself is opened/closed per SampleRange call via the injected
// closures, not here, so one Orchestrator can run multiple commands.
func buildOrchestrator(cfg types.CaptureConfig, audioHint string) (*Orchestrator, func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	transport, midiPort, err := openMIDIPort(cfg.DeviceHint)
	if err != nil {
		portaudio.Terminate()
		return nil, nil, err
	}

	capture := NewCaptureEngine()

	openStream := func() error {
		device, err := OpenInputDevice(audioHint)
		if err != nil {
			return err
		}
		return capture.Start(device, cliFlags.channels, types.FormatFloat32, 512)
	}
	closeStream := func() { capture.Stop() }

	o := NewOrchestrator(transport, capture, openStream, closeStream, cfg)

	teardown := func() {
		midiPort.Close()
		portaudio.Terminate()
	}
	return o, teardown, nil
}

// exportAndReport runs Export and prints the summary a user watching
// the CLI expects: how many files landed, and how many segments came
// back with a usable detection/loop outcome.
func exportAndReport(segments []types.Segment, sess sessionconfig.Session) error {
	paths, errs := Export(segments, sess.Export, sess.Detection, sess.Loop)
	for _, err := range errs {
		log.Printf("[export] %v", err)
	}

	detected, looped := 0, 0
	for _, seg := range segments {
		if seg.Detection != nil && seg.Detection.Success {
			detected++
		}
		if seg.Loop != nil {
			looped++
		}
	}

	fmt.Printf("wrote %d sample(s) to %s (%d trimmed, %d looped)\n",
		len(paths), sess.Export.OutputDir, detected, looped)
	if len(paths) == 0 && len(errs) > 0 {
		return errs[0]
	}

	appCfg := LoadConfig()
	appCfg.LastOutputDir = sess.Export.OutputDir
	if err := SaveConfig(appCfg); err != nil {
		log.Printf("[hwsampler] could not remember output dir: %v", err)
	}
	return nil
}

