// Package sessionconfig loads the per-run tunables for a multisample
// session (note range, velocity layers, and the nested capture,
// detection, loop, and export settings) from a single YAML file that
// a user edits by hand before each run. This is deliberately distinct
// from internal/config's JSON AppConfig: AppConfig holds the
// once-per-machine device hints, sessionconfig holds the
// once-per-session recording plan.
package sessionconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hwsampler/internal/types"
)

// Session describes one multisample run: the note/velocity grid to
// record and the processing settings to apply to it.
type Session struct {
	StartNote  int   `yaml:"start_note"`
	EndNote    int   `yaml:"end_note"`
	Velocities []int `yaml:"velocities"`

	Capture   types.CaptureConfig   `yaml:"capture"`
	Detection types.DetectionConfig `yaml:"detection"`
	Loop      types.LoopConfig      `yaml:"loop"`
	Export    types.ExportConfig    `yaml:"export"`
}

// Default returns a Session spanning two octaves around middle C at a
// single velocity, with every nested config at its package default.
func Default() Session {
	return Session{
		StartNote:  48,
		EndNote:    72,
		Velocities: []int{100},
		Capture:    types.DefaultCaptureConfig(),
		Detection:  types.DefaultDetectionConfig(),
		Loop:       types.DefaultLoopConfig(),
		Export:     types.DefaultExportConfig(),
	}
}

// Load reads and parses a session file at path.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read session config: %w", err)
	}
	sess := Default()
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parse session config %s: %w", path, err)
	}
	return sess, nil
}

// Save writes sess to path as YAML, creating or truncating the file.
func Save(path string, sess Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
