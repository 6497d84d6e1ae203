// Package mididevice wraps gitlab.com/gomidi/midi/v2 output port
// discovery and raw byte delivery. A caller holds a *Port directly
// rather than going through a process-wide device registry; the
// Orchestrator owns exactly one MIDI handle per session.
package mididevice

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Port is an opened MIDI output connection.
type Port struct {
	name string
	out  drivers.Out
}

// Devices lists the names of every available MIDI output port.
func Devices() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// PortOutOfRangeError reports that an index-based Open requested an
// index outside the currently enumerated output port list.
type PortOutOfRangeError struct {
	Index int
	Count int
}

func (e *PortOutOfRangeError) Error() string {
	return fmt.Sprintf("mididevice: port index %d out of range (have %d port(s))", e.Index, e.Count)
}

// OpenIndex opens the output port at position idx in the list
// Devices()/midi.GetOutPorts() currently report. Open below layers
// name-hint resolution on top of it rather than replacing it.
func OpenIndex(idx int) (*Port, error) {
	ports := midi.GetOutPorts()
	if idx < 0 || idx >= len(ports) {
		return nil, &PortOutOfRangeError{Index: idx, Count: len(ports)}
	}
	out := ports[idx]
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("mididevice: open port %q: %w", out.String(), err)
	}
	return &Port{name: out.String(), out: out}, nil
}

// Open finds the output port whose name best matches hint (exact,
// then prefix, then substring, case-insensitive), then opens it by
// index via OpenIndex. An empty hint matches the first available
// port.
func Open(hint string) (*Port, error) {
	names := Devices()
	name, err := matchName(hint, names)
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		if n == name {
			return OpenIndex(i)
		}
	}
	return nil, fmt.Errorf("mididevice: resolved name %q vanished from port list", name)
}

// matchName picks the best match for hint among names: exact, then
// prefix, then substring, case-insensitive. Split out from Open so the
// matching logic can be tested without a live MIDI driver.
func matchName(hint string, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("mididevice: no output ports available")
	}
	if hint == "" {
		return names[0], nil
	}

	for _, n := range names {
		if strings.EqualFold(n, hint) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(hint)) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(hint)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("mididevice: no output port matching %q", hint)
}

// Name returns the resolved port name.
func (p *Port) Name() string { return p.name }

// Send writes raw MIDI bytes to the port.
func (p *Port) Send(msg []byte) error {
	return p.out.Send(msg)
}

// Close closes the underlying port.
func (p *Port) Close() error {
	return p.out.Close()
}
