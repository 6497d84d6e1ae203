package main

// paStream abstracts a PortAudio input stream so the capture loop can
// be exercised in tests with a mock that blocks until Stop.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
}
