// Package link connects the host to a recorder: either a board over a serial
// port or a simulated board running in-process.
package link

// Device is a line-oriented connection to a recorder (real or loopback).
type Device interface {
	Connect() error
	Close() error
	// Lines delivers every line the recorder prints. It is closed by Close
	// or when the connection is lost.
	Lines() <-chan string
	// Send writes one command line.
	Send(cmd string) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Loopback implements Device.
var _ Device = (*Loopback)(nil)
