// Package engine defines the transcoding engine boundary. The core only
// ever hands the engine argument vectors and staged byte payloads; it
// never looks past success/failure and the optional progress signal.
package engine

import (
	"context"
	"time"
)

// Progress is one progress sample from a running engine command.
type Progress struct {
	// OutTime is how much output the command has produced so far.
	OutTime time.Duration

	FPS   float64
	Speed string

	// Fraction is progress in [0,1] when the expected output span is
	// known, -1 otherwise.
	Fraction float64
}

// ProgressFunc receives progress samples during a Run.
type ProgressFunc func(Progress)

// Engine is a single stateful transcoding resource. It processes one
// command at a time; callers must never issue concurrent commands against
// one instance. Staged artifacts live in the engine's working storage
// until unstaged or the engine is closed.
type Engine interface {
	// Stage writes a byte payload into working storage under name.
	Stage(name string, data []byte) error

	// Run executes one command. span is the expected output duration,
	// used to derive the progress fraction; pass zero when unknown.
	Run(ctx context.Context, args []string, span time.Duration, onProgress ProgressFunc) error

	// Read returns the bytes of a staged or produced artifact.
	Read(name string) ([]byte, error)

	// Unstage removes one artifact from working storage.
	Unstage(name string) error

	// Close releases the working storage wholesale.
	Close() error
}
