package ipcsem

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
)

const (
	// DefaultInitAttempts bounds how many times a joiner checks whether the
	// creating process has finished initializing the counter.
	DefaultInitAttempts = 1000

	// keyDirName is the directory under os.TempDir holding key files.
	keyDirName = "ipcsem-sems"

	// initPollDelay is the pause between initialization checks. It only yields
	// the goroutine; the bound is the attempt count.
	initPollDelay = time.Microsecond
)

// Options tunes how a semaphore is opened. The zero value is the default
// behaviour, and every process sharing a semaphore must agree on KeyDir.
type Options struct {
	// KeyDir is the directory holding the key files that System V keys are
	// derived from. Defaults to "ipcsem-sems" under os.TempDir. Ignored on Windows.
	KeyDir string

	// InitAttempts bounds the wait for another process to initialize the
	// counter. Defaults to DefaultInitAttempts.
	InitAttempts int

	// Clock drives the initialization wait. Defaults to clock.WallClock.
	Clock clock.Clock
}

// withDefaults returns a copy of o with empty fields filled in. o may be nil.
func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.KeyDir == "" {
		opts.KeyDir = DefaultKeyDir()
	}
	if opts.InitAttempts <= 0 {
		opts.InitAttempts = DefaultInitAttempts
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return opts
}

// DefaultKeyDir returns the directory used for key files when Options.KeyDir
// is empty.
func DefaultKeyDir() string {
	return filepath.Join(os.TempDir(), keyDirName)
}
