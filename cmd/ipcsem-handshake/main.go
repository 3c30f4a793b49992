// Command ipcsem-handshake runs the two-process semaphore handshake and prints
// the combined trace:
//
//	$ ipcsem-handshake test1
//	Enter: test1
//	Enter: test1_inner
//	Leave: test1_inner
//	Leave: test1
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"

	"github.com/richinsley/ipcsem"
	"github.com/richinsley/ipcsem/internal/handshake"
	"github.com/richinsley/ipcsem/internal/trace"
)

type options struct {
	first     string
	second    string
	keyDir    string
	logConfig string
	child     bool
	keep      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "ipcsem-handshake [flags] scenario...",
		Short:         "Run the cross-process semaphore handshake",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(opts, args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ipcsem-handshake: %v\n", err)
			}
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.first, "first", handshake.DefaultFirst, "name of the semaphore the initiator holds")
	flags.StringVar(&opts.second, "second", handshake.DefaultSecond, "name of the semaphore the peer posts")
	flags.StringVar(&opts.keyDir, "key-dir", "", "directory for semaphore key files")
	flags.StringVar(&opts.logConfig, "log-config", "<root>=WARNING", "loggo logging configuration")
	flags.BoolVar(&opts.keep, "keep", false, "leave the semaphores in place when done")
	flags.BoolVar(&opts.child, "child", false, "write trace frames to stdout for a parent process")
	flags.MarkHidden("child")
	return cmd
}

func run(opts *options, scenarios []string) error {
	if err := loggo.ConfigureLoggers(opts.logConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}

	var rec *trace.Recorder
	if opts.child {
		rec = trace.NewRecorder(os.Getpid(), nil, trace.NewMsgpackTransport(nil, os.Stdout))
	} else {
		rec = trace.NewRecorder(os.Getpid(), os.Stdout, nil)
	}

	semOpts := &ipcsem.Options{KeyDir: opts.keyDir}
	cfg := handshake.Config{
		First:   opts.first,
		Second:  opts.second,
		Options: semOpts,
		PeerCommand: func() *exec.Cmd {
			return peerCommand(opts)
		},
	}
	for _, scenario := range scenarios {
		if err := handshake.Run(scenario, cfg, rec); err != nil {
			return errors.Trace(err)
		}
		if scenario == handshake.Initiator && !opts.keep {
			removeAll(semOpts, opts.first, opts.second)
		}
	}
	return nil
}

// peerCommand re-runs this binary as the peer.
func peerCommand(opts *options) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cmd := exec.Command(exe,
		"--child",
		"--first", opts.first,
		"--second", opts.second,
		"--key-dir", opts.keyDir,
		"--log-config", opts.logConfig,
		handshake.Peer,
	)
	cmd.Stderr = os.Stderr
	return cmd
}

// removeAll deletes the handshake semaphores. Posts by one process undone at
// another's exit would otherwise skew the next run.
func removeAll(semOpts *ipcsem.Options, names ...string) {
	for _, name := range names {
		if err := ipcsem.RemoveWithOptions(name, semOpts); err != nil && !errors.Is(err, errors.NotFound) {
			fmt.Fprintf(os.Stderr, "ipcsem-handshake: removing %q: %v\n", name, err)
		}
	}
}
