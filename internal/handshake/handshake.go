// Package handshake runs a two-process exchange over a pair of named
// semaphores and records the order in which both processes progress.
//
// The initiator creates "first" with one unit and "second" with none, holds
// first, starts the peer and blocks on second. The peer opens both by name,
// releases second and then blocks on first until the initiator lets go. A
// correct semaphore always produces the trace in Expected.
package handshake

import (
	"os/exec"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/richinsley/ipcsem"
	"github.com/richinsley/ipcsem/internal/trace"
)

var logger = loggo.GetLogger("ipcsem.handshake")

const (
	// Initiator is the scenario run by the first process.
	Initiator = "test1"

	// Peer is the scenario run by the spawned process.
	Peer = "test1_inner"

	DefaultFirst  = "foo1"
	DefaultSecond = "foo2"

	peerPollInterval = 10 * time.Millisecond
)

// Expected is the trace of a successful handshake.
const Expected = `Enter: test1
Enter: test1_inner
Leave: test1_inner
Leave: test1
`

// Config names the semaphores and says how to start the peer.
type Config struct {
	// First and Second are the semaphore names. Both processes must agree.
	First  string
	Second string

	// Options is passed to ipcsem.NewWithOptions. May be nil.
	Options *ipcsem.Options

	// PeerCommand builds the command running the Peer scenario. The peer
	// must write its trace frames to stdout.
	PeerCommand func() *exec.Cmd
}

// Run records entering scenario, runs it and records leaving it.
func Run(scenario string, cfg Config, rec *trace.Recorder) error {
	var run func(Config, *trace.Recorder) error
	switch scenario {
	case Initiator:
		run = runInitiator
	case Peer:
		run = runPeer
	default:
		return errors.NotFoundf("scenario %q", scenario)
	}
	if err := rec.Enter(scenario); err != nil {
		return errors.Trace(err)
	}
	if err := run(cfg, rec); err != nil {
		return errors.Annotatef(err, "running %s", scenario)
	}
	return errors.Trace(rec.Leave(scenario))
}

func openPair(cfg Config, firstCount uint) (*ipcsem.Semaphore, *ipcsem.Semaphore, error) {
	first, err := ipcsem.NewWithOptions(cfg.First, firstCount, cfg.Options)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	second, err := ipcsem.NewWithOptions(cfg.Second, 0, cfg.Options)
	if err != nil {
		first.Close()
		return nil, nil, errors.Trace(err)
	}
	return first, second, nil
}

func runInitiator(cfg Config, rec *trace.Recorder) error {
	if cfg.PeerCommand == nil {
		return errors.NotValidf("missing PeerCommand")
	}
	first, second, err := openPair(cfg, 1)
	if err != nil {
		return errors.Trace(err)
	}
	defer first.Close()
	defer second.Close()

	held := first.Access()
	defer held.Release()

	cmd := cfg.PeerCommand()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Trace(err)
	}
	if err := cmd.Start(); err != nil {
		return errors.Annotate(err, "starting peer")
	}
	logger.Debugf("started peer pid %d", cmd.Process.Pid)

	relayed := make(chan error, 1)
	go func() {
		relayed <- rec.Relay(trace.NewMsgpackTransport(stdout, nil))
	}()

	if err := awaitPeerPost(second, relayed); err != nil {
		if relayErr := <-relayed; relayErr != nil {
			// The peer may still be alive and blocked on first.
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return errors.Annotate(relayErr, "relaying peer trace")
		}
		if waitErr := waitForExit(cmd); waitErr != nil {
			return errors.Annotate(waitErr, "peer failed")
		}
		return errors.Trace(err)
	}
	held.Release()

	// All reads from stdout must finish before Wait closes it.
	relayErr := <-relayed
	if err := waitForExit(cmd); err != nil {
		return errors.Annotate(err, "peer failed")
	}
	if relayErr != nil {
		return errors.Annotate(relayErr, "relaying peer trace")
	}

	// The peer released its unit of first on the way out.
	first.Access().Release()
	return nil
}

// awaitPeerPost takes the unit the peer posts on sem before it blocks on
// first. The relay ends when the peer closes its output, normally by exiting;
// if that happens with sem still empty the peer is not going to post. The
// relay result is put back on relayed for the caller.
func awaitPeerPost(sem *ipcsem.Semaphore, relayed chan error) error {
	for !sem.TryAcquire() {
		select {
		case err := <-relayed:
			relayed <- err
			if sem.TryAcquire() {
				return nil
			}
			return errors.Errorf("peer exited without releasing %q", sem.Name)
		case <-clock.WallClock.After(peerPollInterval):
		}
	}
	return nil
}

func runPeer(cfg Config, _ *trace.Recorder) error {
	first, second, err := openPair(cfg, 0)
	if err != nil {
		return errors.Trace(err)
	}
	defer first.Close()
	defer second.Close()

	second.Release()
	first.Access().Release()
	return nil
}
