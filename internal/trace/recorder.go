package trace

import (
	"fmt"
	"io"
	"sync"

	"github.com/juju/errors"
)

const (
	PhaseEnter = "Enter"
	PhaseLeave = "Leave"
)

// Event is one step of a scenario run by some process.
type Event struct {
	Process  int    `msgpack:"process"`
	Phase    string `msgpack:"phase"`
	Scenario string `msgpack:"scenario"`
	Seq      int    `msgpack:"seq"`
}

// String renders the event as a trace line without the newline.
func (e Event) String() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Scenario)
}

// Recorder serializes events from any number of goroutines. Each event is
// written as a text line to out, sent over forward, or both.
type Recorder struct {
	mu         sync.Mutex
	process    int
	seq        int
	out        io.Writer
	forward    Transport
	serializer Serializer
}

// NewRecorder returns a Recorder for the given process id. out or forward
// may be nil.
func NewRecorder(process int, out io.Writer, forward Transport) *Recorder {
	return &Recorder{
		process:    process,
		out:        out,
		forward:    forward,
		serializer: MsgpackSerializer{},
	}
}

// Enter records the start of scenario.
func (r *Recorder) Enter(scenario string) error {
	return r.record(PhaseEnter, scenario)
}

// Leave records the end of scenario.
func (r *Recorder) Leave(scenario string) error {
	return r.record(PhaseLeave, scenario)
}

func (r *Recorder) record(phase, scenario string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.write(Event{Process: r.process, Phase: phase, Scenario: scenario, Seq: r.seq})
}

// Record writes an event that may come from another process.
func (r *Recorder) Record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(ev)
}

func (r *Recorder) write(ev Event) error {
	if r.out != nil {
		if _, err := fmt.Fprintln(r.out, ev.String()); err != nil {
			return errors.Trace(err)
		}
	}
	if r.forward != nil {
		data, err := r.serializer.Marshal(ev)
		if err != nil {
			return errors.Trace(err)
		}
		if err := r.forward.Send(data); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Relay decodes events from in and records them until in reaches EOF.
func (r *Recorder) Relay(in Transport) error {
	for {
		data, err := in.Receive()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Trace(err)
		}
		var ev Event
		if err := r.serializer.Unmarshal(data, &ev); err != nil {
			return errors.Annotate(err, "decoding trace event")
		}
		if err := r.Record(ev); err != nil {
			return errors.Trace(err)
		}
	}
}
