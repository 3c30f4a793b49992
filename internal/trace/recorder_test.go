package trace

import (
	"bytes"
	"testing"
)

func TestRecorderWritesLines(t *testing.T) {
	var out bytes.Buffer
	rec := NewRecorder(1, &out, nil)
	rec.Enter("outer")
	rec.Enter("inner")
	rec.Leave("inner")
	rec.Leave("outer")

	want := "Enter: outer\nEnter: inner\nLeave: inner\nLeave: outer\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestRecorderRelay(t *testing.T) {
	var wire bytes.Buffer
	child := NewRecorder(42, nil, NewMsgpackTransport(nil, &wire))
	if err := child.Enter("test1_inner"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if err := child.Leave("test1_inner"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	var out bytes.Buffer
	parent := NewRecorder(1, &out, nil)
	parent.Enter("test1")
	if err := parent.Relay(NewMsgpackTransport(&wire, nil)); err != nil {
		t.Fatalf("Relay failed: %v", err)
	}
	parent.Leave("test1")

	want := "Enter: test1\nEnter: test1_inner\nLeave: test1_inner\nLeave: test1\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestRecorderRelayRejectsGarbage(t *testing.T) {
	var wire bytes.Buffer
	if err := NewMsgpackTransport(nil, &wire).Send([]byte{0xc1}); err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(1, nil, nil)
	if err := rec.Relay(NewMsgpackTransport(&wire, nil)); err == nil {
		t.Fatal("Expected an error decoding an invalid frame")
	}
}

func TestEventSequence(t *testing.T) {
	var wire bytes.Buffer
	tr := NewMsgpackTransport(&wire, &wire)
	rec := NewRecorder(7, nil, tr)
	rec.Enter("a")
	rec.Leave("a")

	var ser MsgpackSerializer
	for i, phase := range []string{PhaseEnter, PhaseLeave} {
		data, err := tr.Receive()
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		var ev Event
		if err := ser.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if ev.Process != 7 || ev.Phase != phase || ev.Scenario != "a" || ev.Seq != i+1 {
			t.Errorf("Unexpected event %d: %+v", i, ev)
		}
	}
}
