package handshake_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/goleak"

	"github.com/richinsley/ipcsem"
	"github.com/richinsley/ipcsem/internal/handshake"
	"github.com/richinsley/ipcsem/internal/trace"
)

// The test binary doubles as the peer process when these are set.
const (
	peerFirstEnv  = "IPCSEM_HANDSHAKE_FIRST"
	peerSecondEnv = "IPCSEM_HANDSHAKE_SECOND"
	peerQuitEnv   = "IPCSEM_HANDSHAKE_QUIT"
)

func TestMain(m *testing.M) {
	if os.Getenv(peerQuitEnv) != "" {
		os.Exit(0)
	}
	if first := os.Getenv(peerFirstEnv); first != "" {
		cfg := handshake.Config{First: first, Second: os.Getenv(peerSecondEnv)}
		rec := trace.NewRecorder(os.Getpid(), nil, trace.NewMsgpackTransport(nil, os.Stdout))
		if err := handshake.Run(handshake.Peer, cfg, rec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	goleak.VerifyTestMain(m)
}

// semaphoreNames returns a fresh pair of names, removed when the test ends.
func semaphoreNames(t *testing.T) (string, string) {
	t.Helper()
	id := uuid.NewString()
	first, second := "ipcsem-hs1-"+id, "ipcsem-hs2-"+id
	check := "ipcsem-hs0-" + id
	if sem, err := ipcsem.New(check, 0); errors.Is(err, errors.NotSupported) {
		t.Skipf("semaphores not supported: %v", err)
	} else if err != nil {
		t.Fatalf("New failed: %v", err)
	} else {
		sem.Close()
		ipcsem.Remove(check)
	}
	t.Cleanup(func() {
		for _, name := range []string{first, second} {
			if err := ipcsem.Remove(name); err != nil && !errors.Is(err, errors.NotFound) {
				t.Errorf("Failed to remove %q: %v", name, err)
			}
		}
	})
	return first, second
}

func TestHandshakeTrace(t *testing.T) {
	first, second := semaphoreNames(t)
	cfg := handshake.Config{
		First:  first,
		Second: second,
		PeerCommand: func() *exec.Cmd {
			cmd := exec.Command(os.Args[0])
			cmd.Env = append(os.Environ(), peerFirstEnv+"="+first, peerSecondEnv+"="+second)
			cmd.Stderr = os.Stderr
			return cmd
		},
	}
	var out bytes.Buffer
	rec := trace.NewRecorder(os.Getpid(), &out, nil)
	if err := handshake.Run(handshake.Initiator, cfg, rec); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if out.String() != handshake.Expected {
		t.Errorf("Expected trace:\n%s\ngot:\n%s", handshake.Expected, out.String())
	}
}

func TestUnknownScenario(t *testing.T) {
	var out bytes.Buffer
	rec := trace.NewRecorder(os.Getpid(), &out, nil)
	err := handshake.Run("test2", handshake.Config{}, rec)
	if !errors.Is(err, errors.NotFound) {
		t.Fatalf("Expected NotFound, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected nothing recorded, got %q", out.String())
	}
}

func TestInitiatorNeedsPeerCommand(t *testing.T) {
	var out bytes.Buffer
	rec := trace.NewRecorder(os.Getpid(), &out, nil)
	err := handshake.Run(handshake.Initiator, handshake.Config{First: "a", Second: "b"}, rec)
	if !errors.Is(err, errors.NotValid) {
		t.Fatalf("Expected NotValid, got %v", err)
	}
}

func TestInitiatorFailsWhenPeerQuitsEarly(t *testing.T) {
	first, second := semaphoreNames(t)
	cfg := handshake.Config{
		First:  first,
		Second: second,
		PeerCommand: func() *exec.Cmd {
			cmd := exec.Command(os.Args[0])
			cmd.Env = append(os.Environ(), peerQuitEnv+"=1")
			return cmd
		},
	}

	done := make(chan error, 1)
	var out bytes.Buffer
	rec := trace.NewRecorder(os.Getpid(), &out, nil)
	go func() {
		done <- handshake.Run(handshake.Initiator, cfg, rec)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected an error when the peer never releases the second semaphore")
		}
		if !strings.Contains(err.Error(), second) {
			t.Errorf("Expected the error to name %q, got %v", second, err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Initiator still blocked after the peer exited")
	}
	if out.String() != "Enter: test1\n" {
		t.Errorf("Expected only the initiator's Enter line, got %q", out.String())
	}
}
