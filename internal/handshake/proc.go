package handshake

import (
	"os/exec"

	"github.com/juju/errors"
)

// waitForExit waits for the peer and turns a kill into a readable error.
func waitForExit(cmd *exec.Cmd) error {
	err := cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == -1 {
			return errors.New("peer process was killed")
		}
		return errors.Trace(err)
	}
	return nil
}
