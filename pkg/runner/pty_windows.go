//go:build windows

package runner

import (
	"errors"
	"os"
	"os/exec"
)

// startPTY is unavailable on Windows; Call always falls back to plain
// pipe-based capture there, which also sidesteps the separate
// publickey-prompt stderr-capture-disable workaround CallRetry applies.
func startPTY(cmd *exec.Cmd) (*os.File, error) {
	return nil, errors.New("runner: pty not supported on windows")
}

const ptySupported = false
