//go:build !windows

package runner

import (
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// startPTY starts cmd attached to a new pseudoterminal, so git still detects
// an interactive terminal and emits its color/progress output the way it
// would outside the wrapper. Grounded on spec.md §4.2's Runner IO contract;
// no example in the pack owns this exact idiom, so it follows creack/pty's
// own documented Start usage directly.
func startPTY(cmd *exec.Cmd) (*os.File, error) {
	return pty.Start(cmd)
}

const ptySupported = true
