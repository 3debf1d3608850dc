// Package runner executes git/git-lfs child processes with an overall
// command timeout, an output-stall timeout, retry-with-cleanup and an
// abort-on-output-pattern escape used to recover from garbage-collection
// lock conflicts.
//
// The retry/abort-pattern/Windows-stderr-flip algorithm follows
// command_execution.py (call_command_retry, pretty_call_command_retry,
// simple_call_command, getstatusoutput) from the gitcache original; the Go
// subprocess idiom (exec.CommandContext, buffered capture, slog start/result
// logging) follows the teacher's pkg/mirror/helper.go:runGitCommand.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Outcome is the RunResult sum type mandated in place of the dynamic
// numeric rc sentinels (-1000/-2000/-3000) the original threads through
// business logic: business logic switches on Outcome, and only the process
// boundary (cmd/gitcache) converts it back to an integer exit code.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeTimeout
	OutcomeOutputStall
	OutcomeAbortedOnPattern
)

// Code returns the legacy integer encoding (0/127/-1000/-2000/-3000) kept
// only where a caller needs to compare against it, such as the test
// fixtures asserting on scenario 6 (gc-log recovery).
func (o Outcome) Code(childCode int) int {
	switch o {
	case OutcomeOK:
		return childCode
	case OutcomeNotFound:
		return 127
	case OutcomeTimeout:
		return -1000
	case OutcomeOutputStall:
		return -2000
	case OutcomeAbortedOnPattern:
		return -3000
	default:
		return childCode
	}
}

// Result is the outcome of a single child process invocation.
type Result struct {
	Outcome Outcome
	Code    int // raw child exit code when Outcome == OutcomeOK
	Stdout  []byte
	Stderr  []byte
}

// Rc returns the stable, part-of-the-external-contract return code
// encoding described in the component design: child exit code, 127, -1000,
// -2000 or -3000.
func (r Result) Rc() int {
	return r.Outcome.Code(r.Code)
}

// Options configures a single Call.
type Options struct {
	Cwd            string
	Env            []string // additional environment, appended to os.Environ()
	CommandTimeout time.Duration
	OutputTimeout  time.Duration
	CaptureStderr  bool // when false, stderr is inherited directly from the parent (Windows publickey workaround)
	UseTTY         bool // attach the child to a pseudoterminal on POSIX to preserve git's color/progress output
}

var stderrDisablePatterns = [][]byte{
	[]byte("Permission denied (publickey)."),
}

// Call runs argv once, streaming stdout/stderr live to the wrapper's own
// streams while also capturing them, and enforcing CommandTimeout and
// OutputTimeout.
func Call(ctx context.Context, argv []string, opts Options) Result {
	if len(argv) == 0 {
		return Result{Outcome: OutcomeNotFound}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.CommandTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.CommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var outBuf, errBuf bytes.Buffer
	stall := newStallMonitor(opts.OutputTimeout)
	defer stall.stop()

	var err error
	if opts.UseTTY && ptySupported {
		err = runWithPTY(cmd, &outBuf, stall)
	} else {
		cmd.Stdout = io.MultiWriter(os.Stdout, &outBuf, stall)
		if opts.CaptureStderr {
			cmd.Stderr = io.MultiWriter(os.Stderr, &errBuf, stall)
		} else {
			cmd.Stderr = os.Stderr
		}

		stall.start(func() {
			_ = cmd.Process.Kill()
		})

		err = cmd.Run()
	}

	if stall.stalled.Load() {
		return Result{Outcome: OutcomeOutputStall, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Outcome: OutcomeTimeout, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return Result{Outcome: OutcomeNotFound, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Outcome: OutcomeOK, Code: exitErr.ExitCode(), Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
		}
		return Result{Outcome: OutcomeNotFound, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
	}

	return Result{Outcome: OutcomeOK, Code: 0, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
}

// runWithPTY starts cmd attached to a pseudoterminal and copies its combined
// output (the pty merges stdout/stderr, as a real terminal would) to the
// wrapper's own stdout, the capture buffer and the stall monitor.
func runWithPTY(cmd *exec.Cmd, outBuf *bytes.Buffer, stall *stallMonitor) error {
	ptmx, err := startPTY(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	stall.start(func() {
		_ = cmd.Process.Kill()
	})

	_, copyErr := io.Copy(io.MultiWriter(os.Stdout, outBuf, stall), ptmx)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return waitErr
	}
	if copyErr != nil && !isPTYReadCloseErr(copyErr) {
		return copyErr
	}
	return nil
}

// RetryOptions extends Options with the retry-loop knobs.
type RetryOptions struct {
	Options
	Retries      int
	RemoveDir    string // removed on every failed attempt, mirroring remove_dir in call_command_retry
	AbortPattern []byte // on match in combined stdout/stderr of a failed attempt, short-circuits with OutcomeAbortedOnPattern
}

// CallRetry runs argv up to Retries+1 times, stopping as soon as one
// attempt returns OutcomeOK with Code==0. It mirrors call_command_retry's
// abort-pattern check and the Windows stderr-capture-disable workaround.
func CallRetry(ctx context.Context, argv []string, opts RetryOptions) Result {
	captureStderr := opts.CaptureStderr

	var last Result
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		callOpts := opts.Options
		callOpts.CaptureStderr = captureStderr
		last = Call(ctx, argv, callOpts)
		if last.Outcome == OutcomeOK && last.Code == 0 {
			return last
		}

		if runtime.GOOS == "windows" && captureStderr {
			for _, pattern := range stderrDisablePatterns {
				if bytes.Contains(last.Stderr, pattern) {
					captureStderr = false
					break
				}
			}
		}

		if opts.RemoveDir != "" {
			_ = os.RemoveAll(opts.RemoveDir)
		}

		if opts.AbortPattern != nil {
			if bytes.Contains(last.Stdout, opts.AbortPattern) || bytes.Contains(last.Stderr, opts.AbortPattern) {
				last.Outcome = OutcomeAbortedOnPattern
				return last
			}
		}
	}

	return last
}

// PrettyRetry wraps CallRetry with the user-visible start/success/failure
// log lines (with elapsed seconds) the original's pretty_call_command_retry
// produces for every long-running action.
func PrettyRetry(ctx context.Context, log *slog.Logger, action, patternCause string, argv []string, opts RetryOptions) Result {
	log.Info("starting action", "action", action)
	start := time.Now()
	result := CallRetry(ctx, argv, opts)
	elapsed := time.Since(start)

	switch {
	case result.Outcome == OutcomeOK && result.Code == 0:
		log.Info("action completed", "action", action, "elapsed", elapsed)
	case result.Outcome == OutcomeTimeout:
		log.Error("action timed out", "action", action, "elapsed", elapsed)
	case result.Outcome == OutcomeOutputStall:
		log.Error("action stalled", "action", action, "elapsed", elapsed)
	case result.Outcome == OutcomeAbortedOnPattern:
		log.Error("action aborted", "action", action, "cause", patternCause, "elapsed", elapsed)
	default:
		log.Error("action failed", "action", action, "rc", result.Rc(), "elapsed", elapsed)
	}

	return result
}

// Simple runs argv once with no retries and no timeouts, returning only the
// rc. It mirrors simple_call_command.
func Simple(ctx context.Context, argv []string, cwd string) int {
	result := Call(ctx, argv, Options{Cwd: cwd, CaptureStderr: true})
	return result.Rc()
}

// StatusOutput runs argv once, silencing stderr and returning (rc,
// trimmed stdout). It mirrors getstatusoutput.
func StatusOutput(ctx context.Context, argv []string, cwd string) (int, string) {
	result := Call(ctx, argv, Options{Cwd: cwd, CaptureStderr: false})
	return result.Rc(), trimSpace(string(result.Stdout))
}

// isPTYReadCloseErr reports whether err is the expected "input/output error"
// a pseudoterminal read returns once the child side has exited, which is not
// a real failure.
func isPTYReadCloseErr(err error) bool {
	return errors.Is(err, io.EOF) || strings.Contains(err.Error(), "input/output error")
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// FormatArgv renders argv for log lines the way pretty_call_command_retry's
// %s formatting of a command list would.
func FormatArgv(argv []string) string {
	return fmt.Sprint(argv)
}
