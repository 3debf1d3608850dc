package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCallSuccess(t *testing.T) {
	result := Call(context.Background(), []string{"true"}, Options{})
	if result.Outcome != OutcomeOK || result.Code != 0 {
		t.Errorf("Call(true) = %+v, want OutcomeOK/0", result)
	}
	if result.Rc() != 0 {
		t.Errorf("Rc() = %d, want 0", result.Rc())
	}
}

func TestCallNonZeroExit(t *testing.T) {
	result := Call(context.Background(), []string{"false"}, Options{})
	if result.Outcome != OutcomeOK {
		t.Fatalf("Outcome = %v, want OutcomeOK (child ran, just failed)", result.Outcome)
	}
	if result.Code == 0 {
		t.Errorf("Code = 0, want nonzero for `false`")
	}
}

func TestCallExecutableNotFound(t *testing.T) {
	result := Call(context.Background(), []string{"this-binary-does-not-exist-anywhere"}, Options{})
	if result.Outcome != OutcomeNotFound {
		t.Fatalf("Outcome = %v, want OutcomeNotFound", result.Outcome)
	}
	if result.Rc() != 127 {
		t.Errorf("Rc() = %d, want 127", result.Rc())
	}
}

func TestCallCommandTimeout(t *testing.T) {
	result := Call(context.Background(), []string{"sleep", "5"}, Options{CommandTimeout: 50 * time.Millisecond})
	if result.Outcome != OutcomeTimeout {
		t.Fatalf("Outcome = %v, want OutcomeTimeout", result.Outcome)
	}
	if result.Rc() != -1000 {
		t.Errorf("Rc() = %d, want -1000", result.Rc())
	}
}

func TestCallOutputStallTimeout(t *testing.T) {
	result := Call(context.Background(), []string{"sleep", "5"}, Options{OutputTimeout: 50 * time.Millisecond})
	if result.Outcome != OutcomeOutputStall {
		t.Fatalf("Outcome = %v, want OutcomeOutputStall", result.Outcome)
	}
	if result.Rc() != -2000 {
		t.Errorf("Rc() = %d, want -2000", result.Rc())
	}
}

func TestCallRetrySucceedsEventually(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "attempts")

	// A script that fails until the marker file has grown to 2 bytes,
	// i.e. it succeeds on its third invocation.
	script := `n=0; [ -f "` + marker + `" ] && n=$(wc -c < "` + marker + `"); printf a >> "` + marker + `"; [ "$n" -ge 2 ]`

	result := CallRetry(context.Background(), []string{"sh", "-c", script}, RetryOptions{
		Options: Options{},
		Retries: 3,
	})
	if result.Outcome != OutcomeOK || result.Code != 0 {
		t.Fatalf("CallRetry() = %+v, want success within the retry budget", result)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 {
		t.Errorf("script ran %d times, want exactly 3 (2 failures + 1 success)", len(data))
	}
}

func TestCallRetryAbortPattern(t *testing.T) {
	result := CallRetry(context.Background(), []string{"sh", "-c", "echo 'remove gc.log' >&2; exit 1"}, RetryOptions{
		Options:      Options{CaptureStderr: true},
		Retries:      3,
		AbortPattern: []byte("remove gc.log"),
	})
	if result.Outcome != OutcomeAbortedOnPattern {
		t.Fatalf("Outcome = %v, want OutcomeAbortedOnPattern", result.Outcome)
	}
	if result.Rc() != -3000 {
		t.Errorf("Rc() = %d, want -3000", result.Rc())
	}
}

func TestCallRetryRemovesDirOnFailure(t *testing.T) {
	dir := t.TempDir()
	removeMe := filepath.Join(dir, "stale")
	if err := os.MkdirAll(removeMe, 0o755); err != nil {
		t.Fatal(err)
	}

	CallRetry(context.Background(), []string{"false"}, RetryOptions{
		Options:   Options{},
		Retries:   0,
		RemoveDir: removeMe,
	})

	if _, err := os.Stat(removeMe); !os.IsNotExist(err) {
		t.Errorf("RemoveDir %s should have been removed after a failed attempt", removeMe)
	}
}

func TestSimple(t *testing.T) {
	if rc := Simple(context.Background(), []string{"true"}, ""); rc != 0 {
		t.Errorf("Simple(true) = %d, want 0", rc)
	}
	if rc := Simple(context.Background(), []string{"false"}, ""); rc == 0 {
		t.Errorf("Simple(false) = 0, want nonzero")
	}
}

func TestStatusOutput(t *testing.T) {
	rc, out := StatusOutput(context.Background(), []string{"sh", "-c", "echo '  hello  '"}, "")
	if rc != 0 {
		t.Fatalf("StatusOutput() rc = %d, want 0", rc)
	}
	if out != "hello" {
		t.Errorf("StatusOutput() output = %q, want trimmed %q", out, "hello")
	}
}
