// Package exec2 runs external commands under a timeout as non-blocking
// background tasks, scheduled onto a bounded worker pool so a request
// handler never synchronously waits on a child process.
package exec2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/gammazero/workerpool"
)

// ForcedPATH is the PATH every child process is launched with,
// regardless of the parent's environment.
const ForcedPATH = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

const captureChunkSize = 8 * 1024

// Result is the completion of a RunRC call.
type Result struct {
	RC  int
	Err error
}

// CaptureResult is the completion of a Capture call.
type CaptureResult struct {
	RC  int
	Out string
}

// Executor schedules subprocess launches onto a bounded worker pool.
type Executor struct {
	pool *workerpool.WorkerPool
}

// New builds an Executor backed by a worker pool capped at
// maxConcurrent simultaneous subprocesses.
func New(maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Executor{pool: workerpool.New(maxConcurrent)}
}

// Stop waits for in-flight tasks to finish and tears down the pool.
func (e *Executor) Stop() {
	e.pool.StopWait()
}

// RunRC launches argv, waits up to timeout, and delivers the exit
// status on the returned channel: the status for a clean exit, 128+
// signal when signalled, or -1 on timeout (the child is killed).
func (e *Executor) RunRC(ctx context.Context, timeout time.Duration, argv ...string) <-chan Result {
	out := make(chan Result, 1)
	e.pool.Submit(func() {
		rc, err := runRC(ctx, timeout, argv)
		out <- Result{RC: rc, Err: err}
	})
	return out
}

// Capture is like RunRC but merges stdout+stderr into a single buffer,
// read back in bounded chunks. On timeout it yields rc=-1 and a
// synthetic "TIMEOUT after <sec>s" message.
func (e *Executor) Capture(ctx context.Context, timeout time.Duration, argv ...string) <-chan CaptureResult {
	out := make(chan CaptureResult, 1)
	e.pool.Submit(func() {
		out <- capture(ctx, timeout, argv)
	})
	return out
}

func forcedEnv() []string {
	return []string{"PATH=" + ForcedPATH}
}

func devNullStdin(cmd *exec.Cmd) (func(), error) {
	f, err := os.Open(os.DevNull)
	if err != nil {
		return func() {}, err
	}
	cmd.Stdin = f
	return func() { _ = f.Close() }, nil
}

func runRC(parent context.Context, timeout time.Duration, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New("exec2: empty argv")
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = forcedEnv()
	closeStdin, _ := devNullStdin(cmd)
	defer closeStdin()

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return -1, nil
	}
	return classifyExit(err)
}

func capture(parent context.Context, timeout time.Duration, argv []string) CaptureResult {
	if len(argv) == 0 {
		return CaptureResult{RC: -1, Out: "invalid command\n"}
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = forcedEnv()
	closeStdin, _ := devNullStdin(cmd)
	defer closeStdin()

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var buf bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		chunk := make([]byte, captureChunkSize)
		for {
			n, rerr := pr.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
			}
			if rerr != nil {
				return
			}
		}
	}()

	runErr := cmd.Run()
	_ = pw.Close()
	<-drained

	if ctx.Err() == context.DeadlineExceeded {
		return CaptureResult{RC: -1, Out: fmt.Sprintf("TIMEOUT after %ds\n", int(timeout.Seconds()))}
	}

	rc, _ := classifyExit(runErr)
	return CaptureResult{RC: rc, Out: buf.String()}
}

func classifyExit(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(err, "exec2: launch failed")
}
