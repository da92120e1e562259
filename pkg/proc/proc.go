// Package proc runs local subprocesses with per-stream capture,
// live mirroring and hard timeouts.
package proc

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/effective-security/xlog"

	"github.com/codriver-ai/codriver/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/codriver-ai/codriver", "proc")

// DefaultTimeout applies when the request does not set one.
const DefaultTimeout = 60 * time.Second

// Request describes one subprocess execution.
type Request struct {
	// Path is the executable to run. Required.
	Path string
	// Args are the arguments passed to the executable.
	Args []string
	// Dir is the working directory. Empty means the caller's.
	Dir string
	// Env is extra environment entries appended to the caller's environment.
	Env []string
	// Stdin is written to the process's standard input when non-empty.
	Stdin string
	// Timeout is the wall-clock limit. Zero means DefaultTimeout;
	// a negative value disables the limit.
	Timeout time.Duration
	// CaptureStdout and CaptureStderr select which streams are
	// accumulated into the Result. A stream that is not captured is
	// omitted from the Result entirely.
	CaptureStdout bool
	CaptureStderr bool
}

// Result is the outcome of a subprocess execution. A stream that was not
// captured is nil; a captured stream that produced nothing points to "".
type Result struct {
	Success   bool    `json:"success"`
	ExitCode  int     `json:"exit_code"`
	Stdout    *string `json:"stdout,omitempty"`
	Stderr    *string `json:"stderr,omitempty"`
	TimedOut  bool    `json:"timed_out,omitempty"`
	ElapsedMs int64   `json:"execution_time_ms"`
	Error     string  `json:"error,omitempty"`
}

// Engine executes subprocess requests. The zero value is usable;
// NewEngine applies options.
type Engine struct {
	mirrorOut io.Writer
	mirrorErr io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMirror echoes captured output lines as they arrive, before the
// process finishes: child stdout lines to stdout, child stderr lines
// to stderr. Either writer may be nil to skip that stream.
func WithMirror(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.mirrorOut = stdout
		e.mirrorErr = stderr
	}
}

// NewEngine returns an Engine with the given options applied.
func NewEngine(ops ...Option) *Engine {
	e := &Engine{}
	for _, op := range ops {
		op(e)
	}
	return e
}

type streamEvent struct {
	source string
	line   string
}

// Execute runs the request to completion and always returns a Result;
// failures to start or finish the process are reported in Result.Error
// with Success set to false.
func (e *Engine) Execute(ctx context.Context, req Request) *Result {
	started := time.Now()
	res := &Result{}
	defer func() {
		res.ElapsedMs = time.Since(started).Milliseconds()
		metricskey.PerfProcExec.MeasureSince(started)
		status := "ok"
		if res.TimedOut {
			status = "timeout"
			metricskey.StatsProcTimeouts.IncrCounter(1)
		} else if !res.Success {
			status = "failed"
		}
		metricskey.StatsProcExecutions.IncrCounter(1, status)
	}()

	if req.Path == "" {
		res.ExitCode = -1
		res.Error = "executable path is required"
		return res
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	cmd := exec.Command(req.Path, req.Args...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	events := make(chan streamEvent, 64)
	scanErrs := make(chan string, 2)
	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf strings.Builder

	attach := func(source string, pipe func() (io.ReadCloser, error)) error {
		rc, err := pipe()
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := bufio.NewScanner(rc)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				events <- streamEvent{source: source, line: scanner.Text()}
			}
			if err := scanner.Err(); err != nil {
				// keep draining so the child never blocks on a full pipe
				scanErrs <- source + ": " + err.Error()
				_, _ = io.Copy(io.Discard, rc)
			}
		}()
		return nil
	}

	if req.CaptureStdout {
		if err := attach("stdout", cmd.StdoutPipe); err != nil {
			res.ExitCode = -1
			res.Error = err.Error()
			return res
		}
	} else {
		cmd.Stdout = io.Discard
	}
	if req.CaptureStderr {
		if err := attach("stderr", cmd.StderrPipe); err != nil {
			res.ExitCode = -1
			res.Error = err.Error()
			return res
		}
	} else {
		cmd.Stderr = io.Discard
	}

	if err := cmd.Start(); err != nil {
		res.ExitCode = -1
		res.Error = err.Error()
		logger.KV(xlog.DEBUG, "reason", "start_failed", "path", req.Path, "err", err.Error())
		return res
	}

	// readers hold the pipes; events closes only after both drain,
	// so every line emitted before exit or kill is accounted for.
	go func() {
		wg.Wait()
		close(events)
		close(scanErrs)
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	consume := func(ev streamEvent) {
		if ev.source == "stdout" {
			stdoutBuf.WriteString(ev.line)
			stdoutBuf.WriteByte('\n')
			if e.mirrorOut != nil {
				_, _ = io.WriteString(e.mirrorOut, ev.line+"\n")
			}
		} else {
			stderrBuf.WriteString(ev.line)
			stderrBuf.WriteByte('\n')
			if e.mirrorErr != nil {
				_, _ = io.WriteString(e.mirrorErr, ev.line+"\n")
			}
		}
	}

	done := ctx.Done()
	for events != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			consume(ev)
		case <-timeoutC:
			timeoutC = nil
			res.TimedOut = true
			_ = cmd.Process.Kill()
		case <-done:
			// treat cancellation like a timeout kill, but surface the cause
			done = nil
			if res.Error == "" {
				res.Error = ctx.Err().Error()
			}
			_ = cmd.Process.Kill()
		}
	}

	// a failed scan means the capture is incomplete; the result cannot
	// be trusted even if the process exits cleanly
	for msg := range scanErrs {
		if res.Error == "" {
			res.Error = msg
		}
	}

	// the pipes are drained; Wait is safe now. The process may still be
	// running with its output closed, so the limit stays armed.
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-timeoutC:
		res.TimedOut = true
		_ = cmd.Process.Kill()
		waitErr = <-waitCh
	case <-done:
		if res.Error == "" {
			res.Error = ctx.Err().Error()
		}
		_ = cmd.Process.Kill()
		waitErr = <-waitCh
	}

	if req.CaptureStdout {
		s := stdoutBuf.String()
		res.Stdout = &s
	}
	if req.CaptureStderr {
		s := stderrBuf.String()
		res.Stderr = &s
	}

	switch {
	case res.TimedOut:
		res.ExitCode = -1
		res.Error = "process killed after timeout"
	case res.Error != "":
		res.ExitCode = -1
	case waitErr != nil:
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Error = waitErr.Error()
		}
	default:
		res.ExitCode = 0
		res.Success = true
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"path", req.Path,
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return res
}
