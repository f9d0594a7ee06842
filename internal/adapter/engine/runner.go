package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// stderrTailMax bounds how much engine stderr is kept for error messages.
const stderrTailMax = 16 * 1024

// Command describes one engine subprocess invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   map[string]string
	Stdin string
}

// Output is what a finished subprocess produced.
type Output struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Runner executes engine commands. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// WaitDelay bounds how long to wait for I/O after the context kills
	// the process.
	WaitDelay time.Duration
}

// Run implements Runner. A non-zero exit returns both the output and an
// *exec.ExitError.
func (r ExecRunner) Run(ctx context.Context, c Command) (*Output, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	wait := r.WaitDelay
	if wait <= 0 {
		wait = 5 * time.Second
	}
	cmd.WaitDelay = wait

	var stdout bytes.Buffer
	stderr := newTailBuffer(stderrTailMax)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
	}
	return out, err
}

// LookPath reports the resolved path of an engine binary.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// tailBuffer is a thread-safe writer that keeps only the last max bytes.
type tailBuffer struct {
	mu      sync.Mutex
	data    []byte
	max     int
	dropped bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{data: make([]byte, 0, min(max, 4096)), max: max}
}

// Write implements io.Writer.
func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if len(b.data) > b.max {
		b.data = b.data[len(b.data)-b.max:]
		b.dropped = true
	}
	return len(p), nil
}

// String returns the retained tail.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dropped {
		return "..." + string(b.data)
	}
	return string(b.data)
}
