// Package runner turns external commands and in-process functions into
// domain.Process handles the queue can await, interrupt and kill.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cesargomez89/tidarr/internal/domain"
)

// Command describes an external program to run.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

type Options struct {
	// OnLine receives stdout and stderr, merged, line by line.
	OnLine LineFunc
	// OnExit maps the wait error into a Result. Defaults to Result{Err: err}.
	OnExit func(err error) domain.Result
	// WaitDelay bounds how long Wait lingers on pipes held by children.
	WaitDelay time.Duration
}

// Process is a running external command.
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	result domain.Result
}

// Exec starts c in its own process group and returns immediately.
// Cancelling ctx kills the whole group. Done is closed only after the group
// has been killed, so nothing the command spawned still runs afterwards.
func Exec(ctx context.Context, c Command, opts Options) (*Process, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = opts.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}
	setProcessGroup(cmd)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}

	var wg sync.WaitGroup
	var scanErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		scanErr = streamLines(scanner, opts.OnLine)
		// keep draining so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	go func() {
		err := cmd.Wait()
		// reap children left behind by a wrapper that already exited
		_ = signalGroup(cmd.Process, os.Kill)
		_ = pw.Close()
		wg.Wait()
		if err == nil && scanErr != nil {
			err = fmt.Errorf("read output: %w", scanErr)
		}

		var res domain.Result
		if opts.OnExit != nil {
			res = opts.OnExit(err)
		} else {
			res = domain.Result{Err: err}
		}

		p.mu.Lock()
		p.result = res
		p.mu.Unlock()
		close(p.done)
	}()

	return p, nil
}

func (p *Process) Done() <-chan struct{} { return p.done }

func (p *Process) Result() domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *Process) Interrupt() error {
	return p.signal(os.Interrupt)
}

func (p *Process) Kill() error {
	return p.signal(os.Kill)
}

func (p *Process) signal(sig os.Signal) error {
	if err := signalGroup(p.cmd.Process, sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Pid is used in log lines.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
