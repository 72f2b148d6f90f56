package shadowing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// startGrace is how long Start waits for the capture command to fail fast,
// which is how a denied or missing device shows up.
const startGrace = 200 * time.Millisecond

// ExecDevice captures audio by running a platform command (arecord, or
// sox's rec) that writes a WAV file until interrupted.
type ExecDevice struct {
	Command string
	Dir     string
}

// NewExecDevice returns a device writing clips under dir.
func NewExecDevice(command, dir string) *ExecDevice {
	return &ExecDevice{Command: command, Dir: dir}
}

func (d *ExecDevice) args(path string) []string {
	switch filepath.Base(d.Command) {
	case "rec", "sox":
		return []string{"-q", path}
	default:
		return []string{"-q", "-f", "cd", "-t", "wav", path}
	}
}

// Start launches the capture command.
func (d *ExecDevice) Start(ctx context.Context) (Capture, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}
	path := filepath.Join(d.Dir, uuid.New().String()+".wav")

	var stderr bytes.Buffer
	cmd := exec.Command(d.Command, d.args(path)...)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, classify(err, "")
	}

	c := &execCapture{cmd: cmd, path: path, stderr: &stderr, done: make(chan error, 1)}
	go func() { c.done <- cmd.Wait() }()

	select {
	case err := <-c.done:
		// exited before we asked it to stop
		if err == nil {
			err = errors.New("capture exited immediately")
		}
		return nil, classify(err, stderr.String())
	case <-time.After(startGrace):
	case <-ctx.Done():
		c.Stop()
		return nil, ctx.Err()
	}
	return c, nil
}

type execCapture struct {
	cmd    *exec.Cmd
	path   string
	stderr *bytes.Buffer
	done   chan error
}

// Stop interrupts the command so it finalizes the WAV header, then waits.
func (c *execCapture) Stop() (string, error) {
	_ = c.cmd.Process.Signal(os.Interrupt)

	select {
	case err := <-c.done:
		if err != nil && !interrupted(err) {
			return "", classify(err, c.stderr.String())
		}
	case <-time.After(2 * time.Second):
		_ = c.cmd.Process.Kill()
		<-c.done
	}
	return c.path, nil
}

func interrupted(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return true
	}
	// arecord exits 1 after handling SIGINT
	return exitErr.ExitCode() == 1
}

// classify maps command failures that mean "no access to the microphone"
// to ErrPermissionDenied.
func classify(err error, stderr string) error {
	msg := strings.ToLower(stderr + " " + err.Error())
	for _, marker := range []string{"permission denied", "not permitted", "audio open error", "access denied"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
		}
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("capture: %w: %s", err, strings.TrimSpace(stderr))
}

// ExecPlayer plays clips through a platform command such as aplay or afplay.
type ExecPlayer struct {
	Command string
}

// NewExecPlayer returns a player running command.
func NewExecPlayer(command string) *ExecPlayer {
	return &ExecPlayer{Command: command}
}

func (p *ExecPlayer) args(path string) []string {
	switch filepath.Base(p.Command) {
	case "aplay", "play":
		return []string{"-q", path}
	default:
		return []string{path}
	}
}

// Play runs the command and waits. Canceling ctx kills the process.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.Command, p.args(path)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w: %s", p.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
