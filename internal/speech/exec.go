package speech

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// baseWPM is the words-per-minute that rate 1.0 maps to.
const baseWPM = 175

// ExecEngine voices text by running a platform TTS command such as
// espeak-ng or macOS say.
type ExecEngine struct {
	Command string
}

// NewExecEngine returns an engine running command.
func NewExecEngine(command string) *ExecEngine {
	return &ExecEngine{Command: command}
}

// Say runs the command and waits. Canceling ctx kills the process.
func (e *ExecEngine) Say(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, e.Command, e.args(u)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w: %s", e.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (e *ExecEngine) args(u Utterance) []string {
	wpm := strconv.Itoa(WordsPerMinute(u.Rate))
	switch filepath.Base(e.Command) {
	case "say":
		return []string{"-r", wpm, u.Text}
	default:
		return []string{"-s", wpm, "-v", voiceName(u.Lang), u.Text}
	}
}

// WordsPerMinute converts a playback rate to an espeak-style speed.
func WordsPerMinute(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return int(baseWPM*rate + 0.5)
}

// voiceName turns "en-US" into espeak's "en-us".
func voiceName(lang string) string {
	if lang == "" {
		lang = DefaultLang
	}
	return strings.ToLower(lang)
}
