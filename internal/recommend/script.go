package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ScriptProcedure runs an external script with the comma-joined input as its
// only argument and returns trimmed stdout.
type ScriptProcedure struct {
	Interpreter string
	Script      string
	Timeout     time.Duration
}

var ErrEmptyPrediction = errors.New("recommendation script produced no output")

func (p ScriptProcedure) Predict(ctx context.Context, in Input) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Interpreter, p.Script, in.Args())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", p.Script, err, msg)
		}
		return "", fmt.Errorf("run %s: %w", p.Script, err)
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", ErrEmptyPrediction
	}
	return out, nil
}

// StaticProcedure returns a fixed prediction.
type StaticProcedure struct {
	Prediction string
	Err        error
}

func (p StaticProcedure) Predict(context.Context, Input) (string, error) {
	return p.Prediction, p.Err
}
