// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"fmt"
	"runtime"
)

// Progress is one milestone of an analysis call.
type Progress struct {
	Mode     Mode    `json:"mode"`
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"` // 0 at stage start, 1 at completion.
}

// ProgressFunc receives milestones synchronously on the analysing
// goroutine. It must not block for long.
type ProgressFunc func(Progress)

// Frames between cooperative yields.
const yieldEvery = 256

// frameLoop drives a per-frame callback with cancellation polling,
// periodic yielding and progress reporting every tenth of the frames.
type frameLoop struct {
	ctx      context.Context
	mode     Mode
	progress ProgressFunc
}

func newFrameLoop(ctx context.Context, mode Mode, progress ProgressFunc) frameLoop {
	return frameLoop{ctx: ctx, mode: mode, progress: progress}
}

func (l frameLoop) report(stage string, fraction float64) {
	if l.progress != nil {
		l.progress(Progress{Mode: l.mode, Stage: stage, Fraction: fraction})
	}
}

// run calls fn for i in [0, total). A cancelled context stops the loop and
// is returned wrapped; no partial result may be used after that.
func (l frameLoop) run(stage string, total int, fn func(i int)) error {
	if err := l.ctx.Err(); err != nil {
		return fmt.Errorf("%s analysis cancelled before %s: %w", l.mode, stage, err)
	}
	l.report(stage, 0)

	step := max(total/10, 1)
	for i := range total {
		if err := l.ctx.Err(); err != nil {
			return fmt.Errorf("%s analysis cancelled during %s: %w", l.mode, stage, err)
		}
		if i > 0 && i%yieldEvery == 0 {
			runtime.Gosched()
		}

		fn(i)

		if done := i + 1; done%step == 0 && done < total {
			l.report(stage, float64(done)/float64(total))
		}
	}

	l.report(stage, 1)
	return nil
}
