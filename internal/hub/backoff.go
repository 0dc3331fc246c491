package hub

import (
	"context"
	"time"

	"github.com/ronaldwang03/agent-os-sub001/internal/config"
)

// maxBackoffShift bounds the exponential doubling so the shift cannot
// overflow int64
const maxBackoffShift = 30

// Backoff returns the pause before retrying after the given attempt
// number. A zero initial backoff disables pacing entirely
func Backoff(work config.WorkConfig, attempt int) time.Duration {
	if work.InitBackoff <= 0 || attempt < 1 {
		return 0
	}

	var ms int64
	switch work.BackoffType {
	case config.BackoffTypeLinear:
		ms = work.InitBackoff * int64(attempt)
	case config.BackoffTypeExponential:
		shift := attempt - 1
		if shift > maxBackoffShift {
			shift = maxBackoffShift
		}
		ms = work.InitBackoff << shift
	default:
		ms = work.InitBackoff
	}

	if work.MaxBackoff > 0 && ms > work.MaxBackoff {
		ms = work.MaxBackoff
	}
	return time.Duration(ms) * time.Millisecond
}

// backoffWait sleeps for the attempt's backoff, returning false if the
// run was cancelled while waiting
func (h *Hub) backoffWait(ctx context.Context, attempt int) bool {
	d := Backoff(h.cfg.Work, attempt)
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
