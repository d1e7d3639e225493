package timex

import (
	"context"
	"time"

	"epdboard/errcode"
)

// Poll calls ready every interval until it reports true, timeout elapses, or
// ctx is done. The first check happens immediately. It returns nil on
// success, errcode.Timeout on expiry and ctx.Err() on cancellation.
func Poll(ctx context.Context, interval, timeout time.Duration, ready func() bool) error {
	if ready() {
		return nil
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	dead := time.Now().Add(timeout)
	t := time.NewTimer(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if ready() {
			return nil
		}
		if !time.Now().Before(dead) {
			return errcode.Timeout
		}
		t.Reset(interval)
	}
}
