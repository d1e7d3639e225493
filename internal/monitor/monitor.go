// Package monitor follows a board's debug channel across deep-sleep cycles.
// The USB port disappears while the board sleeps; the monitor notices the
// sleep banner, reports the wake interval and reopens the port when the
// board comes back.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"epdboard/errcode"
	"epdboard/types"
	"epdboard/x/timex"
)

// ParseSleep reports the wake interval announced by a sleep banner line.
func ParseSleep(line string) (time.Duration, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), types.SleepBanner)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(rest)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

type Monitor struct {
	// Open returns a fresh connection to the device.
	Open func() (io.ReadCloser, error)
	Out  io.Writer
	// OnSleep runs after a sleep banner, before reconnecting. It may block
	// for the wake interval (countdown display).
	OnSleep func(ctx context.Context, wake time.Duration)

	RetryInterval    time.Duration
	ReconnectTimeout time.Duration
}

type sleepSeen struct{ wake time.Duration }

func (sleepSeen) Error() string { return "device entered deep sleep" }

// Run streams lines until ctx is done (returns nil) or the device cannot be
// reopened within ReconnectTimeout (returns errcode.Timeout).
func (m *Monitor) Run(ctx context.Context) error {
	for {
		rc, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		err = m.stream(ctx, rc)
		_ = rc.Close()
		if ctx.Err() != nil {
			return nil
		}
		var s sleepSeen
		if errors.As(err, &s) && m.OnSleep != nil {
			m.OnSleep(ctx, s.wake)
		}
	}
}

func (m *Monitor) connect(ctx context.Context) (io.ReadCloser, error) {
	var (
		rc      io.ReadCloser
		lastErr error
	)
	err := timex.Poll(ctx, m.RetryInterval, m.ReconnectTimeout, func() bool {
		rc, lastErr = m.Open()
		return lastErr == nil
	})
	if err != nil {
		return nil, &errcode.E{C: errcode.Of(err), Op: "reconnect", Err: lastErr}
	}
	return rc, nil
}

// stream copies complete lines to Out. It returns sleepSeen on a banner,
// nil on EOF and the read error otherwise.
func (m *Monitor) stream(ctx context.Context, r io.Reader) error {
	var pending []byte
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		pending = append(pending, buf[:n]...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimRight(string(pending[:i]), "\r")
			pending = pending[i+1:]
			_, _ = io.WriteString(m.Out, line+"\n")
			if d, ok := ParseSleep(line); ok {
				return sleepSeen{wake: d}
			}
		}
		if err != nil {
			if len(pending) > 0 {
				_, _ = io.WriteString(m.Out, string(pending)+"\n")
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}
