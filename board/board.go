// Package board is the lifecycle sequencer for a battery-powered e-paper
// board: ordered bring-up of the debug channel, indicator and panel, flash
// mount and listing, and the terminal deep-sleep transition.
//
// A Board is used from one goroutine. Construction happens in New; there is
// no way to hold a Board whose bring-up did not complete.
package board

import (
	"context"
	"fmt"
	"io"

	"epdboard/board/storage"
	"epdboard/errcode"
	"epdboard/types"
	"epdboard/x/timex"
)

type Board struct {
	cfg types.BoardConfig

	console Console
	display Display
	light   Indicator
	fs      storage.Filesystem
	images  *storage.ImageReader
	power   Power

	busy   GPIOPin
	reset  GPIOPin
	spkrEn GPIOPin
	neoEn  GPIOPin

	state   types.BoardState
	mounted bool
}

// New takes ownership of p and brings the board up:
//
//  1. debug channel at cfg.BaudRate, polled until ready
//  2. busy pin input, indicator gate output driven on
//  3. indicator filled with cfg.IndicatorColor and shown
//  4. display begun in cfg.DisplayMode
//  5. one display refresh, then (BusyTimeout > 0) wait for the panel to idle
//
// Any failing step aborts with an *errcode.E naming the step.
func New(ctx context.Context, cfg types.BoardConfig, p Peripherals) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Err: err}
	}
	if p.Console == nil || p.Pins == nil || p.Display == nil || p.Indicator == nil || p.FS == nil || p.Power == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "peripherals", Msg: "missing collaborator"}
	}

	b := &Board{
		cfg:     cfg,
		console: p.Console,
		display: p.Display,
		light:   p.Indicator,
		fs:      p.FS,
		images:  storage.NewImageReader(p.FS),
		power:   p.Power,
		state:   types.StateUninitialized,
	}

	var err error
	if b.busy, err = claim(p.Pins, "busy", cfg.Pins.Busy); err != nil {
		return nil, err
	}
	if b.reset, err = claim(p.Pins, "reset", cfg.Pins.Reset); err != nil {
		return nil, err
	}
	if b.spkrEn, err = claim(p.Pins, "speaker_enable", cfg.Pins.SpeakerEnable); err != nil {
		return nil, err
	}
	if b.neoEn, err = claim(p.Pins, "indicator_enable", cfg.Pins.IndicatorEnable); err != nil {
		return nil, err
	}

	if err := b.construct(ctx); err != nil {
		return nil, err
	}
	b.state = types.StateActive
	return b, nil
}

func claim(f PinFactory, name string, n int) (GPIOPin, error) {
	p, ok := f.ByNumber(n)
	if !ok || p == nil {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "pin", Msg: fmt.Sprintf("%s=%d", name, n)}
	}
	return p, nil
}

func (b *Board) construct(ctx context.Context) error {
	c := b.cfg

	if err := b.console.Begin(c.BaudRate); err != nil {
		return stepErr("console", err)
	}
	if err := timex.Poll(ctx, c.PollInterval, c.ReadyTimeout, b.console.Ready); err != nil {
		return stepErr("console_ready", err)
	}

	if err := b.busy.ConfigureInput(PullNone); err != nil {
		return b.fail("busy_pin", err)
	}
	if err := b.neoEn.ConfigureOutput(c.Levels.IndicatorOn); err != nil {
		return b.fail("indicator_enable", err)
	}
	b.neoEn.Set(c.Levels.IndicatorOn)

	b.light.Fill(c.IndicatorColor)
	if err := b.light.Show(); err != nil {
		return b.fail("indicator", err)
	}

	if err := b.display.Begin(c.DisplayMode); err != nil {
		return b.fail("display_begin", err)
	}
	if err := b.display.Display(); err != nil {
		return b.fail("display_refresh", err)
	}

	if c.BusyTimeout > 0 {
		idle := func() bool { return b.busy.Get() == c.Levels.BusyIdle }
		if err := timex.Poll(ctx, c.PollInterval, c.BusyTimeout, idle); err != nil {
			return b.fail("display_busy", err)
		}
	}
	return nil
}

// fail reports a bring-up failure on the (already open) debug channel.
func (b *Board) fail(op string, err error) error {
	e := stepErr(op, err)
	b.println(" - " + e.Error())
	return e
}

func stepErr(op string, err error) *errcode.E {
	if c, ok := err.(errcode.Code); ok {
		return &errcode.E{C: c, Op: op}
	}
	return errcode.Wrap(errcode.Of(err), op, err)
}

// Update is the periodic hook called from the main loop. Nothing to do yet.
func (b *Board) Update() {}

// State reports the lifecycle level.
func (b *Board) State() types.BoardState { return b.state }

// live rejects operations once the board has entered deep sleep.
func (b *Board) live(op string) error {
	if b.state == types.StateDeepSleep {
		return &errcode.E{C: errcode.Halted, Op: op}
	}
	return nil
}

// ---------- Debug output (print / println / printf) ----------

func (b *Board) print(s string)   { _, _ = io.WriteString(b.console, s) }
func (b *Board) println(s string) { _, _ = io.WriteString(b.console, s+"\n") }
func (b *Board) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(b.console, format, a...)
}
