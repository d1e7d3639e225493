// internal/platform/factories_host.go
//go:build !tinygo

package platform

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"sync"
	"time"

	"epdboard/board"
	"epdboard/board/storage"
	"epdboard/types"
)

// ----------------------------- Call log --------------------------------------

// CallLog records peripheral calls across all host fakes in order.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) add(format string, a ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, fmt.Sprintf(format, a...))
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Reset forgets everything recorded so far.
func (l *CallLog) Reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements board.GPIOPin for host-side tests.
type FakePin struct {
	mu      sync.Mutex
	number  int
	level   bool
	modeOut bool
	pull    board.Pull
	log     *CallLog
}

func (p *FakePin) ConfigureInput(pull board.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.mu.Unlock()
	p.log.add("pin%d.input", p.number)
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	p.log.add("pin%d.output(%t)", p.number, initial)
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	p.log.add("pin%d.set(%t)", p.number, level)
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}


// IsOutput reports the configured direction.
func (p *FakePin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modeOut
}

// Drive sets the level seen by Get without logging, as external hardware
// would (e.g. the panel releasing BUSY).
func (p *FakePin) Drive(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
	log  *CallLog

	// MaxGPIO bounds valid numbers; 0 means no upper bound.
	MaxGPIO int
}

func (f *HostPinFactory) ByNumber(n int) (board.GPIOPin, bool) {
	if n < 0 || (f.MaxGPIO > 0 && n > f.MaxGPIO) {
		return nil, false
	}
	return f.pin(n), true
}

func (f *HostPinFactory) pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n, log: f.log}
		f.pins[n] = p
	}
	return p
}

// Get exposes the underlying *FakePin for tests.
func (f *HostPinFactory) Get(n int) (*FakePin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}

// ----------------------------- Console ---------------------------------------

// BufferConsole captures debug output. Ready reports false for the first
// ReadyAfter polls; NeverReady keeps it false.
type BufferConsole struct {
	buf        bytes.Buffer
	Mirror     io.Writer
	Baud       uint32
	ReadyAfter int
	NeverReady bool
	BeginErr   error

	polls int
	log   *CallLog
}

func (c *BufferConsole) Begin(baud uint32) error {
	c.log.add("console.begin(%d)", baud)
	if c.BeginErr != nil {
		return c.BeginErr
	}
	c.Baud = baud
	return nil
}

func (c *BufferConsole) Ready() bool {
	c.polls++
	return !c.NeverReady && c.polls > c.ReadyAfter
}

// Polls reports how many times Ready was called.
func (c *BufferConsole) Polls() int { return c.polls }

func (c *BufferConsole) Write(p []byte) (int, error) {
	if c.Mirror != nil {
		_, _ = c.Mirror.Write(p)
	}
	return c.buf.Write(p)
}

func (c *BufferConsole) String() string { return c.buf.String() }

// ----------------------------- Display ---------------------------------------

// FakeDisplay records Begin/Display calls.
type FakeDisplay struct {
	Mode       types.DisplayMode
	Begins     int
	Refreshes  int
	BeginErr   error
	DisplayErr error

	log *CallLog
}

func (d *FakeDisplay) Begin(mode types.DisplayMode) error {
	d.log.add("display.begin(%s)", mode)
	if d.BeginErr != nil {
		return d.BeginErr
	}
	d.Mode = mode
	d.Begins++
	return nil
}

func (d *FakeDisplay) Display() error {
	d.log.add("display.refresh")
	if d.DisplayErr != nil {
		return d.DisplayErr
	}
	d.Refreshes++
	return nil
}

// ----------------------------- Indicator -------------------------------------

// FakeIndicator holds a pixel buffer and the last frame pushed by Show.
type FakeIndicator struct {
	Pixels  []color.RGBA
	Shown   []color.RGBA
	ShowErr error

	log *CallLog
}

func (n *FakeIndicator) Fill(c color.RGBA) {
	n.log.add("indicator.fill(%d,%d,%d)", c.R, c.G, c.B)
	for i := range n.Pixels {
		n.Pixels[i] = c
	}
}

func (n *FakeIndicator) Show() error {
	n.log.add("indicator.show")
	if n.ShowErr != nil {
		return n.ShowErr
	}
	n.Shown = append(n.Shown[:0], n.Pixels...)
	return nil
}

// ----------------------------- Power -----------------------------------------

// FakePower records the wake interval and returns from DeepSleepStart so the
// board's terminal signal can be observed.
type FakePower struct {
	Wake    time.Duration
	Slept   bool
	WakeErr error

	log *CallLog
}

func (p *FakePower) EnableTimerWakeup(d time.Duration) error {
	p.log.add("power.timer_wakeup(%s)", d)
	if p.WakeErr != nil {
		return p.WakeErr
	}
	p.Wake = d
	return nil
}

func (p *FakePower) DeepSleepStart() {
	p.log.add("power.deep_sleep")
	p.Slept = true
}

// ----------------------------- Bundle ----------------------------------------

// Host is a complete simulated board. Fields are exposed for inspection.
type Host struct {
	Log       *CallLog
	Console   *BufferConsole
	Pins      *HostPinFactory
	Display   *FakeDisplay
	Indicator *FakeIndicator
	Power     *FakePower
	FS        *storage.FS
}

// NewHost builds fakes for cfg over fsys. The busy line starts at its idle
// level so bring-up does not wait.
func NewHost(cfg types.BoardConfig, fsys fs.FS) *Host {
	log := &CallLog{}
	h := &Host{
		Log:       log,
		Console:   &BufferConsole{log: log},
		Pins:      &HostPinFactory{log: log},
		Display:   &FakeDisplay{log: log},
		Indicator: &FakeIndicator{Pixels: make([]color.RGBA, max(cfg.IndicatorCount, 0)), log: log},
		Power:     &FakePower{log: log},
		FS:        storage.NewFS(fsys),
	}
	if cfg.Pins.Busy >= 0 {
		h.Pins.pin(cfg.Pins.Busy).Drive(cfg.Levels.BusyIdle)
	}
	return h
}

// Peripherals hands the fakes to board.New.
func (h *Host) Peripherals() board.Peripherals {
	return board.Peripherals{
		Console:   h.Console,
		Pins:      h.Pins,
		Display:   h.Display,
		Indicator: h.Indicator,
		FS:        h.FS,
		Power:     h.Power,
	}
}
