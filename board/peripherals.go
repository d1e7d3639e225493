package board

import (
	"image/color"
	"io"
	"time"

	"epdboard/board/storage"
	"epdboard/types"
)

// ---- Debug channel ----

// Console is the human-readable debug stream (USB CDC or UART).
type Console interface {
	io.Writer
	Begin(baud uint32) error
	// Ready reports whether the host side is attached and bytes will be seen.
	Ready() bool
}

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
}

// PinFactory supplies GPIO pins by the board's number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- Peripherals ----

// Display is the part of an EPD driver the sequencer drives. Drawing APIs
// stay on the concrete driver.
type Display interface {
	Begin(mode types.DisplayMode) error
	Display() error
}

// Indicator is an addressable RGB status light chain.
type Indicator interface {
	Fill(c color.RGBA)
	Show() error
}

// Power arms the wake source and enters deep sleep. On hardware
// DeepSleepStart does not return.
type Power interface {
	EnableTimerWakeup(d time.Duration) error
	DeepSleepStart()
}

// Peripherals bundles the collaborators a Board takes ownership of.
type Peripherals struct {
	Console   Console
	Pins      PinFactory
	Display   Display
	Indicator Indicator
	FS        storage.Filesystem
	Power     Power
}
