package types

import (
	"image/color"
	"time"
)

// NoPin marks a line that is not connected on this board.
const NoPin = -1

// Pins is the wiring of one board. Plain GPIO numbers; mapping to
// machine.Pin happens in the platform package.
type Pins struct {
	EPDCS  int `json:"epd_cs"`
	EPDDC  int `json:"epd_dc"`
	Reset  int `json:"reset"`
	Busy   int `json:"busy"`
	SRAMCS int `json:"sram_cs"` // unused on boards without EPD frame SRAM

	SpeakerEnable int `json:"speaker_enable"`
	Speaker       int `json:"speaker"`

	IndicatorEnable int `json:"indicator_enable"`
	Indicator       int `json:"indicator"` // NeoPixel data

	VoltageMonitor int `json:"vmon"`
	AccelInterrupt int `json:"acc_int"`

	// SPI bus shared by the panel; the flash chip sits on a second bus.
	SCK     int `json:"sck"`
	SDO     int `json:"sdo"`
	SDI     int `json:"sdi"`
	FlashCS int `json:"flash_cs"` // NoPin: no external flash fitted
}

// Levels gives the electrical level of each gated line in its named state.
type Levels struct {
	IndicatorOn bool `json:"indicator_on"` // MagTag NeoPixel gate is active-low
	SpeakerOn   bool `json:"speaker_on"`
	BusyIdle    bool `json:"busy_idle"` // IL0373/UC8151 BUSY_N reads high when idle
}

// DisplayMode selects the panel drive mode passed to Display.Begin.
type DisplayMode uint8

const (
	ModeMonochrome DisplayMode = iota
	ModeGrayscale4
)

func (m DisplayMode) String() string {
	switch m {
	case ModeMonochrome:
		return "mono"
	case ModeGrayscale4:
		return "gray4"
	default:
		return "unknown"
	}
}

// MountConfig mirrors the LittleFS begin() arguments.
type MountConfig struct {
	Label        string `json:"label"`
	BasePath     string `json:"base_path"`
	MaxOpenFiles int    `json:"max_open_files"`
	FormatOnFail bool   `json:"format_on_fail"`
}

// BoardConfig is the immutable description handed to board.New.
type BoardConfig struct {
	Name   string
	Pins   Pins
	Levels Levels

	// Debug channel
	BaudRate     uint32
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// BusyTimeout bounds the wait for the panel after the first refresh.
	// Zero skips the wait.
	BusyTimeout time.Duration

	IndicatorColor color.RGBA
	IndicatorCount int

	DisplayMode  DisplayMode
	WakeInterval time.Duration

	// PanelWidth and PanelHeight (rotated, in pixels) bound images handed to
	// the renderer. Zero skips the check.
	PanelWidth  int
	PanelHeight int

	Mount MountConfig
}

// Validate reports the first problem with c, or nil.
func (c BoardConfig) Validate() error {
	required := []struct {
		name string
		pin  int
	}{
		{"epd_cs", c.Pins.EPDCS},
		{"epd_dc", c.Pins.EPDDC},
		{"reset", c.Pins.Reset},
		{"busy", c.Pins.Busy},
		{"speaker_enable", c.Pins.SpeakerEnable},
		{"indicator_enable", c.Pins.IndicatorEnable},
		{"indicator", c.Pins.Indicator},
	}
	for _, r := range required {
		if r.pin < 0 {
			return &ConfigError{Field: "pins." + r.name, Reason: "not connected"}
		}
	}
	switch {
	case c.BaudRate == 0:
		return &ConfigError{Field: "baud_rate", Reason: "must be > 0"}
	case c.ReadyTimeout <= 0:
		return &ConfigError{Field: "ready_timeout", Reason: "must be > 0"}
	case c.PollInterval <= 0:
		return &ConfigError{Field: "poll_interval", Reason: "must be > 0"}
	case c.BusyTimeout < 0:
		return &ConfigError{Field: "busy_timeout", Reason: "must be >= 0"}
	case c.IndicatorCount <= 0:
		return &ConfigError{Field: "indicator_count", Reason: "must be > 0"}
	case c.WakeInterval <= 0:
		return &ConfigError{Field: "wake_interval", Reason: "must be > 0"}
	case c.PanelWidth < 0 || c.PanelHeight < 0:
		return &ConfigError{Field: "panel", Reason: "must be >= 0"}
	case c.Mount.MaxOpenFiles <= 0:
		return &ConfigError{Field: "mount.max_open_files", Reason: "must be > 0"}
	}
	return nil
}

// ConfigError names the offending BoardConfig field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Field + " " + e.Reason }
