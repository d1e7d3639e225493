package setups

import (
	"image/color"
	"time"

	"epdboard/types"
)

// MagTag is the Adafruit MagTag 2.9" wiring: ThinkInk grayscale panel on
// SPI, four NeoPixels behind an active-low power gate, speaker amp enable,
// VBAT divider and LIS3DH interrupt.
var MagTag = types.BoardConfig{
	Name: "magtag",
	Pins: types.Pins{
		EPDCS:  8,
		EPDDC:  7,
		Reset:  6,
		Busy:   5,
		SRAMCS: types.NoPin,

		SpeakerEnable: 16,
		Speaker:       17,

		IndicatorEnable: 21,
		Indicator:       1,

		VoltageMonitor: 4,
		AccelInterrupt: 9,

		SCK:     36,
		SDO:     35,
		SDI:     37,
		FlashCS: 33,
	},
	Levels: types.Levels{
		IndicatorOn: false,
		SpeakerOn:   true,
		BusyIdle:    true,
	},

	BaudRate:     115200,
	ReadyTimeout: 2 * time.Second,
	PollInterval: 10 * time.Millisecond,
	BusyTimeout:  10 * time.Second,

	IndicatorColor: color.RGBA{R: 25, G: 0, B: 0, A: 255},
	IndicatorCount: 4,

	DisplayMode:  types.ModeGrayscale4,
	WakeInterval: 60 * time.Second,

	PanelWidth:  296,
	PanelHeight: 128,

	Mount: types.MountConfig{
		Label:        "spiffs",
		BasePath:     "",
		MaxOpenFiles: 10,
		FormatOnFail: false,
	},
}

// Default returns the setup selected for this build.
func Default() types.BoardConfig { return MagTag }
