// internal/platform/factories_esp32s3.go
//go:build tinygo && esp32s3

package platform

import (
	"device/esp"
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/flash"
	"tinygo.org/x/drivers/uc8151"
	"tinygo.org/x/drivers/ws2812"
	"tinygo.org/x/tinyfs/littlefs"

	"epdboard/board"
	"epdboard/board/storage"
	"epdboard/errcode"
	"epdboard/types"
)

// -----------------------------------------------------------------------------
// Defaults used by cmd/magtag-fw on ESP32-S3 class boards
// -----------------------------------------------------------------------------

// NewMCU binds cfg to the on-chip peripherals and vendor drivers. Nothing is
// driven yet apart from SPI bus configuration; board.New does the bring-up.
func NewMCU(cfg types.BoardConfig) board.Peripherals {
	p := cfg.Pins

	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 4_000_000,
		SCK:       machine.Pin(p.SCK),
		SDO:       machine.Pin(p.SDO),
		SDI:       machine.Pin(p.SDI),
		Mode:      0,
	})

	epd := uc8151.New(machine.SPI0,
		machine.Pin(p.EPDCS), machine.Pin(p.EPDDC), machine.Pin(p.Reset), machine.Pin(p.Busy))

	neo := machine.Pin(p.Indicator)
	neo.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return board.Peripherals{
		Console:   serialConsole{},
		Pins:      mcuPinFactory{},
		Display:   &epdDisplay{dev: &epd},
		Indicator: &neoIndicator{dev: ws2812.New(neo), buf: make([]color.RGBA, cfg.IndicatorCount)},
		FS:        storage.PagedFS(newFlashFS(p)),
		Power:     &rtcPower{},
	}
}

// ---- GPIO ----

// ESP32-S3 exposes GPIO0..GPIO48.
const maxGPIO = 48

type mcuPinFactory struct{}

func (mcuPinFactory) ByNumber(n int) (board.GPIOPin, bool) {
	if n < 0 || n > maxGPIO {
		return nil, false
	}
	return &mcuPin{p: machine.Pin(n)}, true
}

type mcuPin struct {
	p machine.Pin
}

func (r *mcuPin) ConfigureInput(pull board.Pull) error {
	var mode machine.PinMode
	switch pull {
	case board.PullUp:
		mode = machine.PinInputPullup
	case board.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *mcuPin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *mcuPin) Set(level bool) { r.p.Set(level) }
func (r *mcuPin) Get() bool      { return r.p.Get() }

// ---- Debug channel ----

// serialConsole is machine.Serial. The UART bridge gives no attach signal,
// so Ready is true once configured.
type serialConsole struct{}

func (serialConsole) Begin(baud uint32) error {
	return machine.Serial.Configure(machine.UARTConfig{BaudRate: baud})
}

func (serialConsole) Ready() bool { return true }

func (serialConsole) Write(b []byte) (int, error) { return machine.Serial.Write(b) }

// ---- Display (ThinkInk 2.9", UC8151/IL0373 family) ----

type epdDisplay struct {
	dev *uc8151.Device
}

// Begin configures the controller. The driver only carries monochrome LUTs;
// gray4 selects the full-waveform refresh so all levels settle.
func (d *epdDisplay) Begin(mode types.DisplayMode) error {
	speed := uc8151.TURBO
	if mode == types.ModeGrayscale4 {
		speed = uc8151.DEFAULT
	}
	d.dev.Configure(uc8151.Config{
		Width:    128,
		Height:   296,
		Rotation: uc8151.ROTATION_270,
		Speed:    speed,
	})
	d.dev.ClearBuffer()
	return nil
}

func (d *epdDisplay) Display() error { return d.dev.Display() }

// ---- Indicator (NeoPixel chain) ----

type neoIndicator struct {
	dev ws2812.Device
	buf []color.RGBA
}

func (n *neoIndicator) Fill(c color.RGBA) {
	for i := range n.buf {
		n.buf[i] = c
	}
}

func (n *neoIndicator) Show() error { return n.dev.WriteColors(n.buf) }

// ---- Flash filesystem (SPI NOR + littlefs) ----

type flashFS struct {
	cs  int
	dev *flash.Device
	lfs *littlefs.LFS
}

func newFlashFS(p types.Pins) *flashFS {
	f := &flashFS{cs: p.FlashCS}
	if p.FlashCS == types.NoPin {
		return f
	}
	f.dev = flash.NewSPI(&machine.SPI1,
		machine.Pin(p.SDO), machine.Pin(p.SDI), machine.Pin(p.SCK), machine.Pin(p.FlashCS))
	return f
}

// Mount probes the chip and mounts littlefs. Label and MaxOpenFiles belong to
// the ESP-IDF VFS and have no littlefs equivalent here.
func (f *flashFS) Mount(cfg types.MountConfig) error {
	if f.dev == nil {
		return errcode.Unsupported
	}
	if f.lfs == nil {
		if err := f.dev.Configure(&flash.DeviceConfig{Identifier: flash.DefaultDeviceIdentifier}); err != nil {
			return err
		}
		f.lfs = littlefs.New(f.dev)
		f.lfs.Configure(&littlefs.Config{
			CacheSize:     512,
			LookaheadSize: 512,
			BlockCycles:   100,
		})
	}
	err := f.lfs.Mount()
	if err != nil && cfg.FormatOnFail {
		if ferr := f.lfs.Format(); ferr != nil {
			return ferr
		}
		err = f.lfs.Mount()
	}
	return err
}

// Open returns the raw littlefs handle; NewMCU wraps the filesystem with
// storage.PagedFS for one-entry directory reads.
func (f *flashFS) Open(path string) (storage.File, error) {
	if f.lfs == nil {
		return nil, errcode.NotMounted
	}
	return f.lfs.Open(path)
}

// ---- Power (RTC timer wake + deep sleep) ----

const (
	rtcSlowHz = 136_000 // RC slow clock, nominal

	timeUpdate     = 1 << 31 // RTC_CNTL_TIME_UPDATE
	mainTimerAlarm = 1 << 16 // RTC_CNTL_MAIN_TIMER_ALARM_EN
	wakeTimer      = 1 << 3  // timer bit of RTC_CNTL_WAKEUP_ENA
	wakeEnaShift   = 15
	sleepEn        = 1 << 31 // RTC_CNTL_SLEEP_EN
	digWrapPD      = 1 << 31 // RTC_CNTL_DG_WRAP_PD_EN
)

type rtcPower struct {
	ticks uint64
}

func (p *rtcPower) EnableTimerWakeup(d time.Duration) error {
	if d <= 0 {
		return errcode.InvalidParams
	}
	p.ticks = uint64(d/time.Microsecond) * rtcSlowHz / 1_000_000
	return nil
}

// DeepSleepStart programs the RTC alarm relative to now and powers the
// digital domain down. Execution resumes at reset.
func (p *rtcPower) DeepSleepStart() {
	esp.RTC_CNTL.TIME_UPDATE.Set(timeUpdate)
	now := uint64(esp.RTC_CNTL.TIME_HIGH0.Get())<<32 | uint64(esp.RTC_CNTL.TIME_LOW0.Get())
	alarm := now + p.ticks

	esp.RTC_CNTL.SLP_TIMER0.Set(uint32(alarm))
	esp.RTC_CNTL.SLP_TIMER1.Set(uint32(alarm>>32)&0xffff | mainTimerAlarm)
	esp.RTC_CNTL.WAKEUP_STATE.Set(wakeTimer << wakeEnaShift)
	esp.RTC_CNTL.DIG_PWC.SetBits(digWrapPD)
	esp.RTC_CNTL.STATE0.SetBits(sleepEn)

	for {
	}
}
