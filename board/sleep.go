package board

import (
	"errors"

	"epdboard/errcode"
	"epdboard/types"
)

// ErrDeepSleep is returned by Sleep only when the platform's deep-sleep
// entry came back (host fakes). Treat it as process halt: the caller should
// unwind and exit, the way a hardware reset would restart the program.
var ErrDeepSleep = errors.New("board: entered deep sleep")

// Sleep powers the board down and arms the wake timer. Only deep sleep is
// implemented; deep=false returns errcode.Unsupported without side effects.
//
// The enable gates are driven to their off levels and the panel reset held
// low, which saves a few mA on the MagTag.
func (b *Board) Sleep(deep bool) error {
	if err := b.live("sleep"); err != nil {
		return err
	}
	if !deep {
		return &errcode.E{C: errcode.Unsupported, Op: "sleep", Msg: "light sleep"}
	}
	c := b.cfg

	if err := b.neoEn.ConfigureOutput(!c.Levels.IndicatorOn); err != nil {
		return stepErr("indicator_enable", err)
	}
	if err := b.spkrEn.ConfigureOutput(!c.Levels.SpeakerOn); err != nil {
		return stepErr("speaker_enable", err)
	}
	b.spkrEn.Set(!c.Levels.SpeakerOn)
	b.neoEn.Set(!c.Levels.IndicatorOn)
	if err := b.reset.ConfigureOutput(false); err != nil {
		return stepErr("reset", err)
	}
	b.reset.Set(false)

	if err := b.power.EnableTimerWakeup(c.WakeInterval); err != nil {
		return stepErr("timer_wakeup", err)
	}
	b.println(types.SleepBanner + c.WakeInterval.String())

	b.state = types.StateDeepSleep
	b.mounted = false
	b.power.DeepSleepStart()
	return ErrDeepSleep
}
