//go:build tinygo && esp32s3

// Command magtag-fw: board bring-up, flash listing and timed deep sleep on an
// ESP32-S3 e-paper board.
//
// Build/flash (TinyGo):
//
//	tinygo flash -target esp32s3 ./cmd/magtag-fw
//
// Each wake is a fresh boot: bring-up, one update, then sleep for the wake
// interval configured in setups.MagTag.
package main

import (
	"context"
	"time"

	"epdboard/board"
	"epdboard/internal/platform"
	"epdboard/internal/platform/setups"
)

func main() {
	cfg := setups.Default()

	b, err := board.New(context.Background(), cfg, platform.NewMCU(cfg))
	if err != nil {
		// Nothing else can run without the board; retry after a pause.
		for {
			println("board init failed:", err.Error())
			time.Sleep(5 * time.Second)
		}
	}

	if err := b.MountFlash(); err == nil {
		_ = b.ListDir("/", 1)
	}

	b.Update()

	_ = b.Sleep(true)
}
