package types

// BoardState is the lifecycle level of a Board.
type BoardState string

const (
	StateUninitialized BoardState = "uninitialized"
	StateActive        BoardState = "active"
	StateDeepSleep     BoardState = "deep_sleep"
)

// SleepBanner prefixes the last debug line printed before deep sleep.
// Host tools watch for it to know the port is about to drop.
const SleepBanner = "Entering deep sleep for "
