// Package heartbeat paces the periodic status line the firmware logs.
package heartbeat

import "keypad-go/x/mathx"

// DefaultPeriod is the interval between heartbeats in milliseconds.
const DefaultPeriod uint32 = 10_000

// Beat fires once per period on a millisecond tick. The zero value uses
// DefaultPeriod and fires on the first call.
type Beat struct {
	Period uint32

	last    uint32
	started bool
}

// Due reports whether a heartbeat should be logged at now.
func (b *Beat) Due(now uint32) bool {
	period := b.Period
	if period == 0 {
		period = DefaultPeriod
	}
	if b.started && mathx.Elapsed(now, b.last) < period {
		return false
	}
	b.started = true
	b.last = now
	return true
}
