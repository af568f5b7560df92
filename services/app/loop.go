package app

import (
	"runtime"

	"keypad-go/errcode"
	"keypad-go/services/leds"
	"keypad-go/timer"
	"keypad-go/x/logx"
)

// Run boots, hands the App to the secondary core and runs the primary loop.
// It never returns.
func (a *App) Run() {
	if err := a.Boot(); err != nil {
		a.Halt(err)
	}
	a.Start(runSecondary)
	logx.Info("app", "running")
	for {
		a.PrimaryStep()
		runtime.Gosched()
	}
}

func runSecondary(a *App) {
	for {
		a.SecondaryStep()
		runtime.Gosched()
	}
}

// Start launches secondary on the other core and completes the startup
// handoff: the App pointer is passed once, then both sides rendezvous so
// neither touches shared state before the other is up.
func (a *App) Start(secondary func(*App)) {
	handoff := make(chan *App)
	ready := make(chan struct{})

	go func() {
		app := <-handoff
		ready <- struct{}{}
		<-ready
		secondary(app)
	}()

	handoff <- a
	<-ready
	ready <- struct{}{}
}

// PrimaryStep runs one iteration of the primary core loop.
func (a *App) PrimaryStep() {
	now := a.clock.Millis()

	a.matrix.Scan(now)
	a.syncToggles()

	if a.usb.TakeReset() {
		logx.Info("app", "host reconnected, resetting channel")
		a.ch.Reset()
	}
	if a.rep.Blocked() {
		a.emitKeyReport(true)
	}

	a.rep.TransmitOnce(a.matrix)
	a.ch.UpdateOnce()
	if a.poll != nil {
		a.poll()
	}

	if a.ch.Read(&a.in) {
		a.handle(&a.in, now)
	}

	if _, err := a.store.Tick(now, a.matrix); err != nil {
		logx.Error("app", "save failed", "err", err)
	}

	a.lit.Store(a.layout.Derive(a.matrix, a.usb.Mounted(), a.rep.Blocked(), a.usb.Indicators()))

	if a.beat.Due(now) {
		logx.Info("app", "heartbeat",
			"uptime_ms", now,
			"mounted", a.usb.Mounted(),
			"capture", a.rep.Blocked(),
			"held", a.matrix.Ordered(),
			"tx_dropped", a.ch.Dropped(),
			"saves", a.store.Writes())
	}
}

// SecondaryStep ticks the timer list once per millisecond and refreshes the
// LEDs on every pass.
func (a *App) SecondaryStep() {
	now := a.clock.Millis()
	if !a.ticked || now != a.lastTick {
		a.ticked = true
		a.lastTick = now
		a.timers.Tick(now)
	}
	a.panel.Apply(a.lit.Load())
}

// Halt shows the failure pattern for err and never returns.
func (a *App) Halt(err error) {
	logx.Error("app", "boot failed", "err", err)
	a.Fail(err)
	for {
		a.SecondaryStep()
		runtime.Gosched()
	}
}

// Fail sets up the failure pattern for a boot error; SecondaryStep then
// drives it. A store that cannot be read blinks the status LEDs
// alternately, any other failure lights both.
func (a *App) Fail(err error) {
	now := a.clock.Millis()
	a.lit.Store(0)
	if errcode.Of(err) != errcode.StoreRead {
		a.panel.Override(leds.StatusMask, leds.StatusMask)
		return
	}
	a.panel.Override(leds.StatusMask, leds.StatusMount)
	a.blink = timer.Timer{
		Kind:     timer.Periodic,
		Base:     now,
		Duration: blinkPeriod,
		Callback: a.blinkStatus,
	}
	a.timers.Schedule(&a.blink)
}

func (a *App) blinkStatus(t *timer.Timer) {
	a.blinkHigh = !a.blinkHigh
	lit := leds.StatusMount
	if a.blinkHigh {
		lit = leds.StatusCapture
	}
	a.panel.Override(leds.StatusMask, lit)
	t.Rearm(t.Base + t.Duration)
}
