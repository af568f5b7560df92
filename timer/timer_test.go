package timer

import (
	"math"
	"strings"
	"testing"
)

func TestScheduleRejectsNoneAndDuplicates(t *testing.T) {
	l := New(4)
	if l.Schedule(&Timer{Kind: None}) {
		t.Fatal("None timer should be rejected")
	}

	tm := &Timer{Kind: OneShot, Duration: 10}
	if !l.Schedule(tm) {
		t.Fatal("first schedule failed")
	}
	if l.Schedule(tm) {
		t.Fatal("duplicate schedule should return false")
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
	if !tm.Scheduled() {
		t.Fatal("timer should report scheduled")
	}
}

func TestScheduleFullArena(t *testing.T) {
	l := New(2)
	a, b, c := &Timer{Kind: OneShot}, &Timer{Kind: OneShot}, &Timer{Kind: OneShot}
	if !l.Schedule(a) || !l.Schedule(b) {
		t.Fatal("schedule within capacity failed")
	}
	if l.Schedule(c) {
		t.Fatal("schedule beyond capacity should fail")
	}
	l.Unschedule(a)
	if !l.Schedule(c) {
		t.Fatal("freed slot should be reusable")
	}
}

func TestUnschedule(t *testing.T) {
	l := New(4)
	a, b, c := &Timer{Kind: Periodic}, &Timer{Kind: Periodic}, &Timer{Kind: Periodic}
	l.Schedule(a)
	l.Schedule(b)
	l.Schedule(c)

	if !l.Unschedule(b) {
		t.Fatal("unschedule middle failed")
	}
	if l.Unschedule(b) {
		t.Fatal("second unschedule should return false")
	}
	if b.Scheduled() {
		t.Fatal("unscheduled timer still reports scheduled")
	}
	if !l.Unschedule(c) || !l.Unschedule(a) {
		t.Fatal("unschedule head/tail failed")
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d, want 0", l.Len())
	}
}

func TestOneShotFiresOnceThenCleansUp(t *testing.T) {
	l := New(4)
	var fired, cleaned int
	tm := &Timer{
		Kind:     OneShot,
		Base:     100,
		Duration: 5,
		Callback: func(*Timer) { fired++ },
		Cleanup:  func(tt *Timer) { cleaned++ },
	}
	l.Schedule(tm)

	l.Tick(104)
	if fired != 0 {
		t.Fatal("fired before duration elapsed")
	}
	l.Tick(105)
	l.Tick(106)
	l.Tick(200)
	if fired != 1 || cleaned != 1 {
		t.Fatalf("fired=%d cleaned=%d, want 1/1", fired, cleaned)
	}
	if tm.Trigger() != CleanedUp {
		t.Fatalf("trigger = %d, want CleanedUp", tm.Trigger())
	}
	// Still linked: the list never unlinks by itself.
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
}

func TestPeriodicWithoutRearmFiresEveryTick(t *testing.T) {
	l := New(4)
	var fired int
	l.Schedule(&Timer{Kind: Periodic, Duration: 10, Callback: func(*Timer) { fired++ }})

	for now := uint32(0); now < 15; now++ {
		l.Tick(now)
	}
	// Due from tick 10 through 14.
	if fired != 5 {
		t.Fatalf("fired = %d, want 5", fired)
	}
}

func TestPeriodicRearm(t *testing.T) {
	l := New(4)
	var at []uint32
	var now uint32
	l.Schedule(&Timer{Kind: Periodic, Duration: 10, Callback: func(tt *Timer) {
		at = append(at, now)
		tt.Rearm(now)
	}})

	for now = 0; now <= 35; now++ {
		l.Tick(now)
	}
	if len(at) != 3 || at[0] != 10 || at[1] != 20 || at[2] != 30 {
		t.Fatalf("fired at %v, want [10 20 30]", at)
	}
}

func TestTickAcrossCounterWrap(t *testing.T) {
	l := New(1)
	var fired bool
	l.Schedule(&Timer{Kind: OneShot, Base: math.MaxUint32 - 2, Duration: 5, Callback: func(*Timer) { fired = true }})
	l.Tick(1) // elapsed 4
	if fired {
		t.Fatal("fired early across wrap")
	}
	l.Tick(2)
	if !fired {
		t.Fatal("did not fire across wrap")
	}
}

func TestCallbackMayUnscheduleItself(t *testing.T) {
	l := New(4)
	var order []string
	var self *Timer
	self = &Timer{Kind: Periodic, Callback: func(*Timer) {
		order = append(order, "self")
		l.Unschedule(self)
	}}
	other := &Timer{Kind: Periodic, Callback: func(*Timer) { order = append(order, "other") }}

	l.Schedule(other)
	l.Schedule(self) // head

	l.Tick(1)
	if len(order) != 2 || order[0] != "self" || order[1] != "other" {
		t.Fatalf("order = %v", order)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
}

func TestTimerScheduledInCallbackWaitsForNextTick(t *testing.T) {
	l := New(4)
	var lateFired int
	late := &Timer{Kind: OneShot, Callback: func(*Timer) { lateFired++ }}
	first := &Timer{Kind: OneShot, Callback: func(*Timer) { l.Schedule(late) }}
	l.Schedule(first)

	l.Tick(1)
	if lateFired != 0 {
		t.Fatal("timer scheduled mid-tick fired in the same tick")
	}
	l.Tick(2)
	if lateFired != 1 {
		t.Fatalf("late fired %d times, want 1", lateFired)
	}
}

func TestCallbackMayUnscheduleNextTimer(t *testing.T) {
	l := New(4)
	var fired []string
	named := func(name string) *Timer {
		return &Timer{Kind: Periodic, Callback: func(*Timer) { fired = append(fired, name) }}
	}
	a, c, d := named("a"), named("c"), named("d")
	b := &Timer{Kind: Periodic, Callback: func(*Timer) {
		fired = append(fired, "b")
		l.Unschedule(c)
	}}
	for _, tm := range []*Timer{d, c, b, a} {
		l.Schedule(tm) // list runs a, b, c, d
	}

	l.Tick(1)
	if got := strings.Join(fired, ","); got != "a,b,d" {
		t.Fatalf("fired = %s, want a,b,d", got)
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
}

func TestRescanAfterSelfUnscheduleVisitsEachOnce(t *testing.T) {
	l := New(4)
	counts := map[string]int{}
	a := &Timer{Kind: Periodic, Callback: func(*Timer) { counts["a"]++ }}
	var b *Timer
	b = &Timer{Kind: Periodic, Callback: func(*Timer) {
		counts["b"]++
		l.Unschedule(b)
	}}
	c := &Timer{Kind: Periodic, Callback: func(*Timer) { counts["c"]++ }}
	for _, tm := range []*Timer{c, b, a} {
		l.Schedule(tm) // list runs a, b, c
	}

	l.Tick(1)
	if counts["a"] != 1 || counts["b"] != 1 || counts["c"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
