// Package timer implements the millisecond software timer list ticked by the
// secondary core.
//
// Timers are caller-owned. The list only holds a reference while a timer is
// scheduled, in a fixed arena of slots so ticking never allocates. A timer
// may not be scheduled twice; the second Schedule is rejected, not merged.
//
// Periodic timers are not rearmed by the list. A periodic callback that does
// not call Rearm keeps firing on every tick once its duration has elapsed.
package timer

import "keypad-go/x/mathx"

// Kind selects one-shot or periodic behaviour. None timers are never scheduled.
type Kind uint8

const (
	None Kind = iota
	OneShot
	Periodic
)

// Trigger tracks the firing state of a timer.
type Trigger uint8

const (
	Pending Trigger = iota
	Fired
	CleanedUp
)

// Timer is one scheduled callback.
type Timer struct {
	Kind     Kind
	Base     uint32 // tick the duration is measured from
	Duration uint32 // milliseconds
	Callback func(t *Timer)
	Cleanup  func(t *Timer) // one-shot only, after the callback
	Data     any

	trig Trigger
	slot int // arena index + 1 while scheduled; 0 otherwise
}

// Trigger reports the current firing state.
func (t *Timer) Trigger() Trigger { return t.trig }

// Scheduled reports whether t is linked into a list.
func (t *Timer) Scheduled() bool { return t.slot != 0 }

// Rearm resets the base tick and marks the timer pending again.
func (t *Timer) Rearm(now uint32) {
	t.Base = now
	t.trig = Pending
}

const nilSlot = -1

type slot struct {
	t    *Timer
	next int
	used bool
	seq  uint32 // schedule sequence, to spot slots reused mid-tick

	visited uint32 // tick epoch of the last visit
}

// List is a singly linked set of timers stored in a fixed arena.
type List struct {
	slots []slot
	head  int
	free  int // head of the free chain
	n     int
	seq   uint32
	epoch uint32
}

// New returns a list able to hold capacity timers at once.
func New(capacity int) *List {
	capacity = mathx.Max(capacity, 1)
	l := &List{slots: make([]slot, capacity), head: nilSlot}
	for i := range l.slots {
		l.slots[i].next = i + 1
	}
	l.slots[capacity-1].next = nilSlot
	return l
}

// Len reports how many timers are scheduled.
func (l *List) Len() int { return l.n }

// Schedule links t at the head of the list and marks it pending.
// It returns false for None timers, timers already present, and when the
// arena is full.
func (l *List) Schedule(t *Timer) bool {
	if t == nil || t.Kind == None {
		return false
	}
	for i := l.head; i != nilSlot; i = l.slots[i].next {
		if l.slots[i].t == t {
			return false
		}
	}
	if l.free == nilSlot {
		return false
	}

	i := l.free
	l.free = l.slots[i].next
	l.seq++
	l.slots[i] = slot{t: t, next: l.head, used: true, seq: l.seq}
	l.head = i
	l.n++

	t.trig = Pending
	t.slot = i + 1
	return true
}

// Unschedule unlinks t. It returns false if t was not in the list.
func (l *List) Unschedule(t *Timer) bool {
	prev := nilSlot
	for i := l.head; i != nilSlot; i = l.slots[i].next {
		if l.slots[i].t != t {
			prev = i
			continue
		}
		if prev == nilSlot {
			l.head = l.slots[i].next
		} else {
			l.slots[prev].next = l.slots[i].next
		}
		l.slots[i] = slot{next: l.free}
		l.free = i
		l.n--
		t.slot = 0
		return true
	}
	return false
}

// Tick walks the list once and fires due timers. Call it once per distinct
// millisecond value. Callbacks may unschedule any timer and may schedule new
// ones; new timers land at the head and wait for the next tick. Each timer
// scheduled when the tick started is visited at most once.
func (l *List) Tick(now uint32) {
	l.epoch++
	if l.epoch == 0 {
		l.epoch = 1
	}
	start := l.seq
	cur := l.head
	for cur != nilSlot {
		s := &l.slots[cur]
		if s.visited == l.epoch || int32(s.seq-start) > 0 {
			cur = s.next
			continue
		}
		s.visited = l.epoch
		seq := s.seq
		l.fire(s.t, now)

		if s.used && s.seq == seq {
			cur = s.next
		} else {
			// Unlinked by its own callback: rescan, skipping visited slots.
			cur = l.head
		}
	}
}

func (l *List) fire(t *Timer, now uint32) {
	if t.Kind == None || t.trig != Pending {
		return
	}
	if mathx.Elapsed(now, t.Base) < t.Duration {
		return
	}

	var cleanup func(*Timer)
	if t.Kind == OneShot {
		t.trig = Fired
		cleanup = t.Cleanup
	}
	if t.Callback != nil {
		t.Callback(t)
	}
	if cleanup != nil && t.trig != CleanedUp {
		t.trig = CleanedUp
		cleanup(t)
	}
}
