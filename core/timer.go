package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type TimerType uint8

const (
	RouteDiscoveryTimer TimerType = iota + 1
	DeliveryTimer
	PantTimer
)

func (t TimerType) String() string {
	switch t {
	case RouteDiscoveryTimer:
		return "RouteDiscoveryTimer"
	case DeliveryTimer:
		return "DeliveryTimer"
	case PantTimer:
		return "PantTimer"
	}
	return fmt.Sprintf("TimerType(%d)", uint8(t))
}

// Timeout is handed to the listener when a timer fires. It carries the identity of the timer, never the timer itself.
type Timeout struct {
	Id      uuid.UUID
	Type    TimerType
	Context any
}

// Timer is a single-shot, cancellable countdown.
// Run schedules exactly one call to the listener unless Interrupt is called first.
type Timer struct {
	id       uuid.UUID
	kind     TimerType
	context  any
	clock    clock.Clock
	listener func(Timeout)

	mu      sync.Mutex
	gen     uint64
	running bool
	pending *clock.Timer
}

func NewTimer(clk clock.Clock, kind TimerType, context any, listener func(Timeout)) *Timer {
	return &Timer{
		id:       uuid.New(),
		kind:     kind,
		context:  context,
		clock:    clk,
		listener: listener,
	}
}

func (t *Timer) Id() uuid.UUID {
	return t.id
}

func (t *Timer) Type() TimerType {
	return t.kind
}

func (t *Timer) Context() any {
	return t.context
}

// Run (re)starts the countdown. A previous schedule that has not fired yet is discarded.
func (t *Timer) Run(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	gen := t.gen
	t.running = true
	t.pending = t.clock.AfterFunc(d, func() {
		t.fire(gen)
	})
}

// Interrupt cancels the countdown. It is a no-op when the timer already fired or never ran.
func (t *Timer) Interrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
	t.running = false
}

func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		// superseded by Run or Interrupt
		t.mu.Unlock()
		return
	}
	t.running = false
	t.pending = nil
	t.mu.Unlock()

	if t.listener != nil {
		t.listener(Timeout{Id: t.id, Type: t.kind, Context: t.context})
	}
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s(%s)", t.kind, t.id)
}
