package sim

import (
	"sync/atomic"
	"time"

	"github.com/encodeous/ara/perf"
	"github.com/encodeous/ara/state"
)

// Link is a bidirectional radio link between two interfaces
type Link struct {
	net  *Network
	a, b *Interface
	cfg  state.LinkCfg
	up   atomic.Bool

	Frames atomic.Uint64
	Lost   atomic.Uint64
}

func newLink(net *Network, a, b *Interface, cfg state.LinkCfg) *Link {
	l := &Link{net: net, a: a, b: b, cfg: cfg}
	l.up.Store(true)
	a.attach(b.LocalAddress(), l)
	b.attach(a.LocalAddress(), l)
	return l
}

func (l *Link) other(from *Interface) *Interface {
	if from == l.a {
		return l.b
	}
	return l.a
}

// transmit delivers a copy of data to the far end after the link latency, unless the frame is lost
func (l *Link) transmit(from *Interface, data []byte) {
	if !l.up.Load() {
		return
	}
	l.Frames.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(data)))
	if l.cfg.Loss > 0 && l.net.random() < l.cfg.Loss {
		l.Lost.Add(1)
		return
	}
	to := l.other(from)
	f := frame{data: data}
	delay := l.cfg.Latency
	if l.cfg.Jitter > 0 {
		delay += time.Duration(l.net.random() * float64(l.cfg.Jitter))
	}
	if delay <= 0 {
		to.enqueue(f)
		return
	}
	l.net.clock.AfterFunc(delay, func() {
		to.enqueue(f)
	})
}

// Down cuts the link in both directions
func (l *Link) Down() {
	l.up.Store(false)
	l.a.detach(l.b.LocalAddress())
	l.b.detach(l.a.LocalAddress())
}
