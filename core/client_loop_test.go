package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/encodeous/ara/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEvaporationTick(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.EvaporationInterval = time.Second
		cfg.Routing.EvaporationFactor = 0.5
		cfg.Routing.PheromoneThreshold = 0.3
	})
	stop := tc.start(t)
	defer stop()

	tc.RoutingTable().Update("D", "N", tc.interfaces[0], 1)
	tc.advance(t, time.Second, func() bool {
		entries := tc.RoutingTable().Entries("D")
		return len(entries) == 1 && entries[0].Pheromone < 0.6
	})
	tc.advance(t, time.Second, func() bool {
		return !tc.RoutingTable().HasRoute("D")
	})
}

func TestPANTIsBroadcastPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 2, func(cfg *Config) {
		cfg.Routing.PantInterval = time.Second
	})
	stop := tc.start(t)
	defer stop()

	pants := func(n int) func() bool {
		return func() bool {
			for _, iface := range tc.interfaces {
				if len(iface.Broadcasts(packet.PANT)) != n {
					return false
				}
			}
			return true
		}
	}
	assert.True(t, pants(0)())
	tc.advance(t, time.Second, pants(1))
	tc.advance(t, time.Second, pants(2))

	pant := tc.interfaces[0].Broadcasts(packet.PANT)[0]
	assert.Equal(t, localAddr, pant.Source)
	assert.Equal(t, packet.Address(""), pant.Destination)
	assert.True(t, tc.HasBeenReceivedEarlier(pant))
}

func TestSilentNeighbourIsProbedThenRemoved(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.NeighbourActivityInterval = time.Second
		cfg.Routing.MaxNeighbourInactivity = 2 * time.Second
	})
	stop := tc.start(t)
	defer stop()

	tc.ReceivePacket(neighbourPacket(tc.Factory().MakeFANT("N", "Z", 1), "N", 1), tc.interfaces[0])
	require.True(t, tc.RoutingTable().HasRoute("N"))

	hellos := func() []SentPacket {
		out := make([]SentPacket, 0)
		for _, s := range tc.interfaces[0].Unicasts() {
			if s.Packet.Type == packet.HELLO {
				out = append(out, s)
			}
		}
		return out
	}

	tc.clock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, hellos())

	tc.advance(t, time.Second, func() bool {
		return len(hellos()) == 1
	})
	hello := hellos()[0]
	assert.Equal(t, packet.Address("N"), hello.Recipient)
	assert.Equal(t, packet.Address("N"), hello.Packet.Destination)
	assert.True(t, tc.RoutingTable().HasRoute("N"))

	tc.advance(t, time.Second, func() bool {
		return !tc.RoutingTable().HasRoute("N")
	})
	assert.Empty(t, tc.Neighbours())
}

func TestAnsweringNeighbourIsKept(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.NeighbourActivityInterval = time.Second
		cfg.Routing.MaxNeighbourInactivity = time.Second
	})
	stop := tc.start(t)
	defer stop()

	tc.ReceivePacket(neighbourPacket(tc.Factory().MakeEnergyDisseminationPacket("N", 1, 9), "N", 0), tc.interfaces[0])
	tc.advance(t, time.Second, func() bool {
		return len(tc.interfaces[0].Unicasts()) == 1
	})
	hello := tc.interfaces[0].Unicasts()[0].Packet
	tc.ReceivePacket(neighbourPacket(tc.Factory().MakeAcknowledgmentPacket(hello, "N"), "N", 1), tc.interfaces[0])

	// the ACK resets the inactivity window, so the next check probes again instead of dropping N
	tc.advance(t, time.Second, func() bool {
		return len(tc.interfaces[0].Unicasts()) == 2
	})
	assert.True(t, tc.RoutingTable().HasRoute("N"))
	assert.Equal(t, []packet.Address{"N"}, tc.Neighbours())
}

func TestRunStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, nil)
	done := make(chan error, 1)
	go func() {
		done <- tc.Run(context.Background())
	}()
	require.Eventually(t, tc.started.Load, time.Second, time.Millisecond)
	require.NoError(t, tc.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client loop did not stop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, nil)
	ctx, cancel := context.WithCancelCause(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tc.Run(ctx)
	}()
	require.Eventually(t, tc.started.Load, time.Second, time.Millisecond)
	cancel(errors.New("shutdown"))
	<-done
	assert.ErrorIs(t, tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, "D", 1, nil)), ErrClosed)
}

func TestTraceEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	trace := NewTrace()
	defer trace.Close()
	events := make(chan any, 64)
	trace.Register(events)
	defer trace.Unregister(events)

	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Trace = trace
	})
	require.NoError(t, tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, "D", 1, nil)))

	seen := make([]RouterEvent, 0)
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-events:
			te := ev.(TraceEvent)
			assert.Equal(t, string(localAddr), te.Node)
			seen = append(seen, te.Event)
		case <-timeout:
			t.Fatal("trace events not received, got ", seen)
		}
	}
	assert.Equal(t, []RouterEvent{PacketTrapped, DiscoveryStarted}, seen)
	assert.Equal(t, "DiscoveryStarted", DiscoveryStarted.String())
	assert.True(t, DiscoveryFailed.IsWarning())
	assert.False(t, RouteFound.IsWarning())
}
