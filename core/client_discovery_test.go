package core

import (
	"sync"
	"testing"
	"time"

	"github.com/encodeous/ara/packet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fantCount(tc *testClient, n int) func() bool {
	return func() bool {
		for _, iface := range tc.interfaces {
			if len(iface.Broadcasts(packet.FANT)) != n {
				return false
			}
		}
		return true
	}
}

func fantsTo(tc *testClient, dst packet.Address, n int) func() bool {
	return func() bool {
		count := 0
		for _, fant := range tc.interfaces[0].Broadcasts(packet.FANT) {
			if fant.Destination == dst {
				count++
			}
		}
		return count == n
	}
}

func TestDiscoveryFailsAfterRetries(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 2, nil)
	stop := tc.start(t)
	defer stop()

	p1 := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	p2 := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	require.NoError(t, tc.SendPacket(p1))
	require.NoError(t, tc.SendPacket(p2))
	require.True(t, fantCount(tc, 1)())

	// every timeout below the retry limit re-broadcasts the FANT
	tc.advance(t, time.Second, fantCount(tc, 2))
	tc.advance(t, time.Second, fantCount(tc, 3))
	assert.Empty(t, tc.app.Undeliverable())

	tc.advance(t, time.Second, func() bool {
		return len(tc.app.Undeliverable()) == 2
	})
	assert.Equal(t, []*packet.Packet{p1, p2}, tc.app.Undeliverable())
	assert.False(t, tc.IsRouteDiscoveryRunning("D"))
	assert.False(t, tc.IsTrapped(p1))

	tc.clock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, fantCount(tc, 3)())
	assert.Len(t, tc.app.Undeliverable(), 2)

	stats := tc.Statistics()
	assert.Equal(t, uint64(1), stats.DiscoveriesFailed)
	assert.Equal(t, uint64(2), stats.Undeliverable)
	assert.Equal(t, 0, stats.RunningDiscoveries)

	// a fresh send starts over
	require.NoError(t, tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)))
	assert.True(t, fantCount(tc, 4)())
	assert.True(t, tc.IsRouteDiscoveryRunning("D"))
}

func TestDiscoveryWithoutRetries(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.MaxDiscoveryRetries = 0
	})
	stop := tc.start(t)
	defer stop()

	require.NoError(t, tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, "D", 1, nil)))
	tc.advance(t, time.Second, func() bool {
		return len(tc.app.Undeliverable()) == 1
	})
	assert.True(t, fantCount(tc, 1)())
}

func TestRouteFoundFlushesTrap(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 2, nil)
	stop := tc.start(t)
	defer stop()

	pkt := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), []byte("data"))
	require.NoError(t, tc.SendPacket(pkt))
	fant := tc.interfaces[0].Broadcasts(packet.FANT)[0]

	bant := neighbourPacket(tc.Factory().MakeBANT(fant, 7), "N", 2)
	tc.ReceivePacket(bant, tc.interfaces[1])

	// the trap is held back for the delivery delay
	assert.True(t, tc.IsRouteDiscoveryRunning("D"))
	assert.Empty(t, tc.interfaces[1].Unicasts())

	late := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	require.NoError(t, tc.SendPacket(late))
	assert.True(t, tc.IsTrapped(late))

	tc.advance(t, 50*time.Millisecond, func() bool {
		return len(tc.interfaces[1].Unicasts()) == 2
	})
	sent := tc.interfaces[1].Unicasts()
	assert.Equal(t, packet.Address("N"), sent[0].Recipient)
	assert.True(t, sent[0].Packet.Equals(pkt))
	assert.True(t, sent[1].Packet.Equals(late))
	assert.False(t, tc.IsRouteDiscoveryRunning("D"))

	// the interrupted discovery timer never fires
	tc.clock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, fantCount(tc, 1)())
	assert.Empty(t, tc.app.Undeliverable())

	stats := tc.Statistics()
	assert.Equal(t, uint64(1), stats.RoutesFound)
	assert.Equal(t, 0, stats.TrappedNow)
}

func TestRouteFoundByAnyTrace(t *testing.T) {
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.DeliveryDelay = 0
	})
	pkt := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	require.NoError(t, tc.SendPacket(pkt))

	// data from D deposits pheromone towards D just as well as a BANT
	data := neighbourPacket(tc.Factory().MakeDataPacket("D", localAddr, 1, nil), "N", 3)
	tc.ReceivePacket(data, tc.interfaces[0])

	sent := tc.interfaces[0].Unicasts()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Packet.Equals(pkt))
	assert.Equal(t, packet.Address("N"), sent[0].Recipient)
	assert.Len(t, tc.app.Delivered(), 1)
	assert.False(t, tc.IsRouteDiscoveryRunning("D"))
}

func TestDiscoveryTimeoutWithRoutePresent(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, nil)
	stop := tc.start(t)
	defer stop()

	pkt := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	require.NoError(t, tc.SendPacket(pkt))
	// a route that did not go through the receive path
	tc.RoutingTable().Update("D", "N", tc.interfaces[0], 1)

	tc.advance(t, time.Second, func() bool {
		return tc.Statistics().RoutesFound == 1
	})
	tc.advance(t, 50*time.Millisecond, func() bool {
		return len(tc.interfaces[0].Unicasts()) == 1
	})
	assert.True(t, fantCount(tc, 1)(), "no retry once the route is known")
	assert.Empty(t, tc.app.Undeliverable())
}

func TestStaleDeliveryTimerIsIgnored(t *testing.T) {
	tc := newTestClient(t, 1, nil)
	require.NotPanics(t, func() {
		tc.flush("D", uuid.New())
		tc.discoveryTimeout("D", uuid.New())
	})

	require.NoError(t, tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, "D", 1, nil)))
	tc.flush("D", uuid.New())
	assert.True(t, tc.IsRouteDiscoveryRunning("D"), "a delivery timer from another discovery does not flush")
	tc.discoveryTimeout("D", uuid.New())
	assert.True(t, fantCount(tc, 1)(), "a discovery timer from another discovery does not retry")
}

func TestDestinationsAreIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 1, func(cfg *Config) {
		cfg.Routing.DeliveryDelay = 0
	})
	stop := tc.start(t)
	defer stop()

	toD := tc.Factory().MakeDataPacket(localAddr, "D", tc.NextSequenceNumber(), nil)
	toE := tc.Factory().MakeDataPacket(localAddr, "E", tc.NextSequenceNumber(), nil)
	require.NoError(t, tc.SendPacket(toD))
	require.NoError(t, tc.SendPacket(toE))

	fant := tc.interfaces[0].Broadcasts(packet.FANT)[0]
	require.Equal(t, packet.Address("D"), fant.Destination)
	tc.ReceivePacket(neighbourPacket(tc.Factory().MakeBANT(fant, 1), "N", 1), tc.interfaces[0])

	assert.False(t, tc.IsRouteDiscoveryRunning("D"))
	assert.True(t, tc.IsRouteDiscoveryRunning("E"))
	assert.True(t, tc.IsTrapped(toE))

	tc.advance(t, time.Second, fantsTo(tc, "E", 2))
	tc.advance(t, time.Second, fantsTo(tc, "E", 3))
	tc.advance(t, time.Second, func() bool {
		return len(tc.app.Undeliverable()) == 1
	})
	assert.True(t, fantsTo(tc, "D", 1)())
	assert.True(t, tc.app.Undeliverable()[0].Equals(toE))
}

func TestConcurrentTraffic(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestClient(t, 2, func(cfg *Config) {
		cfg.Routing.DeliveryDelay = 0
	})
	stop := tc.start(t)
	defer stop()

	sources := []packet.Address{"A", "B", "C", "D"}
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for seq := range uint32(200) {
				fant := tc.Factory().MakeFANT(src, localAddr, seq+1)
				tc.ReceivePacket(neighbourPacket(fant, "N", 1), tc.interfaces[i%2])
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = tc.SendPacket(tc.Factory().MakeDataPacket(localAddr, src, tc.NextSequenceNumber(), nil))
			}
		}()
	}
	wg.Wait()

	stats := tc.Statistics()
	assert.Equal(t, uint64(800), stats.Received)
	assert.Equal(t, uint64(200), stats.Sent)
	for _, src := range sources {
		assert.True(t, tc.RoutingTable().HasRoute(src))
	}
	// sends that raced with the first FANT of their destination are flushed on the discovery timeout
	tc.advance(t, time.Second, func() bool {
		return tc.Statistics().TrappedNow == 0
	})
}
