package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/state"
	"github.com/stretchr/testify/require"
)

const localAddr = packet.Address("X")

type SentPacket struct {
	Packet    *packet.Packet
	Recipient packet.Address
	Broadcast bool
}

// MockInterface records everything the client hands to the transport
type MockInterface struct {
	addr packet.Address
	mu   sync.Mutex
	sent []SentPacket
	fail bool
}

func NewMockInterface(addr packet.Address) *MockInterface {
	return &MockInterface{addr: addr}
}

func (m *MockInterface) LocalAddress() packet.Address {
	return m.addr
}

func (m *MockInterface) Send(pkt *packet.Packet, recipient packet.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("link down")
	}
	m.sent = append(m.sent, SentPacket{Packet: pkt, Recipient: recipient})
	return nil
}

func (m *MockInterface) Broadcast(pkt *packet.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("link down")
	}
	m.sent = append(m.sent, SentPacket{Packet: pkt, Broadcast: true})
	return nil
}

func (m *MockInterface) Sent() []SentPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentPacket, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockInterface) Unicasts() []SentPacket {
	out := make([]SentPacket, 0)
	for _, s := range m.Sent() {
		if !s.Broadcast {
			out = append(out, s)
		}
	}
	return out
}

func (m *MockInterface) Broadcasts(t packet.Type) []*packet.Packet {
	out := make([]*packet.Packet, 0)
	for _, s := range m.Sent() {
		if s.Broadcast && s.Packet.Type == t {
			out = append(out, s.Packet)
		}
	}
	return out
}

func (m *MockInterface) HasBeenBroadcast(pkt *packet.Packet) bool {
	for _, s := range m.Sent() {
		if s.Broadcast && s.Packet.Equals(pkt) {
			return true
		}
	}
	return false
}

func (m *MockInterface) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// MockApplication records the packets the client hands back to the system
type MockApplication struct {
	mu            sync.Mutex
	delivered     []*packet.Packet
	undeliverable []*packet.Packet
}

func (a *MockApplication) DeliverToSystem(pkt *packet.Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delivered = append(a.delivered, pkt)
}

func (a *MockApplication) PacketNotDeliverable(pkt *packet.Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.undeliverable = append(a.undeliverable, pkt)
}

func (a *MockApplication) Delivered() []*packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*packet.Packet(nil), a.delivered...)
}

func (a *MockApplication) Undeliverable() []*packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*packet.Packet(nil), a.undeliverable...)
}

type testClient struct {
	*Client
	clock      *clock.Mock
	app        *MockApplication
	interfaces []*MockInterface
}

func testLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return state.DiscardLogger()
}

func testRoutingCfg() state.RoutingCfg {
	cfg := state.DefaultRoutingCfg()
	cfg.DiscoveryTimeout = time.Second
	cfg.DeliveryDelay = 50 * time.Millisecond
	cfg.MaxDiscoveryRetries = 2
	cfg.EvaporationInterval = time.Hour
	return cfg
}

// newTestClient builds a client on localAddr with n mock interfaces named X0, X1, ...
func newTestClient(t *testing.T, n int, mutate func(cfg *Config)) *testClient {
	t.Helper()
	clk := clock.NewMock()
	app := &MockApplication{}
	cfg := Config{
		Address:     localAddr,
		Routing:     testRoutingCfg(),
		Application: app,
		Logger:      testLogger(),
		Clock:       clk,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)

	tc := &testClient{Client: c, clock: clk, app: app}
	for i := range n {
		iface := NewMockInterface(localAddr + packet.Address(rune('0'+i)))
		tc.interfaces = append(tc.interfaces, iface)
		c.AddNetworkInterface(iface)
	}
	return tc
}

// start runs the client loop, the returned function stops it and waits for it to exit
func (tc *testClient) start(t *testing.T) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tc.Run(ctx)
	}()
	require.Eventually(t, tc.started.Load, 2*time.Second, time.Millisecond)
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("client loop did not stop")
		}
	}
}

// advance moves the mock clock forward and waits for cond to hold
func (tc *testClient) advance(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	tc.clock.Add(d)
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

// neighbourPacket builds a packet as if it had travelled hops hops and was last sent by sender
func neighbourPacket(p *packet.Packet, sender packet.Address, hops uint8) *packet.Packet {
	p.PreviousHop = p.Sender
	p.Sender = sender
	p.HopCount = hops
	return p
}
