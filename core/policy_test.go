package core

import (
	"math/rand/v2"
	"testing"

	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyTable() (*RoutingTable, *MockInterface, *MockInterface) {
	table := NewRoutingTable(0.5, 0.1)
	if0 := NewMockInterface("X0")
	if1 := NewMockInterface("X1")
	table.Update("D", "A", if0, 9)
	table.Update("D", "B", if1, 1)
	table.Update("D", "S", if0, 100)
	return table, if0, if1
}

func TestBestPheromonePolicy(t *testing.T) {
	table, _, if1 := policyTable()
	pkt := &packet.Packet{Type: packet.DATA, Source: "S", Destination: "D", Sender: "S"}

	nh, ok := BestPheromonePolicy{}.NextHop(pkt, table)
	require.True(t, ok)
	assert.Equal(t, packet.Address("A"), nh.Address)

	table.RemoveEntry("D", "A", nh.Interface)
	nh, ok = BestPheromonePolicy{}.NextHop(pkt, table)
	require.True(t, ok)
	assert.Equal(t, NextHop{Address: "B", Interface: if1}, nh)

	_, ok = BestPheromonePolicy{}.NextHop(&packet.Packet{Destination: "unknown"}, table)
	assert.False(t, ok)
}

func TestStochasticPolicy(t *testing.T) {
	table, _, _ := policyTable()
	policy := NewStochasticPolicy(rand.New(rand.NewPCG(42, 42)))
	pkt := &packet.Packet{Type: packet.DATA, Source: "S", Destination: "D", Sender: "S"}

	picks := map[packet.Address]int{}
	for range 10000 {
		nh, ok := policy.NextHop(pkt, table)
		require.True(t, ok)
		picks[nh.Address]++
	}
	assert.Zero(t, picks["S"], "never sends back to the sender")
	assert.InDelta(t, 0.9, float64(picks["A"])/10000, 0.03)
	assert.InDelta(t, 0.1, float64(picks["B"])/10000, 0.03)
}

func TestRoundRobinPolicy(t *testing.T) {
	table, _, _ := policyTable()
	policy := NewRoundRobinPolicy()
	pkt := &packet.Packet{Type: packet.DATA, Source: "S", Destination: "D", Sender: "S"}

	got := make([]packet.Address, 0)
	for range 4 {
		nh, ok := policy.NextHop(pkt, table)
		require.True(t, ok)
		got = append(got, nh.Address)
	}
	assert.Equal(t, []packet.Address{"A", "B", "A", "B"}, got)

	_, ok := policy.NextHop(&packet.Packet{Destination: "unknown"}, table)
	assert.False(t, ok)
}

func TestNewForwardingPolicy(t *testing.T) {
	p, err := NewForwardingPolicy(state.PolicyBest)
	require.NoError(t, err)
	assert.IsType(t, BestPheromonePolicy{}, p)

	p, err = NewForwardingPolicy(state.PolicyStochastic)
	require.NoError(t, err)
	assert.IsType(t, &StochasticPolicy{}, p)

	p, err = NewForwardingPolicy(state.PolicyRoundRobin)
	require.NoError(t, err)
	assert.IsType(t, &RoundRobinPolicy{}, p)

	_, err = NewForwardingPolicy("ouija")
	assert.Error(t, err)
}
