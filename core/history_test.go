package core

import (
	"testing"
	"time"

	"github.com/encodeous/ara/packet"
	"github.com/stretchr/testify/assert"
)

func TestHistoryKeyIgnoresDestination(t *testing.T) {
	h := newDuplicateHistory(16, time.Minute)
	p1 := &packet.Packet{Source: "A", Destination: "B", SequenceNumber: 123}
	p2 := &packet.Packet{Source: "A", Destination: "B", SequenceNumber: 124}
	p3 := &packet.Packet{Source: "C", Destination: "A", SequenceNumber: 123}
	p4 := &packet.Packet{Source: "A", Destination: "C", SequenceNumber: 123}

	for _, p := range []*packet.Packet{p1, p2, p3, p4} {
		assert.False(t, h.contains(p))
	}
	assert.False(t, h.register(p1))
	assert.True(t, h.contains(p1))
	assert.False(t, h.contains(p2))
	assert.False(t, h.contains(p3))
	assert.True(t, h.contains(p4))
	assert.True(t, h.register(p4))
}

func TestHistoryIsBounded(t *testing.T) {
	h := newDuplicateHistory(2, time.Minute)
	for seq := uint32(1); seq <= 3; seq++ {
		h.register(&packet.Packet{Source: "A", SequenceNumber: seq})
	}
	assert.Equal(t, 2, h.len())
	assert.False(t, h.contains(&packet.Packet{Source: "A", SequenceNumber: 1}), "the oldest key is evicted")
	assert.True(t, h.contains(&packet.Packet{Source: "A", SequenceNumber: 3}))
}

func TestHistoryExpires(t *testing.T) {
	h := newDuplicateHistory(16, 10*time.Millisecond)
	p := &packet.Packet{Source: "A", SequenceNumber: 1}
	h.register(p)
	assert.Eventually(t, func() bool {
		return !h.contains(p)
	}, time.Second, 5*time.Millisecond)
	h.deleteExpired()
	assert.Equal(t, 0, h.len())
}
