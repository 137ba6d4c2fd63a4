package core

import (
	"time"

	"github.com/encodeous/ara/packet"
	"github.com/jellydator/ttlcache/v3"
)

// duplicateHistory remembers recently seen (source, sequence number) pairs.
// It is bounded both in size and in age, the oldest keys are evicted first.
type duplicateHistory struct {
	seen *ttlcache.Cache[packet.Key, struct{}]
}

func newDuplicateHistory(capacity uint64, ttl time.Duration) *duplicateHistory {
	return &duplicateHistory{
		seen: ttlcache.New[packet.Key, struct{}](
			ttlcache.WithTTL[packet.Key, struct{}](ttl),
			ttlcache.WithCapacity[packet.Key, struct{}](capacity),
			ttlcache.WithDisableTouchOnHit[packet.Key, struct{}](),
		),
	}
}

// register records the key of pkt and reports whether it had been recorded before
func (h *duplicateHistory) register(pkt *packet.Packet) bool {
	_, found := h.seen.GetOrSet(pkt.Key(), struct{}{})
	return found
}

func (h *duplicateHistory) contains(pkt *packet.Packet) bool {
	return h.seen.Has(pkt.Key())
}

func (h *duplicateHistory) len() int {
	return h.seen.Len()
}

func (h *duplicateHistory) deleteExpired() {
	h.seen.DeleteExpired()
}
