package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/encodeous/ara/packet"
)

// RoutingTableEntry is the pheromone deposited on a (destination, next hop, interface) path
type RoutingTableEntry struct {
	Destination packet.Address
	NextHop     packet.Address
	Interface   NetworkInterface
	Pheromone   float64
}

func (e RoutingTableEntry) String() string {
	return fmt.Sprintf("%s via %s on %s (%.3f)", e.Destination, e.NextHop, ifaceName(e.Interface), e.Pheromone)
}

// RoutingTable is the pheromone table shared by every inbound and outbound path of a client.
// Entries of a destination keep their insertion order, ties between equal pheromone values go to the oldest entry.
type RoutingTable struct {
	mu                sync.RWMutex
	entries           map[packet.Address][]*RoutingTableEntry
	evaporationFactor float64
	threshold         float64
}

func NewRoutingTable(evaporationFactor, threshold float64) *RoutingTable {
	return &RoutingTable{
		entries:           make(map[packet.Address][]*RoutingTableEntry),
		evaporationFactor: evaporationFactor,
		threshold:         threshold,
	}
}

// Update reinforces the (destination, nextHop, iface) entry by delta, creating it when needed.
// Other paths to the same destination are left untouched. Entries that end up non-positive are removed.
func (r *RoutingTable) Update(destination, nextHop packet.Address, iface NetworkInterface, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries[destination]
	idx := slices.IndexFunc(entries, func(e *RoutingTableEntry) bool {
		return e.NextHop == nextHop && e.Interface == iface
	})
	if idx == -1 {
		if delta <= 0 {
			return
		}
		r.entries[destination] = append(entries, &RoutingTableEntry{
			Destination: destination,
			NextHop:     nextHop,
			Interface:   iface,
			Pheromone:   delta,
		})
		return
	}
	entries[idx].Pheromone += delta
	if entries[idx].Pheromone <= 0 {
		r.removeAt(destination, idx)
	}
}

func (r *RoutingTable) removeAt(destination packet.Address, idx int) {
	entries := slices.Delete(r.entries[destination], idx, idx+1)
	if len(entries) == 0 {
		delete(r.entries, destination)
	} else {
		r.entries[destination] = entries
	}
}

func (r *RoutingTable) HasRoute(destination packet.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries[destination] {
		if e.Pheromone > 0 {
			return true
		}
	}
	return false
}

// IsDeliverable reports whether at least one path with positive pheromone leads to the packet's destination
func (r *RoutingTable) IsDeliverable(pkt *packet.Packet) bool {
	return r.HasRoute(pkt.Destination)
}

// GetBestEntry returns the entry with the highest pheromone whose next hop is not excluded
func (r *RoutingTable) GetBestEntry(destination, excluded packet.Address) (RoutingTableEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *RoutingTableEntry
	for _, e := range r.entries[destination] {
		if e.NextHop == excluded || e.Pheromone <= 0 {
			continue
		}
		// strict comparison keeps the first inserted entry on ties
		if best == nil || e.Pheromone > best.Pheromone {
			best = e
		}
	}
	if best == nil {
		return RoutingTableEntry{}, false
	}
	return *best, true
}

// Candidates returns copies of every usable entry of destination, in insertion order
func (r *RoutingTable) Candidates(destination, excluded packet.Address) []RoutingTableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoutingTableEntry, 0, len(r.entries[destination]))
	for _, e := range r.entries[destination] {
		if e.NextHop == excluded || e.Pheromone <= 0 {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func (r *RoutingTable) Entries(destination packet.Address) []RoutingTableEntry {
	return r.Candidates(destination, "")
}

// RemoveEntry drops a single path, returning whether it existed
func (r *RoutingTable) RemoveEntry(destination, nextHop packet.Address, iface NetworkInterface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := slices.IndexFunc(r.entries[destination], func(e *RoutingTableEntry) bool {
		return e.NextHop == nextHop && e.Interface == iface
	})
	if idx == -1 {
		return false
	}
	r.removeAt(destination, idx)
	return true
}

// RemoveNextHop drops every path through a neighbour, returning the number of removed entries
func (r *RoutingTable) RemoveNextHop(nextHop packet.Address) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for dst, entries := range r.entries {
		kept := slices.DeleteFunc(entries, func(e *RoutingTableEntry) bool {
			return e.NextHop == nextHop
		})
		removed += len(entries) - len(kept)
		if len(kept) == 0 {
			delete(r.entries, dst)
		} else {
			r.entries[dst] = kept
		}
	}
	return removed
}

// Evaporate decays every entry once and prunes what falls below the threshold
func (r *RoutingTable) Evaporate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pruned := 0
	for dst, entries := range r.entries {
		for _, e := range entries {
			e.Pheromone *= r.evaporationFactor
		}
		kept := slices.DeleteFunc(entries, func(e *RoutingTableEntry) bool {
			return e.Pheromone < r.threshold || e.Pheromone <= 0
		})
		pruned += len(entries) - len(kept)
		if len(kept) == 0 {
			delete(r.entries, dst)
		} else {
			r.entries[dst] = kept
		}
	}
	return pruned
}

func (r *RoutingTable) Destinations() []packet.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]packet.Address, 0, len(r.entries))
	for dst := range r.entries {
		out = append(out, dst)
	}
	slices.Sort(out)
	return out
}

func (r *RoutingTable) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, entries := range r.entries {
		n += len(entries)
	}
	return n
}

func (r *RoutingTable) String() string {
	sb := strings.Builder{}
	for _, dst := range r.Destinations() {
		sb.WriteString(fmt.Sprintf("%s:\n", dst))
		for _, e := range r.Entries(dst) {
			sb.WriteString(fmt.Sprintf("  -> %s on %s: %.3f\n", e.NextHop, ifaceName(e.Interface), e.Pheromone))
		}
	}
	return sb.String()
}

func ifaceName(iface NetworkInterface) string {
	if iface == nil {
		return "<nil>"
	}
	return string(iface.LocalAddress())
}
