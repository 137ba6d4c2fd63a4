package sim

import (
	"fmt"
	"strings"

	"github.com/encodeous/ara/core"
	"github.com/encodeous/ara/state"
)

type NodeReport struct {
	Id            state.NodeId
	Stats         core.Statistics
	Delivered     int
	Undeliverable int
	Table         string
}

type Report struct {
	Nodes   []NodeReport
	Dropped uint64
}

func (n *Network) Report() *Report {
	r := &Report{Dropped: n.Dropped()}
	for _, node := range n.Nodes() {
		r.Nodes = append(r.Nodes, NodeReport{
			Id:            node.Id,
			Stats:         node.client.Statistics(),
			Delivered:     len(node.Delivered()),
			Undeliverable: len(node.Undeliverable()),
			Table:         node.client.RoutingTable().String(),
		})
	}
	return r
}

func (r *Report) Node(id state.NodeId) *NodeReport {
	for i := range r.Nodes {
		if r.Nodes[i].Id == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

func (r *Report) String() string {
	sb := strings.Builder{}
	for _, n := range r.Nodes {
		sb.WriteString(fmt.Sprintf("== %s: delivered %d, undeliverable %d\n", n.Id, n.Delivered, n.Undeliverable))
		sb.WriteString(fmt.Sprintf("   %s\n", n.Stats))
		for _, line := range strings.Split(strings.TrimRight(n.Table, "\n"), "\n") {
			if line != "" {
				sb.WriteString("   " + line + "\n")
			}
		}
	}
	if r.Dropped > 0 {
		sb.WriteString(fmt.Sprintf("frames dropped by full queues: %d\n", r.Dropped))
	}
	return sb.String()
}
