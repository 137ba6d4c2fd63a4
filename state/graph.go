package state

import (
	"fmt"
	"slices"
	"strings"
)

func parseSymbolList(s string, symbols []string) ([]string, error) {
	out := make([]string, 0)
	for _, sym := range strings.Split(strings.TrimSpace(s), ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if !slices.Contains(symbols, sym) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, sym)
		}
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	slices.Sort(out)
	return out, nil
}

/*
ParseGraph turns a list of graph lines into the set of links between nodes.

	relays = r1, r2, r3   // defines a group
	edge = e1, e2
	relays, edge          // every relay is linked with every edge node, but not with the other relays
	relays, relays        // full mesh between relays
	r1, base              // a single link

Groups may reference other groups as long as no cycle is formed.
*/
func ParseGraph(graph []string, nodes []string) ([]Pair[NodeId, NodeId], error) {
	symbols := slices.Clone(nodes)
	defs := make(map[string][]string)
	lines := make([][]string, 0)

	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		if !strings.Contains(line, "=") {
			continue
		}
		spl := strings.Split(line, "=")
		if len(spl) != 2 {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		grp := strings.TrimSpace(spl[0])
		if slices.Contains(nodes, grp) {
			return nil, fmt.Errorf("group name must not be a node name: %s", grp)
		}
		if _, ok := defs[grp]; ok {
			return nil, fmt.Errorf("duplicate group name: %s", grp)
		}
		defs[grp] = nil
		symbols = append(symbols, grp)
	}

	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		if grp, members, ok := strings.Cut(line, "="); ok {
			lst, err := parseSymbolList(members, symbols)
			if err != nil {
				return nil, err
			}
			defs[strings.TrimSpace(grp)] = slices.Compact(lst)
			continue
		}
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		lines = append(lines, names)
	}

	expansion, err := expandGroups(defs, nodes)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair[NodeId, NodeId], 0)
	for _, names := range lines {
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				for _, a := range expansion(names[i]) {
					for _, b := range expansion(names[j]) {
						if a != b {
							pairs = append(pairs, MakeSortedPair(NodeId(a), NodeId(b)))
						}
					}
				}
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}

// expandGroups resolves every group down to its member nodes, in dependency order
func expandGroups(defs map[string][]string, nodes []string) (func(string) []string, error) {
	resolved := make(map[string][]string)
	pending := make(map[string]struct{}, len(defs))
	for grp := range defs {
		pending[grp] = struct{}{}
	}

	for len(pending) > 0 {
		progress := false
		for grp := range pending {
			members := make([]string, 0)
			ready := true
			for _, m := range defs[grp] {
				if slices.Contains(nodes, m) {
					members = append(members, m)
				} else if sub, ok := resolved[m]; ok {
					members = append(members, sub...)
				} else {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			slices.Sort(members)
			resolved[grp] = slices.Compact(members)
			delete(pending, grp)
			progress = true
		}
		if !progress {
			cycle := make([]string, 0, len(pending))
			for grp := range pending {
				cycle = append(cycle, grp)
			}
			slices.Sort(cycle)
			return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
		}
	}

	return func(sym string) []string {
		if exp, ok := resolved[sym]; ok {
			return exp
		}
		return []string{sym}
	}, nil
}
