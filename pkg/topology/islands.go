package topology

import (
	"sort"

	"github.com/edp1096/gridflow/pkg/grid"
)

// Island is a maximal set of buses connected through active branches,
// carrying its own sliced circuit. BusIdx maps local bus positions back to
// global indices (sorted ascending).
type Island struct {
	BusIdx    []int
	BranchIdx []int
	Circuit   *grid.NumericalCircuit
	Isolated  bool // single bus with no active branch
}

// SplitIslands partitions the circuit into connected components over the
// active branches. Buses touched by no active branch each form their own
// single-bus island, flagged Isolated.
func SplitIslands(nc *grid.NumericalCircuit) []*Island {
	n := nc.NumBus()
	adj := make([][]int, n)
	for _, br := range nc.Branches {
		if !br.Active || br.From == br.To {
			continue
		}
		adj[br.From] = append(adj[br.From], br.To)
		adj[br.To] = append(adj[br.To], br.From)
	}

	seen := make([]bool, n)
	var comps [][]int
	for s := 0; s < n; s++ {
		if seen[s] {
			continue
		}
		// BFS to collect the component
		queue := []int{s}
		seen[s] = true
		var comp []int
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			comp = append(comp, u)
			for _, v := range adj[u] {
				if !seen[v] {
					seen[v] = true
					queue = append(queue, v)
				}
			}
		}
		comps = append(comps, comp)
	}

	islands := make([]*Island, 0, len(comps))
	for _, comp := range comps {
		islands = append(islands, sliceIsland(nc, comp))
	}
	return islands
}

func sliceIsland(nc *grid.NumericalCircuit, busIdx []int) *Island {
	// busIdx arrives in BFS order; sort for a stable local numbering.
	sort.Ints(busIdx)

	pos := make(map[int]int, len(busIdx))
	for p, b := range busIdx {
		pos[b] = p
	}

	local := &grid.NumericalCircuit{
		Ybus:    nc.Ybus.Submatrix(busIdx, busIdx),
		Sbus:    make([]complex128, len(busIdx)),
		Ibus:    make([]complex128, len(busIdx)),
		V0:      make([]complex128, len(busIdx)),
		Types:   make([]grid.BusType, len(busIdx)),
		BaseMVA: nc.BaseMVA,
	}
	for p, b := range busIdx {
		local.Sbus[p] = nc.Sbus[b]
		if nc.Ibus != nil {
			local.Ibus[p] = nc.Ibus[b]
		}
		local.V0[p] = nc.V0[b]
		local.Types[p] = nc.Types[b]
	}

	var branchIdx []int
	active := 0
	for k, br := range nc.Branches {
		pf, okf := pos[br.From]
		pt, okt := pos[br.To]
		if !okf || !okt {
			continue
		}
		branchIdx = append(branchIdx, k)
		local.Branches = append(local.Branches, grid.Branch{From: pf, To: pt, Active: br.Active})
		if br.Active {
			active++
		}
	}

	return &Island{
		BusIdx:    busIdx,
		BranchIdx: branchIdx,
		Circuit:   local,
		Isolated:  len(busIdx) == 1 && active == 0,
	}
}

// GroupTopologies groups time-step indices by identical active-branch
// patterns: two steps share a group iff their boolean vectors are equal
// element-wise, so island detection runs once per distinct topology.
// profiles[t][k] is the active flag of branch k at time step t.
func GroupTopologies(profiles [][]bool) [][]int {
	groups := make(map[string]int)
	var out [][]int
	key := make([]byte, 0, 64)
	for t, p := range profiles {
		key = key[:0]
		for _, a := range p {
			if a {
				key = append(key, 1)
			} else {
				key = append(key, 0)
			}
		}
		k := string(key)
		g, ok := groups[k]
		if !ok {
			g = len(out)
			groups[k] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], t)
	}
	return out
}
