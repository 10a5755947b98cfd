package splitter

import (
	"fmt"
	"sort"
)

// polyArena is the adjacency graph for subpolygon merging: records indexed
// by polyid, adjacency held as id sets, merges done as id-level operations
// with the victim tombstoned. No geometry back-pointers are kept.
type polyArena struct {
	records map[int]*polyRecord
	order   []int // ascending polyids
}

type polyRecord struct {
	sub       SubPolygon
	neighbors map[int]struct{}
	dead      bool
}

// buildArena computes pairwise adjacency. Two subpolygons are neighbours
// only when their boundaries share linework of positive length; corner
// contacts do not count.
func buildArena(b *Backend, subs []SubPolygon) (*polyArena, error) {
	arena := &polyArena{records: make(map[int]*polyRecord, len(subs))}
	for _, sub := range subs {
		arena.records[sub.PolyID] = &polyRecord{
			sub:       sub,
			neighbors: make(map[int]struct{}),
		}
		arena.order = append(arena.order, sub.PolyID)
	}
	sort.Ints(arena.order)

	for i := 0; i < len(subs); i++ {
		for j := i + 1; j < len(subs); j++ {
			length, err := b.SharedBoundaryLength(subs[i].Geom, subs[j].Geom)
			if err != nil {
				return nil, fmt.Errorf("adjacency %d/%d: %w", subs[i].PolyID, subs[j].PolyID, err)
			}
			if length > 0 {
				arena.records[subs[i].PolyID].neighbors[subs[j].PolyID] = struct{}{}
				arena.records[subs[j].PolyID].neighbors[subs[i].PolyID] = struct{}{}
			}
		}
	}
	return arena, nil
}

// liveSubPolygons returns the surviving subpolygons in ascending polyid
// order.
func (a *polyArena) liveSubPolygons() []SubPolygon {
	var out []SubPolygon
	for _, id := range a.order {
		if rec := a.records[id]; !rec.dead {
			out = append(out, rec.sub)
		}
	}
	return out
}

// lowCountMerge merges subpolygons with fewer than cfg.MinFeatures
// buildings into a neighbour. The canonical target is the neighbour with the
// greatest count, ties broken by greatest area then lowest polyid. With
// cfg.ZeroCountMergeSmallest, zero-building regions go to the neighbour with
// the fewest buildings instead.
//
// A single pass in ascending polyid order suffices: each merge strictly
// shrinks the low-count set. Isolated regions with no positive-length
// neighbour are retained as-is. Returns the surviving set and the building
// assignment remapped onto it.
func lowCountMerge(b *Backend, arena *polyArena, cfg *Config, assignment map[int]int) ([]SubPolygon, map[int]int, error) {
	// Tracks where merged polyids ended up so assignments can be remapped.
	alias := make(map[int]int)

	for _, id := range arena.order {
		rec := arena.records[id]
		if rec.dead || rec.sub.Count >= cfg.MinFeatures {
			continue
		}

		targetID, ok := chooseMergeTarget(arena, rec, cfg)
		if !ok {
			continue // isolated island, retained
		}
		target := arena.records[targetID]

		merged, err := b.Union(target.sub.Geom, rec.sub.Geom)
		if err != nil {
			return nil, nil, fmt.Errorf("merging polygon %d into %d: %w", id, targetID, err)
		}
		target.sub.Geom = merged
		target.sub.Count += rec.sub.Count
		target.sub.Area += rec.sub.Area

		// Transfer adjacency to the target and tombstone the victim.
		for nid := range rec.neighbors {
			if nid == targetID {
				continue
			}
			if n := arena.records[nid]; n != nil {
				delete(n.neighbors, id)
				n.neighbors[targetID] = struct{}{}
				target.neighbors[nid] = struct{}{}
			}
		}
		delete(target.neighbors, id)
		rec.dead = true
		alias[id] = targetID
	}

	remapped := make(map[int]int, len(assignment))
	for idx, polyID := range assignment {
		remapped[idx] = resolveAlias(alias, polyID)
	}
	return arena.liveSubPolygons(), remapped, nil
}

func chooseMergeTarget(arena *polyArena, rec *polyRecord, cfg *Config) (int, bool) {
	wantSmallest := cfg.ZeroCountMergeSmallest && rec.sub.Count == 0

	ids := make([]int, 0, len(rec.neighbors))
	for id := range rec.neighbors {
		if !arena.records[id].dead {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, false
	}
	sort.Ints(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		cand, cur := arena.records[id].sub, arena.records[best].sub
		switch {
		case wantSmallest && cand.Count < cur.Count,
			!wantSmallest && cand.Count > cur.Count:
			best = id
		case cand.Count == cur.Count && cand.Area > cur.Area:
			best = id
		}
	}
	return best, true
}

func resolveAlias(alias map[int]int, id int) int {
	for {
		next, ok := alias[id]
		if !ok {
			return id
		}
		id = next
	}
}
