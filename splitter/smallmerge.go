package splitter

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// smallMerge folds undersized tasks into neighbours. A task is small when
// its geodesic area is below mean − population-stddev of all task areas, or
// when it contains fewer than cfg.MinFeatures buildings. Small tasks are
// processed once in ascending taskid order; each merges into the non-small
// neighbour sharing the longest boundary, ties broken by lowest taskid.
// Small tasks with no eligible neighbour are left in place.
func smallMerge(b *Backend, tasks []TaskPolygon, cfg *Config) ([]TaskPolygon, error) {
	if len(tasks) == 0 {
		return tasks, nil
	}

	areas := make([]float64, len(tasks))
	for i, t := range tasks {
		areas[i] = t.Area
	}
	mean := stat.Mean(areas, nil)
	sigma := stat.PopStdDev(areas, nil)
	minArea := mean - sigma // may be negative, making the area test vacuous

	arena := make(map[int]*TaskPolygon, len(tasks))
	order := make([]int, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		arena[t.TaskID] = &t
		order = append(order, t.TaskID)
	}
	sort.Ints(order)

	small := func(t *TaskPolygon) bool {
		return t.Area < minArea || t.BuildingCount < cfg.MinFeatures
	}

	dead := make(map[int]bool)
	for _, id := range order {
		t := arena[id]
		if dead[id] || !small(t) {
			continue
		}

		// Longest shared boundary among non-small live neighbours.
		bestID, bestLen := 0, 0.0
		for _, nid := range order {
			if nid == id || dead[nid] || small(arena[nid]) {
				continue
			}
			length, err := b.SharedBoundaryLength(t.Geom, arena[nid].Geom)
			if err != nil {
				return nil, fmt.Errorf("neighbour boundary %d/%d: %w", id, nid, err)
			}
			if length > bestLen {
				bestID, bestLen = nid, length
			}
		}
		if bestID == 0 {
			continue
		}

		target := arena[bestID]
		merged, err := b.Union(target.Geom, t.Geom)
		if err != nil {
			return nil, fmt.Errorf("merging task %d into %d: %w", id, bestID, err)
		}
		target.Geom = merged
		target.BuildingCount += t.BuildingCount
		target.Area += t.Area
		dead[id] = true
	}

	var out []TaskPolygon
	for _, id := range order {
		if !dead[id] {
			out = append(out, *arena[id])
		}
	}
	return out, nil
}
