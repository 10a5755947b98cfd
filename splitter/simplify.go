package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
)

// simplifyTasks rebuilds task boundaries from the shared linework of the
// preliminary polygons and re-polygonizes after simplification.
//
// The boundaries are unioned first so each shared border appears exactly
// once, then merged into maximal linestrings and Douglas-Peucker simplified
// in a single pass over the whole linework. Simplifying per-polygon instead
// would move shared borders independently and break the tiling invariant.
func simplifyTasks(b *Backend, aoi *AOI, prelims []prelimPolygon, tolerance float64) ([]TaskPolygon, error) {
	if len(prelims) == 0 {
		return nil, nil
	}

	var boundaries []orb.Geometry
	for _, p := range prelims {
		boundary, err := b.Boundary(p.Geom)
		if err != nil {
			return nil, fmt.Errorf("boundary of cluster %s: %w", p.ClusterUID, err)
		}
		boundaries = append(boundaries, boundary)
	}

	shared, err := b.UnaryUnion(boundaries)
	if err != nil {
		return nil, fmt.Errorf("unioning boundaries: %w", err)
	}

	merged, err := b.LineMerge(shared)
	if err != nil {
		return nil, fmt.Errorf("merging segments: %w", err)
	}

	simplified, err := b.Simplify(merged, tolerance)
	if err != nil {
		return nil, fmt.Errorf("simplifying linework: %w", err)
	}

	faces, err := b.Polygonize(Flatten(simplified))
	if err != nil {
		return nil, fmt.Errorf("re-polygonizing: %w", err)
	}

	var tasks []TaskPolygon
	nextID := 1
	for _, face := range faces {
		inside, err := faceInsideAOI(b, face, aoi.Polygon)
		if err != nil {
			return nil, err
		}
		if !inside {
			continue
		}
		tasks = append(tasks, TaskPolygon{
			TaskID: nextID,
			Geom:   face,
			Area:   GeodesicArea(face),
		})
		nextID++
	}
	return tasks, nil
}

// countBuildings sets BuildingCount on every task: the number of buildings
// whose centroid the task contains. Centroids on a shared border are
// assigned to the intersecting task with the lowest taskid, mirroring the
// subpolygon binding rule.
func countBuildings(b *Backend, tasks []TaskPolygon, buildings []Building) error {
	for i := range tasks {
		tasks[i].BuildingCount = 0
	}
	for _, bld := range buildings {
		assigned := false
		for i := range tasks {
			hit, err := b.Contains(tasks[i].Geom, bld.Centroid)
			if err != nil {
				return fmt.Errorf("counting building %s: %w", bld.ID, err)
			}
			if hit {
				tasks[i].BuildingCount++
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}
		for i := range tasks {
			hit, err := b.Intersects(tasks[i].Geom, bld.Centroid)
			if err != nil {
				return fmt.Errorf("counting building %s: %w", bld.ID, err)
			}
			if hit {
				tasks[i].BuildingCount++
				break
			}
		}
	}
	return nil
}
