package splitter

import (
	"math"
	"math/rand"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const kmeansMaxIterations = 100

// clusterBuildings runs k-means over the building centroids of every
// subpolygon with at least one building, with k = count/T + 1. Cluster
// indices are local to each subpolygon (cid in [0,k)).
//
// Subpolygons are visited in ascending polyid order and draw from a single
// seeded random stream, so identical inputs and seed produce identical
// cluster assignments.
func clusterBuildings(subs []SubPolygon, buildings []Building, assignment map[int]int, cfg *Config) map[int]int {
	rng := rand.New(rand.NewSource(cfg.KMeansSeed))
	cids := make(map[int]int, len(assignment))

	// Building indices per subpolygon, in ascending order.
	byPoly := make(map[int][]int)
	for idx, polyID := range assignment {
		byPoly[polyID] = append(byPoly[polyID], idx)
	}

	for _, sub := range subs {
		members := byPoly[sub.PolyID]
		if len(members) == 0 {
			continue
		}
		sort.Ints(members)

		k := len(members)/cfg.TargetClusterSize + 1
		points := make([]orb.Point, len(members))
		for i, idx := range members {
			points[i] = buildings[idx].Centroid
		}

		labels := kmeans(points, k, rng)
		for i, idx := range members {
			cids[idx] = labels[i]
		}
	}
	return cids
}

// kmeans is Lloyd's algorithm with k-means++ seeding. Ties in both seeding
// and assignment resolve to the lowest index, keeping the result a pure
// function of the input order and the random stream.
func kmeans(points []orb.Point, k int, rng *rand.Rand) []int {
	if k >= len(points) {
		labels := make([]int, len(points))
		for i := range labels {
			labels[i] = i
		}
		return labels
	}

	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.MaxFloat64
			for c, center := range centers {
				if d := planar.Distance(p, center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centers; an emptied cluster keeps its old center.
		sumX := make([]float64, k)
		sumY := make([]float64, k)
		n := make([]int, k)
		for i, p := range points {
			l := labels[i]
			sumX[l] += p[0]
			sumY[l] += p[1]
			n[l]++
		}
		for c := 0; c < k; c++ {
			if n[c] > 0 {
				centers[c] = orb.Point{sumX[c] / float64(n[c]), sumY[c] / float64(n[c])}
			}
		}
	}
	return labels
}

// seedCenters is deterministic k-means++: the first center comes from the
// random stream, each subsequent one is sampled proportionally to squared
// distance from the nearest existing center.
func seedCenters(points []orb.Point, k int, rng *rand.Rand) []orb.Point {
	centers := make([]orb.Point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	dist2 := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			d := planar.Distance(p, centers[len(centers)-1])
			d2 := d * d
			if len(centers) == 1 || d2 < dist2[i] {
				dist2[i] = d2
			}
			total += dist2[i]
		}

		if total == 0 {
			// All remaining points coincide with a center.
			centers = append(centers, points[len(centers)%len(points)])
			continue
		}

		target := rng.Float64() * total
		var acc float64
		chosen := len(points) - 1
		for i, d2 := range dist2 {
			acc += d2
			if acc >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	return centers
}
