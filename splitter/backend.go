package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// Backend wraps the GEOS session used for the primitive geometry operations
// the pipeline needs: intersection, union, boundary, polygonize, line-merge,
// densify, voronoi, simplify, and the binary predicates. It is the only
// shared resource of a run; operations are ordered, so no locking is needed.
//
// GEOS reports numeric failures by panicking through the binding. Every
// entry point converts such panics into errors wrapping ErrBackend so a
// failed run is abandoned cleanly instead of crashing the process.
type Backend struct {
	ctx *geos.Context
}

// NewBackend opens a GEOS context. The caller owns the lifecycle: one
// backend per run, released implicitly when garbage collected.
func NewBackend() *Backend {
	return &Backend{ctx: geos.NewContext()}
}

func (b *Backend) toGeos(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding WKB: %v", ErrBackend, err)
	}
	geom, err := b.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding WKB: %v", ErrBackend, err)
	}
	return geom, nil
}

func (b *Backend) toOrb(g *geos.Geom) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil geometry result", ErrBackend)
	}
	out, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("%w: decoding result WKB: %v", ErrBackend, err)
	}
	return out, nil
}

// safely runs fn, converting a GEOS panic into an error.
func (b *Backend) safely(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrBackend, op, r)
		}
	}()
	return fn()
}

func (b *Backend) binaryOp(op string, a, c orb.Geometry, apply func(x, y *geos.Geom) *geos.Geom) (orb.Geometry, error) {
	var result orb.Geometry
	err := b.safely(op, func() error {
		ga, err := b.toGeos(a)
		if err != nil {
			return err
		}
		gc, err := b.toGeos(c)
		if err != nil {
			return err
		}
		result, err = b.toOrb(apply(ga, gc))
		return err
	})
	return result, err
}

func (b *Backend) unaryOp(op string, g orb.Geometry, apply func(x *geos.Geom) *geos.Geom) (orb.Geometry, error) {
	var result orb.Geometry
	err := b.safely(op, func() error {
		gg, err := b.toGeos(g)
		if err != nil {
			return err
		}
		result, err = b.toOrb(apply(gg))
		return err
	})
	return result, err
}

// Intersection returns a ∩ c.
func (b *Backend) Intersection(a, c orb.Geometry) (orb.Geometry, error) {
	return b.binaryOp("intersection", a, c, func(x, y *geos.Geom) *geos.Geom { return x.Intersection(y) })
}

// Union returns a ∪ c.
func (b *Backend) Union(a, c orb.Geometry) (orb.Geometry, error) {
	return b.binaryOp("union", a, c, func(x, y *geos.Geom) *geos.Geom { return x.Union(y) })
}

// Difference returns a − c.
func (b *Backend) Difference(a, c orb.Geometry) (orb.Geometry, error) {
	return b.binaryOp("difference", a, c, func(x, y *geos.Geom) *geos.Geom { return x.Difference(y) })
}

// UnaryUnion unions a set of geometries, node-merging overlapping linework.
// Inputs must be supplied in a stable order for deterministic output.
func (b *Backend) UnaryUnion(gs []orb.Geometry) (orb.Geometry, error) {
	var result orb.Geometry
	err := b.safely("unary union", func() error {
		geoms := make([]*geos.Geom, 0, len(gs))
		for _, g := range gs {
			gg, err := b.toGeos(g)
			if err != nil {
				return err
			}
			geoms = append(geoms, gg)
		}
		coll := b.ctx.NewCollection(geos.TypeIDGeometryCollection, geoms)
		var err error
		result, err = b.toOrb(coll.UnaryUnion())
		return err
	})
	return result, err
}

// Boundary returns the boundary of g.
func (b *Backend) Boundary(g orb.Geometry) (orb.Geometry, error) {
	return b.unaryOp("boundary", g, func(x *geos.Geom) *geos.Geom { return x.Boundary() })
}

// LineMerge merges a set of linestrings into maximal linestrings.
func (b *Backend) LineMerge(g orb.Geometry) (orb.Geometry, error) {
	return b.unaryOp("line merge", g, func(x *geos.Geom) *geos.Geom { return x.LineMerge() })
}

// Densify inserts vertices so that no segment of g is longer than tolerance
// (in degrees).
func (b *Backend) Densify(g orb.Geometry, tolerance float64) (orb.Geometry, error) {
	return b.unaryOp("densify", g, func(x *geos.Geom) *geos.Geom { return x.Densify(tolerance) })
}

// Simplify applies Douglas-Peucker simplification with the given tolerance.
func (b *Backend) Simplify(g orb.Geometry, tolerance float64) (orb.Geometry, error) {
	return b.unaryOp("simplify", g, func(x *geos.Geom) *geos.Geom { return x.Simplify(tolerance) })
}

// MakeValid repairs an invalid geometry.
func (b *Backend) MakeValid(g orb.Geometry) (orb.Geometry, error) {
	return b.unaryOp("make valid", g, func(x *geos.Geom) *geos.Geom { return x.MakeValid() })
}

// Polygonize builds faces from a closed planar linework. Faces come back in
// the backend's polygonization order, which is stable for identical input.
func (b *Backend) Polygonize(lines []orb.Geometry) ([]orb.Polygon, error) {
	var faces []orb.Polygon
	err := b.safely("polygonize", func() error {
		geoms := make([]*geos.Geom, 0, len(lines))
		for _, l := range lines {
			gl, err := b.toGeos(l)
			if err != nil {
				return err
			}
			geoms = append(geoms, gl)
		}
		coll, err := b.toOrb(b.ctx.Polygonize(geoms))
		if err != nil {
			return err
		}
		for _, g := range Flatten(coll) {
			if poly, ok := g.(orb.Polygon); ok {
				faces = append(faces, poly)
			}
		}
		return nil
	})
	return faces, err
}

// Voronoi computes the Voronoi tessellation of the given sites, extended to
// the envelope of env. Cells are returned unclipped and unordered; callers
// map cells back to sites by proximity.
func (b *Backend) Voronoi(sites []orb.Point, env orb.Geometry) ([]orb.Polygon, error) {
	var cells []orb.Polygon
	err := b.safely("voronoi", func() error {
		mp := make(orb.MultiPoint, len(sites))
		copy(mp, sites)
		gp, err := b.toGeos(mp)
		if err != nil {
			return err
		}
		ge, err := b.toGeos(env)
		if err != nil {
			return err
		}
		diagram, err := b.toOrb(gp.VoronoiDiagram(ge, 0, false))
		if err != nil {
			return err
		}
		for _, g := range Flatten(diagram) {
			if poly, ok := g.(orb.Polygon); ok {
				cells = append(cells, poly)
			}
		}
		return nil
	})
	return cells, err
}

// Contains reports whether a contains c (boundary excluded for points on ∂a).
func (b *Backend) Contains(a, c orb.Geometry) (bool, error) {
	var result bool
	err := b.safely("contains", func() error {
		ga, err := b.toGeos(a)
		if err != nil {
			return err
		}
		gc, err := b.toGeos(c)
		if err != nil {
			return err
		}
		result = ga.Contains(gc)
		return nil
	})
	return result, err
}

// Intersects reports whether a and c share any point.
func (b *Backend) Intersects(a, c orb.Geometry) (bool, error) {
	var result bool
	err := b.safely("intersects", func() error {
		ga, err := b.toGeos(a)
		if err != nil {
			return err
		}
		gc, err := b.toGeos(c)
		if err != nil {
			return err
		}
		result = ga.Intersects(gc)
		return nil
	})
	return result, err
}

// IsValidSimple reports whether g is both valid and simple.
func (b *Backend) IsValidSimple(g orb.Geometry) (bool, error) {
	var result bool
	err := b.safely("validity", func() error {
		gg, err := b.toGeos(g)
		if err != nil {
			return err
		}
		result = gg.IsValid() && gg.IsSimple()
		return nil
	})
	return result, err
}

// SharedBoundaryLength returns the planar length of the linear part of
// ∂a ∩ ∂c. Pure point contacts contribute zero, so corner-touching
// neighbours are excluded by a > 0 test on the result.
func (b *Backend) SharedBoundaryLength(a, c orb.Geometry) (float64, error) {
	var length float64
	err := b.safely("shared boundary", func() error {
		ga, err := b.toGeos(a)
		if err != nil {
			return err
		}
		gc, err := b.toGeos(c)
		if err != nil {
			return err
		}
		shared := ga.Boundary().Intersection(gc.Boundary())
		length = shared.Length()
		return nil
	})
	return length, err
}

// OverlapArea returns the planar area of a ∩ c.
func (b *Backend) OverlapArea(a, c orb.Geometry) (float64, error) {
	var area float64
	err := b.safely("overlap area", func() error {
		ga, err := b.toGeos(a)
		if err != nil {
			return err
		}
		gc, err := b.toGeos(c)
		if err != nil {
			return err
		}
		area = ga.Intersection(gc).Area()
		return nil
	})
	return area, err
}

// Flatten expands nested collections and multi-geometries into their
// members. Simple geometries come back as a single-element slice.
func Flatten(g orb.Geometry) []orb.Geometry {
	switch t := g.(type) {
	case nil:
		return nil
	case orb.Collection:
		var out []orb.Geometry
		for _, member := range t {
			out = append(out, Flatten(member)...)
		}
		return out
	case orb.MultiPolygon:
		out := make([]orb.Geometry, 0, len(t))
		for _, p := range t {
			out = append(out, p)
		}
		return out
	case orb.MultiLineString:
		out := make([]orb.Geometry, 0, len(t))
		for _, l := range t {
			out = append(out, l)
		}
		return out
	case orb.MultiPoint:
		out := make([]orb.Geometry, 0, len(t))
		for _, p := range t {
			out = append(out, p)
		}
		return out
	default:
		return []orb.Geometry{g}
	}
}

// FlattenPolygons keeps only the polygonal members of g.
func FlattenPolygons(g orb.Geometry) []orb.Polygon {
	var out []orb.Polygon
	for _, member := range Flatten(g) {
		if poly, ok := member.(orb.Polygon); ok {
			out = append(out, poly)
		}
	}
	return out
}

// FlattenLines keeps only the linear members of g.
func FlattenLines(g orb.Geometry) []orb.LineString {
	var out []orb.LineString
	for _, member := range Flatten(g) {
		if line, ok := member.(orb.LineString); ok {
			out = append(out, line)
		}
	}
	return out
}
