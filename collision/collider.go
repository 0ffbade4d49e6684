package collision

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

type ColliderType uint8

const (
	ColliderCircle ColliderType = iota
	ColliderCapsule
	ColliderBox
	ColliderPolygon
)

func (t ColliderType) String() string {
	switch t {
	case ColliderCircle:
		return "circle"
	case ColliderCapsule:
		return "capsule"
	case ColliderBox:
		return "box"
	case ColliderPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

const MaxPolygonVertices = 16

// Geometry describes a convex shape before it is baked into a Collider.
type Geometry interface {
	build() (shapeData, error)
}

type CircleGeometry struct {
	Center cp.Vector
	Radius float64
}

type CapsuleGeometry struct {
	Vertex0, Vertex1 cp.Vector
	Radius           float64
}

// BoxGeometry is a rectangle whose corners are rounded by BevelRadius without growing past Size.
type BoxGeometry struct {
	Center      cp.Vector
	Size        cp.Vector
	Angle       float64
	BevelRadius float64
}

// PolygonGeometry is a convex outline; BevelRadius inflates it outward.
type PolygonGeometry struct {
	Vertices    []cp.Vector
	BevelRadius float64
}

type shapeData struct {
	kind     ColliderType
	vertices []cp.Vector
	radius   float64
}

// Collider is an immutable convex shape blob: a core hull of vertices inflated by a
// convex radius, with its mass distribution and bounds precomputed. It is shared by
// pointer across every body that uses it and must never be mutated.
type Collider struct {
	kind     ColliderType
	vertices []cp.Vector
	normals  []cp.Vector
	radius   float64

	massProperties MassProperties
	aabb           Aabb
	filter         Filter
	material       Material
	hash           uint64

	arena  *ColliderArena
	handle colliderHandle
	refs   int32
}

// NewCollider bakes g into a standalone collider that is not tracked by any arena.
func NewCollider(g Geometry, filter Filter, material Material) (*Collider, error) {
	if g == nil {
		return nil, fmt.Errorf("collision: new collider: nil geometry: %w", common.ErrInvalidArgument)
	}
	data, err := g.build()
	if err != nil {
		return nil, err
	}
	return bake(data, filter, material), nil
}

func NewCircle(g CircleGeometry, filter Filter, material Material) (*Collider, error) {
	return NewCollider(g, filter, material)
}

func NewCapsule(g CapsuleGeometry, filter Filter, material Material) (*Collider, error) {
	return NewCollider(g, filter, material)
}

func NewBox(g BoxGeometry, filter Filter, material Material) (*Collider, error) {
	return NewCollider(g, filter, material)
}

func NewPolygon(g PolygonGeometry, filter Filter, material Material) (*Collider, error) {
	return NewCollider(g, filter, material)
}

func (g CircleGeometry) build() (shapeData, error) {
	if !common.IsFiniteVector(g.Center) || !common.IsFinite(g.Radius) || g.Radius <= 0 {
		return shapeData{}, fmt.Errorf("collision: circle center %v radius %v: %w", g.Center, g.Radius, common.ErrInvalidArgument)
	}
	return shapeData{kind: ColliderCircle, vertices: []cp.Vector{g.Center}, radius: g.Radius}, nil
}

func (g CapsuleGeometry) build() (shapeData, error) {
	if !common.IsFiniteVector(g.Vertex0) || !common.IsFiniteVector(g.Vertex1) || !common.IsFinite(g.Radius) || g.Radius <= 0 {
		return shapeData{}, fmt.Errorf("collision: capsule %v-%v radius %v: %w", g.Vertex0, g.Vertex1, g.Radius, common.ErrInvalidArgument)
	}
	if g.Vertex0.Distance(g.Vertex1) < common.MinimumConvexRadius {
		return shapeData{kind: ColliderCapsule, vertices: []cp.Vector{g.Vertex0.Lerp(g.Vertex1, 0.5)}, radius: g.Radius}, nil
	}
	return shapeData{kind: ColliderCapsule, vertices: []cp.Vector{g.Vertex0, g.Vertex1}, radius: g.Radius}, nil
}

func (g BoxGeometry) build() (shapeData, error) {
	if !common.IsFiniteVector(g.Center) || !common.IsFiniteVector(g.Size) || !common.IsFinite(g.Angle) {
		return shapeData{}, fmt.Errorf("collision: box is not finite: %w", common.ErrInvalidArgument)
	}
	minSize := math.Min(g.Size.X, g.Size.Y)
	if minSize < 2*common.MinimumConvexRadius {
		return shapeData{}, fmt.Errorf("collision: box size %v below minimum: %w", g.Size, common.ErrInvalidArgument)
	}
	if !common.IsFinite(g.BevelRadius) || g.BevelRadius < 0 || g.BevelRadius > minSize/2-common.MinimumConvexRadius {
		return shapeData{}, fmt.Errorf("collision: box bevel radius %v out of range: %w", g.BevelRadius, common.ErrInvalidArgument)
	}
	hx := g.Size.X/2 - g.BevelRadius
	hy := g.Size.Y/2 - g.BevelRadius
	xf := common.NewTransform(g.Center, g.Angle)
	corners := []cp.Vector{
		{X: -hx, Y: -hy},
		{X: hx, Y: -hy},
		{X: hx, Y: hy},
		{X: -hx, Y: hy},
	}
	for i := range corners {
		corners[i] = xf.TransformPoint(corners[i])
	}
	return shapeData{kind: ColliderBox, vertices: corners, radius: g.BevelRadius}, nil
}

func (g PolygonGeometry) build() (shapeData, error) {
	n := len(g.Vertices)
	if n < 3 || n > MaxPolygonVertices {
		return shapeData{}, fmt.Errorf("collision: polygon needs 3..%d vertices, got %d: %w", MaxPolygonVertices, n, common.ErrInvalidArgument)
	}
	if !common.IsFinite(g.BevelRadius) || g.BevelRadius < 0 {
		return shapeData{}, fmt.Errorf("collision: polygon bevel radius %v: %w", g.BevelRadius, common.ErrInvalidArgument)
	}
	verts := make([]cp.Vector, n)
	copy(verts, g.Vertices)
	for _, v := range verts {
		if !common.IsFiniteVector(v) {
			return shapeData{}, fmt.Errorf("collision: polygon vertex %v: %w", v, common.ErrInvalidArgument)
		}
	}

	area := cp.AreaForPoly(n, verts, 0)
	if math.Abs(area) < common.MinimumConvexRadius*common.MinimumConvexRadius {
		return shapeData{}, fmt.Errorf("collision: polygon is degenerate: %w", common.ErrInvalidArgument)
	}
	if area < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			verts[i], verts[j] = verts[j], verts[i]
		}
	}

	for i := 0; i < n; i++ {
		v0 := verts[i]
		v1 := verts[(i+1)%n]
		v2 := verts[(i+2)%n]
		if v1.Distance(v0) < common.MinimumConvexRadius {
			return shapeData{}, fmt.Errorf("collision: polygon edge %d shorter than %v: %w", i, common.MinimumConvexRadius, common.ErrInvalidArgument)
		}
		if v1.Sub(v0).Cross(v2.Sub(v1)) <= 0 {
			return shapeData{}, fmt.Errorf("collision: polygon is not convex at vertex %d: %w", (i+1)%n, common.ErrInvalidArgument)
		}
	}
	return shapeData{kind: ColliderPolygon, vertices: verts, radius: g.BevelRadius}, nil
}

func bake(data shapeData, filter Filter, material Material) *Collider {
	c := &Collider{
		kind:     data.kind,
		vertices: data.vertices,
		radius:   data.radius,
		filter:   filter,
		material: material,
	}
	c.normals = edgeNormals(c.vertices)

	switch {
	case len(c.vertices) == 1:
		c.massProperties = circleMass(c.vertices[0], c.radius)
	case len(c.vertices) == 2:
		c.massProperties = capsuleMass(c.vertices[0], c.vertices[1], c.radius)
	default:
		c.massProperties = polygonMass(c.vertices, c.radius)
	}

	bounds := EmptyAabb
	for _, v := range c.vertices {
		bounds = bounds.Include(v)
	}
	c.aabb = bounds.Expand(c.radius)
	c.hash = contentHash(data, filter, material)
	return c
}

// edgeNormals returns one outward normal per face. A segment has two faces.
func edgeNormals(vertices []cp.Vector) []cp.Vector {
	switch n := len(vertices); n {
	case 1:
		return nil
	case 2:
		nrm := vertices[1].Sub(vertices[0]).ReversePerp().Normalize()
		return []cp.Vector{nrm, nrm.Neg()}
	default:
		normals := make([]cp.Vector, n)
		for i := range vertices {
			normals[i] = vertices[(i+1)%n].Sub(vertices[i]).ReversePerp().Normalize()
		}
		return normals
	}
}

func contentHash(data shapeData, filter Filter, material Material) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	_, _ = h.Write([]byte{byte(data.kind), byte(len(data.vertices))})
	for _, v := range data.vertices {
		writeFloat(v.X)
		writeFloat(v.Y)
	}
	writeFloat(data.radius)
	binary.LittleEndian.PutUint32(buf[:4], filter.BelongsTo)
	binary.LittleEndian.PutUint32(buf[4:], filter.CollidesWith)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:4], uint32(filter.GroupIndex))
	_, _ = h.Write(buf[:4])
	_, _ = h.Write([]byte{byte(material.Flags), byte(material.FrictionCombine), byte(material.RestitutionCombine)})
	writeFloat(material.Friction)
	writeFloat(material.Restitution)
	return h.Sum64()
}

func (c *Collider) Type() ColliderType { return c.kind }

// Vertices returns the core hull in collider space. Callers must not modify it.
func (c *Collider) Vertices() []cp.Vector { return c.vertices }

// Radius is the convex radius wrapped around the core hull.
func (c *Collider) Radius() float64 { return c.radius }

func (c *Collider) MassProperties() MassProperties { return c.massProperties }

// Aabb returns the bounds in collider space.
func (c *Collider) Aabb() Aabb { return c.aabb }

func (c *Collider) Filter() Filter { return c.filter }

func (c *Collider) Material() Material { return c.material }

// Hash is the content hash used to deduplicate identical colliders.
func (c *Collider) Hash() uint64 { return c.hash }

// CalculateAabb bounds the collider placed at xf.
func (c *Collider) CalculateAabb(xf common.Transform) Aabb {
	bounds := EmptyAabb
	for _, v := range c.vertices {
		bounds = bounds.Include(xf.TransformPoint(v))
	}
	return bounds.Expand(c.radius)
}

func (c *Collider) sameContent(o *Collider) bool {
	if c.kind != o.kind || c.radius != o.radius || len(c.vertices) != len(o.vertices) ||
		c.filter != o.filter || c.material != o.material {
		return false
	}
	for i := range c.vertices {
		if c.vertices[i] != o.vertices[i] {
			return false
		}
	}
	return true
}
