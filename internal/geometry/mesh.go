// Package geometry measures closed triangle meshes: enclosed volume,
// surface area and axis-aligned bounding box.
package geometry

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyMesh       = errors.New("mesh has no faces")
	ErrIndexOutOfRange = errors.New("face references a missing vertex")
	ErrDegenerate      = errors.New("mesh is degenerate")
	ErrNonFiniteVertex = errors.New("vertex coordinate is not finite")
)

// checkEvery is how many faces are measured between context checks
const checkEvery = 4096

// Mesh is a triangulated shape in world coordinates
type Mesh struct {
	Vertices [][3]float64 `yaml:"vertices" json:"vertices"`
	Faces    [][3]int     `yaml:"faces" json:"faces"`
}

// BBox is an axis-aligned bounding box
type BBox struct {
	Min [3]float64
	Max [3]float64
}

// Extents returns the box size along x, y and z
func (b BBox) Extents() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// MaxExtent returns the longest side of the box
func (b BBox) MaxExtent() float64 {
	e := b.Extents()
	return math.Max(e[0], math.Max(e[1], e[2]))
}

// Result holds the measures of one mesh
type Result struct {
	Volume float64
	Area   float64
	BBox   BBox
}

// Measure computes volume, area and bounding box of the mesh.
// Volume is the absolute sum of signed tetrahedra against the origin, so it
// is only meaningful for closed, consistently wound meshes.
func Measure(ctx context.Context, m Mesh) (Result, error) {
	if len(m.Faces) == 0 || len(m.Vertices) == 0 {
		return Result{}, ErrEmptyMesh
	}

	bbox, err := boundingBox(m.Vertices)
	if err != nil {
		return Result{}, err
	}

	var signedVolume, area float64
	for i, f := range m.Faces {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return Result{}, fmt.Errorf("face %d: %w (index %d of %d)", i, ErrIndexOutOfRange, idx, len(m.Vertices))
			}
		}

		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		signedVolume += dot(a, cross(b, c)) / 6.0
		area += norm(cross(sub(b, a), sub(c, a))) / 2.0
	}

	if area == 0 {
		return Result{}, ErrDegenerate
	}

	return Result{
		Volume: math.Abs(signedVolume),
		Area:   area,
		BBox:   bbox,
	}, nil
}

func boundingBox(vertices [][3]float64) (BBox, error) {
	b := BBox{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, v := range vertices {
		for axis := 0; axis < 3; axis++ {
			if math.IsNaN(v[axis]) || math.IsInf(v[axis], 0) {
				return BBox{}, ErrNonFiniteVertex
			}
			b.Min[axis] = math.Min(b.Min[axis], v[axis])
			b.Max[axis] = math.Max(b.Max[axis], v[axis])
		}
	}
	return b, nil
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}
