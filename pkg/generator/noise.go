package generator

import "github.com/chewxy/math32"

// SplinePoint is one control point of a Noise curve: a raw noise value x in
// [-1, 1] mapped to an output y.
type SplinePoint struct {
	X, Y float32
}

// Noise layers octaves of gradient noise together and remaps the result
// through a piecewise-linear spline, so a single noise field can drive
// several differently-shaped terrain curves (continentalness, erosion, ...)
// from the same underlying permutation table.
type Noise struct {
	// Frequency scales input coordinates before sampling.
	Frequency float32
	// Octaves is the number of doublings summed together; each one adds
	// noise at double the frequency and half the amplitude of the last.
	Octaves int
	// SplinePoints remaps the accumulated noise value. Points must be
	// sorted by X. A value below the first point or above the last uses
	// that point's Y unchanged; values between two points are linearly
	// interpolated.
	SplinePoints []SplinePoint
}

// Get samples the noise field at (x, z) and maps it through the spline.
func (n Noise) Get(src *source, x, z float32) float32 {
	return interpolateSplinePoints(n.SplinePoints, n.sample(src, x, z))
}

func (n Noise) sample(src *source, x, z float32) float32 {
	f := n.Frequency
	a := float32(1)
	v := float32(0)

	for i := 0; i < n.Octaves; i++ {
		v += src.noise2D(x*f+0.5, z*f+0.5) * a
		f *= 2
		a *= 0.5
	}

	return v
}

func interpolateSplinePoints(points []SplinePoint, x float32) float32 {
	if len(points) == 0 {
		return 0
	}

	rhs := -1
	for i, p := range points {
		if p.X > x {
			rhs = i
			break
		}
	}
	if rhs == -1 {
		return points[len(points)-1].Y
	}
	if rhs == 0 {
		return points[0].Y
	}

	lhs := points[rhs-1]
	r := points[rhs]

	factor := (x - lhs.X) / (r.X - lhs.X)
	return lhs.Y + (r.Y-lhs.Y)*factor
}

// source is a seeded gradient-noise field. No example repo in this lineage
// carries a procedural-noise dependency, so the field itself is a plain
// permutation-table Perlin implementation; only the float32 math comes from
// the ecosystem (math32), matching the mgl32/float32 vector convention the
// rest of the engine uses.
type source struct {
	perm [512]int32
}

func newSource(seed uint32) *source {
	var p [256]int32
	for i := range p {
		p[i] = int32(i)
	}

	// splitmix32, used only to shuffle the permutation table.
	state := seed
	next := func() uint32 {
		state += 0x9e3779b9
		z := state
		z = (z ^ (z >> 16)) * 0x21f0aaad
		z = (z ^ (z >> 15)) * 0x735a2d97
		return z ^ (z >> 15)
	}
	for i := len(p) - 1; i > 0; i-- {
		j := int(next() % uint32(i+1))
		p[i], p[j] = p[j], p[i]
	}

	var s source
	for i := 0; i < 512; i++ {
		s.perm[i] = p[i&255]
	}
	return &s
}

func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float32) float32 {
	return a + t*(b-a)
}

func grad2D(hash int32, x, z float32) float32 {
	switch hash & 7 {
	case 0:
		return x + z
	case 1:
		return x - z
	case 2:
		return -x + z
	case 3:
		return -x - z
	case 4:
		return x
	case 5:
		return -x
	case 6:
		return z
	default:
		return -z
	}
}

// noise2D returns classic Perlin gradient noise at (x, z), roughly in
// [-1, 1].
func (s *source) noise2D(x, z float32) float32 {
	xi := int32(math32.Floor(x)) & 255
	zi := int32(math32.Floor(z)) & 255
	xf := x - math32.Floor(x)
	zf := z - math32.Floor(z)

	u := fade(xf)
	v := fade(zf)

	aa := s.perm[s.perm[xi]+zi]
	ab := s.perm[s.perm[xi]+zi+1]
	ba := s.perm[s.perm[xi+1]+zi]
	bb := s.perm[s.perm[xi+1]+zi+1]

	x1 := lerp(u, grad2D(aa, xf, zf), grad2D(ba, xf-1, zf))
	x2 := lerp(u, grad2D(ab, xf, zf-1), grad2D(bb, xf-1, zf-1))

	return lerp(v, x1, x2)
}
