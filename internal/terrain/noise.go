package terrain

import (
	"math"
	"math/rand"
)

// Noise is seeded 2D gradient noise.
type Noise struct {
	perm [512]int
}

func NewNoise(seed int64) *Noise {
	n := &Noise{}
	p := rand.New(rand.NewSource(seed)).Perm(256)
	for i := 0; i < 512; i++ {
		n.perm[i] = p[i&255]
	}
	return n
}

// At returns gradient noise in [-1, 1].
func (n *Noise) At(x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	xi, yi := int(fx)&255, int(fy)&255
	x -= fx
	y -= fy
	u, v := fade(x), fade(y)

	p := &n.perm
	a, b := p[xi]+yi, p[xi+1]+yi
	aa, ba := p[a], p[b]
	ab, bb := p[a+1], p[b+1]

	i0 := lerp(u, grad(p[aa], x, y), grad(p[ba], x-1, y))
	i1 := lerp(u, grad(p[ab], x, y-1), grad(p[bb], x-1, y-1))
	return lerp(v, i0, i1)
}

// Fractal sums octaves of noise and rescales the result to roughly [0, 1].
// Persistence scales the amplitude and lacunarity the frequency of each
// successive octave.
func (n *Noise) Fractal(octaves int, frequency, persistence, lacunarity, x, y float64) float64 {
	sum, amplitude, total := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		sum += n.At(x*frequency, y*frequency) * amplitude
		total += amplitude
		frequency *= lacunarity
		amplitude *= persistence
	}
	if total == 0 {
		return 0.5
	}
	return ((sum/total)*1.5 + 1) * 0.5
}

func fade(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(t, a, b float64) float64 { return a + t*(b-a) }

func grad(hash int, x, y float64) float64 {
	h := hash & 15
	u, v := y, x
	if h < 8 {
		u = x
	}
	switch {
	case h < 4:
		v = y
	case h == 12 || h == 14:
		v = x
	default:
		v = 0
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
