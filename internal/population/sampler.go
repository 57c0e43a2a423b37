package population

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rshade/commutesim/internal/scenario"
)

// MaxResample is the number of redraws allowed for an out-of-range value
// before it is clamped into range.
const MaxResample = 64

// rander is satisfied by every distuv distribution.
type rander interface {
	Rand() float64
}

type constant float64

func (c constant) Rand() float64 { return float64(c) }

// discrete maps a categorical index onto a value.
type discrete struct {
	index  distuv.Categorical
	values []float64
}

func (d discrete) Rand() float64 { return d.values[int(d.index.Rand())] }

// sampler is a resolved distribution with its effective bounds. It is bound to
// a random source per stream.
type sampler struct {
	spec scenario.DistributionSpec
	lo   float64
	hi   float64
}

func newSampler(d scenario.DistributionSpec, limit float64) sampler {
	lo, hi := d.Bounds(limit)
	return sampler{spec: d, lo: lo, hi: hi}
}

// bind resolves the distribution against src.
func (s sampler) bind(src rand.Source) boundSampler {
	d := s.spec
	var r rander
	switch d.Kind {
	case scenario.KindUniform:
		r = distuv.Uniform{Min: d.Min, Max: d.Max, Src: src}
	case scenario.KindNormal:
		r = distuv.Normal{Mu: d.Mean, Sigma: d.StdDev, Src: src}
	case scenario.KindLogNormal:
		if d.StdDev == 0 {
			r = constant(d.Mean)
			break
		}
		// Parameters are given for the distribution itself; convert to the
		// underlying normal.
		variance := math.Log1p((d.StdDev * d.StdDev) / (d.Mean * d.Mean))
		r = distuv.LogNormal{Mu: math.Log(d.Mean) - variance/2, Sigma: math.Sqrt(variance), Src: src}
	case scenario.KindGamma:
		r = distuv.Gamma{Alpha: d.Shape, Beta: d.Rate, Src: src}
	case scenario.KindTriangular:
		r = distuv.NewTriangle(d.Min, d.Max, d.Mode, src)
	case scenario.KindDiscrete:
		r = discrete{index: distuv.NewCategorical(d.Weights, src), values: d.Values}
	default:
		r = constant(d.Value)
	}
	return boundSampler{r: r, lo: s.lo, hi: s.hi}
}

type boundSampler struct {
	r  rander
	lo float64
	hi float64
}

// draw returns a value in [lo, hi]. Out-of-range draws are redrawn up to
// MaxResample times, then the last draw is clamped.
func (b boundSampler) draw() float64 {
	v := b.r.Rand()
	for i := 0; i < MaxResample && !b.inRange(v); i++ {
		v = b.r.Rand()
	}
	return clamp(v, b.lo, b.hi)
}

func (b boundSampler) inRange(v float64) bool {
	return v >= b.lo && v <= b.hi
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// choice is a categorical draw over named options.
type choice struct {
	names  []string
	scales []float64
	dist   distuv.Categorical
	single bool
}

func newChoice(names []string, weights, scales []float64, src rand.Source) choice {
	c := choice{names: names, scales: scales, single: len(names) == 1}
	if !c.single {
		c.dist = distuv.NewCategorical(weights, src)
	}
	return c
}

// pick returns the index of the chosen option. A single option consumes no
// randomness.
func (c choice) pick() int {
	if c.single {
		return 0
	}
	return int(c.dist.Rand())
}
