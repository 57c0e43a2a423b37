// Package population draws synthetic staff from a validated scenario.
//
// A Generator is built once per scenario and is safe for concurrent use. Each
// Stream owns its random source, so parallel runs never share generator state.
package population

import (
	"math"
	"math/rand/v2"

	"github.com/rshade/commutesim/internal/scenario"
)

// Individual is one sampled member of staff. Individuals are scored and
// discarded; nothing retains them past a run.
type Individual struct {
	Mode    string
	Subtype string
	// DistanceKm is the sampled commute distance in the scenario's convention.
	DistanceKm float64
	// WFHDays is the number of days per week worked from home.
	WFHDays float64
	// HeatingScale multiplies the heating supplement; 0 when heating is off.
	HeatingScale float64
	// PartTime is the fraction of a full-time week not worked; 0 for
	// full-time staff.
	PartTime float64
	// EquipmentKW is the power drawn by home IT while working from home.
	EquipmentKW float64
	// Phone marks staff charging a work phone.
	Phone  bool
	Remote bool
}

// OfficeDays returns the days per week the individual travels in.
func (i Individual) OfficeDays(daysPerWeek float64) float64 {
	return math.Max(0, daysPerWeek-i.WFHDays)
}

// WorkFraction is the fraction of a full-time week the individual works.
func (i Individual) WorkFraction() float64 {
	return 1 - i.PartTime
}

type modePlan struct {
	mode     scenario.Mode
	distance *sampler
	fuels    []string
	weights  []float64
}

// Generator samples individuals for one scenario.
type Generator struct {
	modes       []modePlan
	names       []string
	shares      []float64
	wfh         sampler
	daysPerWeek float64
	heating     *heatingPlan
	partTime    *partTimePlan
	equipment   *scenario.Equipment
}

type partTimePlan struct {
	share float64
	fte   sampler
}

type heatingPlan struct {
	monthNames   []string
	monthShares  []float64
	monthScales  []float64
	extentNames  []string
	extentShares []float64
	extentScales []float64
	sharedShare  float64
}

// New resolves every distribution in cfg. cfg is already validated, so New
// cannot fail.
func New(cfg *scenario.Config) *Generator {
	g := &Generator{
		daysPerWeek: cfg.DaysPerWeek(),
		wfh:         newSampler(cfg.WFHDays(), cfg.DaysPerWeek()),
	}

	for _, m := range cfg.Modes() {
		plan := modePlan{mode: m}
		if m.Travels() {
			s := newSampler(*m.Distance, math.Inf(1))
			plan.distance = &s
		}
		for _, f := range m.Fuels {
			plan.fuels = append(plan.fuels, f.Name)
			plan.weights = append(plan.weights, f.Share)
		}
		g.modes = append(g.modes, plan)
		g.names = append(g.names, m.Name)
		g.shares = append(g.shares, m.Share)
	}

	if h, ok := cfg.Heating(); ok {
		hp := &heatingPlan{sharedShare: h.SharedShare}
		for _, w := range h.Months {
			hp.monthNames = append(hp.monthNames, w.Name)
			hp.monthShares = append(hp.monthShares, w.Share)
			hp.monthScales = append(hp.monthScales, w.Scale)
		}
		for _, w := range h.Extent {
			hp.extentNames = append(hp.extentNames, w.Name)
			hp.extentShares = append(hp.extentShares, w.Share)
			hp.extentScales = append(hp.extentScales, w.Scale)
		}
		g.heating = hp
	}

	if p, ok := cfg.PartTime(); ok {
		g.partTime = &partTimePlan{share: p.Share, fte: newSampler(p.FTE, 1)}
	}
	if e, ok := cfg.Equipment(); ok {
		g.equipment = &e
	}

	return g
}

// Stream returns a lazy sequence of n individuals drawn from src. The stream
// is finite and cannot be restarted; a new stream needs a new source.
func (g *Generator) Stream(src rand.Source, n int) *Stream {
	return &Stream{b: g.bind(src), remaining: max(n, 0)}
}

// Sample draws a single individual from src.
func (g *Generator) Sample(src rand.Source) Individual {
	b := g.bind(src)
	return b.next()
}

// Stream yields individuals one at a time.
type Stream struct {
	b         bound
	remaining int
}

// Next returns the next individual, or false once the stream is exhausted.
func (s *Stream) Next() (Individual, bool) {
	if s.remaining == 0 {
		return Individual{}, false
	}
	s.remaining--
	return s.b.next(), true
}

// Remaining reports how many individuals are left.
func (s *Stream) Remaining() int { return s.remaining }

type boundMode struct {
	plan     *modePlan
	distance boundSampler
	fuel     choice
}

// bound is a Generator resolved against one random source.
type bound struct {
	g      *Generator
	rng    *rand.Rand
	mode   choice
	modes  []boundMode
	wfh    boundSampler
	months choice
	extent choice
	fte    boundSampler
}

func (g *Generator) bind(src rand.Source) bound {
	b := bound{
		g:     g,
		rng:   rand.New(src),
		mode:  newChoice(g.names, g.shares, nil, src),
		modes: make([]boundMode, len(g.modes)),
		wfh:   g.wfh.bind(src),
	}
	for i := range g.modes {
		plan := &g.modes[i]
		bm := boundMode{plan: plan}
		if plan.distance != nil {
			bm.distance = plan.distance.bind(src)
		}
		if len(plan.fuels) > 0 {
			bm.fuel = newChoice(plan.fuels, plan.weights, nil, src)
		}
		b.modes[i] = bm
	}
	if h := g.heating; h != nil {
		b.months = newChoice(h.monthNames, h.monthShares, h.monthScales, src)
		b.extent = newChoice(h.extentNames, h.extentShares, h.extentScales, src)
	}
	if p := g.partTime; p != nil {
		b.fte = p.fte.bind(src)
	}
	return b
}

// next draws mode, distance, fuel, WFH days, heating, part time and
// equipment, in that order. Optional blocks draw nothing when unset.
func (b *bound) next() Individual {
	bm := &b.modes[b.mode.pick()]
	ind := Individual{Mode: bm.plan.mode.Name, Remote: bm.plan.mode.Remote}

	if bm.plan.distance != nil {
		ind.DistanceKm = bm.distance.draw()
	}
	if len(bm.plan.fuels) > 0 {
		ind.Subtype = bm.fuel.names[bm.fuel.pick()]
	}

	if ind.Remote {
		ind.WFHDays = b.g.daysPerWeek
	} else {
		ind.WFHDays = b.wfh.draw()
	}

	if b.g.heating != nil {
		ind.HeatingScale = b.months.scales[b.months.pick()] * b.extent.scales[b.extent.pick()]
		if b.rng.Float64() < b.g.heating.sharedShare {
			ind.HeatingScale *= scenario.SharedHeatingScale
		}
	}

	if p := b.g.partTime; p != nil && b.rng.Float64() < p.share {
		ind.PartTime = 1 - b.fte.draw()
	}

	if e := b.g.equipment; e != nil {
		if b.rng.Float64() < e.LaptopShare {
			ind.EquipmentKW = e.LaptopKW
		} else {
			ind.EquipmentKW = e.DesktopKW
		}
		if b.rng.Float64() < e.MonitorShare {
			ind.EquipmentKW += e.MonitorKW
		}
		ind.Phone = b.rng.Float64() < e.PhoneShare
	}

	return ind
}
