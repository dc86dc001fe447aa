package fit

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/Raimguzhinov/curvequant/internal/curve"
)

const turn = 2 * math32.Pi

type bounds struct {
	ampLo, ampHi   float32
	oscLo, oscHi   float32
	harmLo, harmHi float32
	// harmPow: степень преобразования u^k, смещающего гармоники вниз.
	harmPow int
}

func (r Ranges) bounds() bounds {
	if r == RangesNarrow {
		return bounds{ampLo: 0.1, ampHi: 1, oscLo: 0.1, oscHi: 1, harmLo: 0.5, harmHi: 4.5, harmPow: 3}
	}
	return bounds{ampLo: 0, ampHi: 1, oscLo: -1, oscHi: 2, harmLo: 1, harmHi: 8, harmPow: 2}
}

func lerp(lo, hi, u float32) float32 {
	return lo + (hi-lo)*u
}

func pow(u float32, k int) float32 {
	v := float32(1)
	for range k {
		v *= u
	}
	return v
}

// base: общие для всех кандидатов поля.
func base(o Options) curve.Params {
	return curve.Params{
		Schema:    curve.Schema,
		Embedding: curve.EmbeddingDisk,
		NumPoints: o.NumPoints,
		Jitter:    o.Jitter,
	}
}

// randomCandidates порождает n кандидатов. Кандидат i зависит только от
// первых i+1 порций потока rng, поэтому при том же сиде меньшая глубина
// поиска даёт префикс большей.
func randomCandidates(rng *rand.Rand, o Options, n int) []curve.Params {
	b := o.Ranges.bounds()
	out := make([]curve.Params, n)
	for i := range out {
		p := base(o)
		p.Amplitude = lerp(b.ampLo, b.ampHi, rng.Float32())
		p.AmplitudePhase = turn * rng.Float32()
		p.Oscillation = lerp(b.oscLo, b.oscHi, rng.Float32())
		p.OscillationPhase = turn * rng.Float32()
		p.Harmonic = lerp(b.harmLo, b.harmHi, pow(rng.Float32(), b.harmPow))
		p.ZMin = rng.Float32()
		p.ZMax = rng.Float32()
		if p.ZMax < p.ZMin {
			p.ZMax = lerp(p.ZMin, 1, rng.Float32())
		}
		p.Seed = rng.Uint64()
		out[i] = p
	}
	return out
}

// axis возвращает steps равномерно расставленных значений на [lo,hi].
func axis(lo, hi float32, steps int) []float32 {
	if steps == 1 {
		return []float32{lo}
	}
	vals := make([]float32, steps)
	for i := range vals {
		vals[i] = lerp(lo, hi, float32(i)/float32(steps-1))
	}
	return vals
}

// gridCandidates перебирает сетку по всем осям. Пары z с ZMax < ZMin
// пропускаются. Фазы берутся из [0,2π) без правого конца, он совпадает с 0.
func gridCandidates(rng *rand.Rand, o Options) []curve.Params {
	b := o.Ranges.bounds()
	steps := o.GridSteps
	amps := axis(b.ampLo, b.ampHi, steps)
	oscs := axis(b.oscLo, b.oscHi, steps)
	harms := axis(b.harmLo, b.harmHi, steps)
	zs := axis(0, 1, steps)
	phases := make([]float32, steps)
	for i := range phases {
		phases[i] = turn * float32(i) / float32(steps)
	}

	zPairs := steps * (steps + 1) / 2
	out := make([]curve.Params, 0, steps*steps*steps*steps*steps*zPairs)
	for _, amp := range amps {
		for _, ap := range phases {
			for _, osc := range oscs {
				for _, op := range phases {
					for _, h := range harms {
						for zi, zmin := range zs {
							for _, zmax := range zs[zi:] {
								p := base(o)
								p.Amplitude, p.AmplitudePhase = amp, ap
								p.Oscillation, p.OscillationPhase = osc, op
								p.Harmonic = h
								p.ZMin, p.ZMax = zmin, zmax
								p.Seed = rng.Uint64()
								out = append(out, p)
							}
						}
					}
				}
			}
		}
	}
	return out
}

// GridSize возвращает число кандидатов StrategyGrid при steps значениях на ось.
func GridSize(steps int) int {
	steps = max(steps, 1)
	return steps * steps * steps * steps * steps * steps * (steps + 1) / 2
}
