package audioquality

import (
	"math"
	"sort"

	"proficiency-scoring/internal/util"
)

type frame struct {
	rms float64
	zcr float64
}

// frameStats splits samples into overlapping windows and measures the energy
// and zero-crossing rate of each. A signal shorter than one window becomes a
// single frame.
func frameStats(samples []float64, sampleRate, frameMillis, hopMillis int) []frame {
	size := sampleRate * frameMillis / 1000
	hop := sampleRate * hopMillis / 1000
	if size <= 0 {
		size = len(samples)
	}
	if hop <= 0 {
		hop = size
	}
	if len(samples) <= size {
		return []frame{measure(samples)}
	}

	frames := make([]frame, 0, (len(samples)-size)/hop+1)
	for start := 0; start+size <= len(samples); start += hop {
		frames = append(frames, measure(samples[start:start+size]))
	}
	return frames
}

func measure(window []float64) frame {
	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i] >= 0) != (window[i-1] >= 0) {
			crossings++
		}
	}
	f := frame{rms: rms(window)}
	if len(window) > 0 {
		f.zcr = float64(crossings) / float64(len(window))
	}
	return f
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func peak(samples []float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(s))
	}
	return p
}

func clippingPercent(samples []float64, level float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	clipped := 0
	for _, s := range samples {
		if math.Abs(s) >= level {
			clipped++
		}
	}
	return float64(clipped) / float64(len(samples)) * 100
}

// noiseFloor is the mean energy of the quietest tenth of the frames.
func noiseFloor(frames []frame) float64 {
	energies := make([]float64, len(frames))
	for i, f := range frames {
		energies[i] = f.rms
	}
	sort.Float64s(energies)
	n := len(energies) / 10
	if n < 1 {
		n = 1
	}
	return util.Mean(energies[:n])
}

// speechRatio is the share of frames that are louder than the 30th energy
// percentile while crossing zero less often than the 90th percentile, which
// separates voiced sound from silence and broadband hiss.
func speechRatio(frames []frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	energies := make([]float64, len(frames))
	crossings := make([]float64, len(frames))
	for i, f := range frames {
		energies[i] = f.rms
		crossings[i] = f.zcr
	}
	energyThreshold, err := util.Percentile(energies, 30)
	if err != nil {
		return 0
	}
	zcrThreshold, err := util.Percentile(crossings, 90)
	if err != nil {
		return 0
	}

	voiced := 0
	for _, f := range frames {
		if f.rms > energyThreshold && f.zcr < zcrThreshold {
			voiced++
		}
	}
	return float64(voiced) / float64(len(frames))
}
