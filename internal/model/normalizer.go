package model

import (
	"math"

	"github.com/faizdevx/CrashNet/internal/domain"
)

// Normalizer keeps per-feature running mean and variance using
// Welford's algorithm, so one labelled example updates it in O(1)
// without revisiting history.
type Normalizer struct {
	Count uint64                       `json:"count"`
	Mean  [domain.FeatureCount]float64 `json:"mean"`
	M2    [domain.FeatureCount]float64 `json:"m2"`
}

// NewSeededNormalizer starts from a single all-zero observation, so
// Transform is the identity until real examples arrive.
func NewSeededNormalizer() *Normalizer {
	n := &Normalizer{}
	n.Observe(domain.FeatureVector{})
	return n
}

func (n *Normalizer) Observe(x domain.FeatureVector) {
	n.Count++
	for i, v := range x {
		delta := v - n.Mean[i]
		n.Mean[i] += delta / float64(n.Count)
		n.M2[i] += delta * (v - n.Mean[i])
	}
}

// Transform scales x to (x-mean)/std per feature. A zero-variance
// feature is passed through centred only, matching the seeded state.
func (n *Normalizer) Transform(x domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for i, v := range x {
		std := n.std(i)
		if std == 0 {
			std = 1
		}
		out[i] = (v - n.Mean[i]) / std
	}
	return out
}

func (n *Normalizer) std(i int) float64 {
	if n.Count == 0 {
		return 0
	}
	return math.Sqrt(n.M2[i] / float64(n.Count))
}

func (n *Normalizer) clone() *Normalizer {
	c := *n
	return &c
}
