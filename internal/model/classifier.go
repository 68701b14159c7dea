package model

import "github.com/faizdevx/CrashNet/internal/domain"

// SGD hyperparameters, fixed across the model's lifetime.
const (
	learningRate = 0.01
	l2Alpha      = 1e-4
)

// Classifier is an online linear classifier trained with hinge-loss
// SGD steps over normalized features. Decision > 0 means accident.
type Classifier struct {
	Weights [domain.FeatureCount]float64 `json:"weights"`
	Bias    float64                      `json:"bias"`
	Updates uint64                       `json:"updates"`
}

// NewSeededClassifier takes one update on the all-zero vector with a
// negative label, so a fresh model answers "non-accident" instead of
// failing on an empty state.
func NewSeededClassifier() *Classifier {
	c := &Classifier{}
	c.Fit(domain.FeatureVector{}, 0)
	return c
}

// Decision returns the raw margin w·x + b.
func (c *Classifier) Decision(x domain.FeatureVector) float64 {
	score := c.Bias
	for i, w := range c.Weights {
		score += w * x[i]
	}
	return score
}

// Fit applies one SGD step for a single labelled example.
func (c *Classifier) Fit(x domain.FeatureVector, label int) {
	y := -1.0
	if label == 1 {
		y = 1.0
	}

	margin := y * c.Decision(x)
	for i := range c.Weights {
		c.Weights[i] *= 1 - learningRate*l2Alpha
	}
	if margin < 1 {
		for i := range c.Weights {
			c.Weights[i] += learningRate * y * x[i]
		}
		c.Bias += learningRate * y
	}
	c.Updates++
}

func (c *Classifier) clone() *Classifier {
	cp := *c
	return &cp
}
