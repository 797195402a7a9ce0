package metrics

import (
	"math"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// MeanRate is the average of max|U(t) − U(t')|/(t − t') over consecutive
// observations. It falls towards zero as a run approaches equilibrium.
type MeanRate struct {
	name    string
	last    dynamo.State
	lastT   float64
	sum     float64
	samples int
}

func NewMeanRate() *MeanRate {
	return &MeanRate{
		name: "mean_rate",
	}
}

func (r *MeanRate) Name() string {
	return r.name
}

func (r *MeanRate) Observe(u dynamo.State, t float64) {
	if r.last != nil && len(r.last) == len(u) && t > r.lastT {
		peak := 0.0
		for i, v := range u {
			peak = math.Max(peak, math.Abs(v-r.last[i]))
		}
		r.sum += peak / (t - r.lastT)
		r.samples++
	}
	r.last = u.Clone()
	r.lastT = t
}

func (r *MeanRate) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

func (r *MeanRate) Reset() {
	r.last = nil
	r.lastT = 0
	r.sum = 0
	r.samples = 0
}
