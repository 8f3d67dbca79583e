package metrics

import "math"

// DefaultStopThreshold is the speed in m/s below which a cube counts as at rest.
const DefaultStopThreshold = 1e-3

type Stopped struct {
	name      string
	threshold float64
	stopped   int
}

func NewStopped(threshold float64) *Stopped {
	return &Stopped{
		name:      "stopped",
		threshold: threshold,
	}
}

func (s *Stopped) Name() string {
	return s.name
}

func (s *Stopped) Observe(friction, displacement, velocity float64) {
	if math.Abs(velocity) < s.threshold {
		s.stopped++
	}
}

func (s *Stopped) Value() float64 {
	return float64(s.stopped)
}

func (s *Stopped) Reset() {
	s.stopped = 0
}
