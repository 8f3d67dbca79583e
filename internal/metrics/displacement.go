package metrics

import "math"

type MeanDisplacement struct {
	name    string
	sum     float64
	samples int
}

func NewMeanDisplacement() *MeanDisplacement {
	return &MeanDisplacement{
		name: "mean_displacement",
	}
}

func (m *MeanDisplacement) Name() string {
	return m.name
}

func (m *MeanDisplacement) Observe(friction, displacement, velocity float64) {
	m.sum += displacement
	m.samples++
}

func (m *MeanDisplacement) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDisplacement) Reset() {
	m.sum = 0
	m.samples = 0
}

// MaxSpeed is the largest final |v_x| over all cubes.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(friction, displacement, velocity float64) {
	m.max = math.Max(m.max, math.Abs(velocity))
}

func (m *MaxSpeed) Value() float64 { return m.max }

func (m *MaxSpeed) Reset() { m.max = 0 }
