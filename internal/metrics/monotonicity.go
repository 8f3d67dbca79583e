package metrics

import "sort"

type observation struct {
	friction     float64
	displacement float64
}

// Monotonicity is the fraction of neighbouring pairs, taken in order of
// increasing friction, whose displacement does not grow. A run that
// behaves like Coulomb friction scores 1.
type Monotonicity struct {
	name string
	obs  []observation
	tol  float64
}

func NewMonotonicity() *Monotonicity {
	return &Monotonicity{
		name: "monotonicity",
		tol:  1e-9,
	}
}

func (m *Monotonicity) Name() string {
	return m.name
}

func (m *Monotonicity) Observe(friction, displacement, velocity float64) {
	m.obs = append(m.obs, observation{friction: friction, displacement: displacement})
}

func (m *Monotonicity) Value() float64 {
	if len(m.obs) < 2 {
		return 1.0
	}

	sorted := make([]observation, len(m.obs))
	copy(sorted, m.obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].friction < sorted[j].friction })

	ok := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].displacement <= sorted[i-1].displacement+m.tol {
			ok++
		}
	}
	return float64(ok) / float64(len(sorted)-1)
}

func (m *Monotonicity) Reset() {
	m.obs = m.obs[:0]
}
