package experiment

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseDiscovery
	PhaseExcitation
	PhaseAdvance
	PhaseSampling
	PhaseDone
)

var phaseNames = [...]string{
	PhaseSetup:      "setup",
	PhaseDiscovery:  "discovery",
	PhaseExcitation: "excitation",
	PhaseAdvance:    "advance",
	PhaseSampling:   "sampling",
	PhaseDone:       "done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
