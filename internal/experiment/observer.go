package experiment

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Snapshot is the state of every cube at one point of the advance phase.
type Snapshot struct {
	Step       int
	Entities   []string
	Positions  []mgl64.Vec3
	Velocities []mgl64.Vec3
}

type Observer interface {
	OnPhase(p Phase)
	OnSnapshot(s Snapshot)
}

// Metric summarizes the final samples of a run.
type Metric interface {
	Name() string
	Observe(friction, displacement, velocity float64)
	Value() float64
	Reset()
}

// Recorder keeps every snapshot it receives.
type Recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	phases    []Phase
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnPhase(p Phase) {
	r.mu.Lock()
	r.phases = append(r.phases, p)
	r.mu.Unlock()
}

func (r *Recorder) OnSnapshot(s Snapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, s)
	r.mu.Unlock()
}

func (r *Recorder) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.phases))
	copy(out, r.phases)
	return out
}

// ObserverFunc adapts a snapshot callback; phase changes are ignored.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) OnPhase(Phase) {}

func (f ObserverFunc) OnSnapshot(s Snapshot) { f(s) }
