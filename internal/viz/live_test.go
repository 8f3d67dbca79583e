package viz

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveConfig() experiment.Config {
	return experiment.NewConfig([]float64{0, 100}, experiment.DefaultForce)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func snapshot(step int, x0, v0 float64) SnapshotMsg {
	return SnapshotMsg{
		Step:       step,
		Entities:   []string{"cube_0", "cube_1"},
		Positions:  []mgl64.Vec3{{x0, -2, 0.25}, {0, -1, 0.25}},
		Velocities: []mgl64.Vec3{{v0, 0, 0}, {0, 0, 0}},
	}
}

func TestModelFollowsRun(t *testing.T) {
	m := NewModel(liveConfig(), 0.001, ThemeDark)

	m, _ = update(t, m, PhaseMsg(experiment.PhaseAdvance))
	assert.Equal(t, experiment.PhaseAdvance, m.phase)

	m, _ = update(t, m, snapshot(0, 0.08, 8))
	m, _ = update(t, m, snapshot(100, 0.88, 8))
	m, _ = update(t, m, snapshot(200, 1.68, 8))

	assert.Equal(t, 200, m.last.Step)
	assert.Equal(t, []float64{0.08, 0.88, 1.68}, m.xHistory[0])
	assert.Equal(t, mgl64.Vec3{0.08, -2, 0.25}, m.start[0])
	assert.GreaterOrEqual(t, m.bounds.MaxX, 1.68)

	view := m.View()
	assert.Contains(t, view, "TOP VIEW")
	assert.Contains(t, view, "200 / 10000")
	assert.Contains(t, view, "cube_0 x [m]")

	m, cmd := update(t, m, DoneMsg{})
	assert.True(t, m.done)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "DONE")
}

func TestModelKeys(t *testing.T) {
	m := NewModel(liveConfig(), 0.001, ThemeDark)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.selected)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.selected)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, m.selected)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	assert.Equal(t, "retro", m.styles.Theme.Name)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, m.View(), "KEYS")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelFailedRun(t *testing.T) {
	m := NewModel(liveConfig(), 0.001, ThemeDark)
	m, _ = update(t, m, DoneMsg{Err: errors.New("boom")})
	assert.Contains(t, m.View(), "FAILED")
}

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	}
}

func TestRunLive(t *testing.T) {
	want := &experiment.Result{Steps: 200}
	run := func(ctx context.Context, obs experiment.Observer) (*experiment.Result, error) {
		obs.OnPhase(experiment.PhaseAdvance)
		obs.OnSnapshot(experiment.Snapshot(snapshot(0, 0, 8)))
		obs.OnSnapshot(experiment.Snapshot(snapshot(200, 1.6, 8)))
		obs.OnPhase(experiment.PhaseDone)
		return want, nil
	}

	got, err := RunLive(context.Background(), NewModel(liveConfig(), 0.001, ThemeDark), run, headless()...)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRunLiveClosedViewKeepsRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	want := &experiment.Result{Steps: 10}
	run := func(_ context.Context, obs experiment.Observer) (*experiment.Result, error) {
		obs.OnSnapshot(experiment.Snapshot(snapshot(0, 0, 8)))
		return want, nil
	}

	got, err := RunLive(ctx, NewModel(liveConfig(), 0.001, ThemeDark), run, headless()...)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRunLiveReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	run := func(context.Context, experiment.Observer) (*experiment.Result, error) {
		return nil, boom
	}

	_, err := RunLive(context.Background(), NewModel(liveConfig(), 0.001, ThemeDark), run, headless()...)
	assert.ErrorIs(t, err, boom)
}
