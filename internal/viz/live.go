package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/frictionlab/internal/experiment"
)

const (
	canvasWidth     = 60
	canvasHeight    = 16
	historyCapacity = 400
)

type (
	TickMsg     time.Time
	PhaseMsg    experiment.Phase
	SnapshotMsg experiment.Snapshot
	// DoneMsg ends the view once the run returned.
	DoneMsg struct{ Err error }
)

// Model is the live view of one run. It only reads what the driver reports;
// quitting the view does not stop the run.
type Model struct {
	cfg      experiment.Config
	stepSize float64
	styles   Styles

	phase   experiment.Phase
	started time.Time
	frame   int

	start    []mgl64.Vec3
	last     experiment.Snapshot
	bounds   Frame
	xHistory [][]float64
	vHistory [][]float64

	selected int
	showHelp bool
	done     bool
	err      error
}

func NewModel(cfg experiment.Config, stepSize float64, t Theme) Model {
	return Model{
		cfg:      cfg,
		stepSize: stepSize,
		styles:   NewStyles(t),
		started:  time.Now(),
		xHistory: make([][]float64, len(cfg.Cubes)),
		vHistory: make([][]float64, len(cfg.Cubes)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "j", "down":
			if n := len(m.cfg.Cubes); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case "shift+tab", "k", "up":
			if n := len(m.cfg.Cubes); n > 0 {
				m.selected = (m.selected + n - 1) % n
			}
		case "t":
			m.styles = NewStyles(nextTheme(m.styles.Theme))
		case "?":
			m.showHelp = !m.showHelp
		}

	case PhaseMsg:
		m.phase = experiment.Phase(msg)

	case SnapshotMsg:
		m.observe(experiment.Snapshot(msg))

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case TickMsg:
		m.frame++
		if !m.done {
			return m, tick()
		}
	}
	return m, nil
}

func (m *Model) observe(s experiment.Snapshot) {
	if m.start == nil {
		m.start = append([]mgl64.Vec3(nil), s.Positions...)
		m.bounds = FrameOf(m.start, m.cfg.Edge*2)
	}
	for _, p := range s.Positions {
		m.bounds = m.bounds.Include(p)
	}
	for i := range s.Positions {
		if i >= len(m.xHistory) {
			break
		}
		m.xHistory[i] = appendCapped(m.xHistory[i], s.Positions[i].X())
		m.vHistory[i] = appendCapped(m.vHistory[i], s.Velocities[i].X())
	}
	m.last = s
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[len(h)-historyCapacity:]
	}
	return h
}

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m Model) status() string {
	switch {
	case m.done && m.err != nil:
		return m.styles.Bad.Render("FAILED")
	case m.done:
		return m.styles.Good.Render("DONE")
	}
	return m.styles.Warn.Render(fmt.Sprintf("%s %s", spinner[m.frame%len(spinner)], strings.ToUpper(m.phase.String())))
}

func (m Model) View() string {
	st := m.styles

	c := NewCanvas(canvasWidth, canvasHeight)
	if m.start != nil {
		TopView(c, m.bounds, m.start, m.last.Positions)
	}
	canvasView := st.Panel.Render(st.Title.Render("TOP VIEW") + "\n" + colorRows(c, m))

	var s strings.Builder
	s.WriteString(st.Header.Render("FRICTION LAB") + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(st.Label.Render(fmt.Sprintf("%-8s", "step")) +
		st.Value.Render(fmt.Sprintf("%d / %d", m.last.Step, m.cfg.Steps)) + "\n")
	s.WriteString(st.Label.Render(fmt.Sprintf("%-8s", "time")) +
		st.Value.Render(fmt.Sprintf("%.3fs", float64(m.last.Step)*m.stepSize)) + "\n")
	s.WriteString(st.Label.Render(fmt.Sprintf("%-8s", "elapsed")) +
		st.Value.Render(time.Since(m.started).Truncate(time.Millisecond*100).String()) + "\n\n")

	for i, cube := range m.cfg.Cubes {
		x, v := 0.0, 0.0
		if i < len(m.last.Positions) {
			x, v = m.last.Positions[i].X(), m.last.Velocities[i].X()
		}
		line := fmt.Sprintf("%-8s mu=%-6g x=%8.2f vx=%6.2f %s",
			m.cfg.Name(i), cube.Friction, x, v, Sparkline(m.vHistory[i], 12))
		if i == m.selected {
			s.WriteString(Swatch(cube.Color.Hex()) + " " + st.Title.Render(line) + "\n")
		} else {
			s.WriteString(Swatch(cube.Color.Hex()) + " " + st.Label.Render(line) + "\n")
		}
	}

	if m.selected < len(m.xHistory) && len(m.xHistory[m.selected]) > 1 {
		h := m.xHistory[m.selected]
		chart := asciigraph.Plot(h,
			asciigraph.Height(5),
			asciigraph.Width(40),
			asciigraph.Caption(fmt.Sprintf("%s x [m]", m.cfg.Name(m.selected))))
		s.WriteString("\n" + chart + "\n")
	}

	s.WriteString("\n" + st.Muted.Render("tab:select  t:theme  ?:help  q:close view"))
	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))

	if m.showHelp {
		help := st.Panel.Render(strings.Join([]string{
			st.Title.Render("KEYS"),
			"tab / j   next cube",
			"S-tab / k previous cube",
			"t         cycle theme",
			"?         toggle help",
			"q         close the view, the run keeps going",
		}, "\n"))
		return help + "\n" + view
	}
	return view
}

// colorRows tints the canvas with the color of the selected cube.
func colorRows(c *Canvas, m Model) string {
	if len(m.cfg.Cubes) == 0 {
		return c.String()
	}
	hex := m.cfg.Cubes[m.selected%len(m.cfg.Cubes)].Color.Hex()
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(strings.Join(c.Rows(), "\n"))
}

// ProgramObserver forwards driver events to a running program.
type ProgramObserver struct{ p *tea.Program }

func (o ProgramObserver) OnPhase(p experiment.Phase)      { o.p.Send(PhaseMsg(p)) }
func (o ProgramObserver) OnSnapshot(s experiment.Snapshot) { o.p.Send(SnapshotMsg(s)) }

// RunLive shows m while run executes with an observer feeding the view.
// The run always completes, even when the view is closed first, and its
// result is returned.
func RunLive(ctx context.Context, m Model, run func(context.Context, experiment.Observer) (*experiment.Result, error), opts ...tea.ProgramOption) (*experiment.Result, error) {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	var (
		res    *experiment.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = run(ctx, ProgramObserver{p})
		p.Send(DoneMsg{Err: runErr})
	}()

	_, uiErr := p.Run()
	<-done
	if runErr != nil {
		return nil, runErr
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return res, fmt.Errorf("live view: %w", uiErr)
	}
	return res, nil
}
