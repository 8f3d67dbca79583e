package export

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots() []experiment.Snapshot {
	return []experiment.Snapshot{
		{
			Step:      0,
			Entities:  []string{"cube_0", "cube_1"},
			Positions: []mgl64.Vec3{{0.08, -2, 0.25}, {0, -1, 0.25}},
		},
		{
			Step:      100,
			Entities:  []string{"cube_0", "cube_1"},
			Positions: []mgl64.Vec3{{0.88, -2, 0.25}, {0.01, -1, 0.25}},
		},
		{
			Step:      200,
			Entities:  []string{"cube_0", "cube_1"},
			Positions: []mgl64.Vec3{{1.68, -2, 0.25}, {0.01, -1, 0.25}},
		},
	}
}

func TestTrajectorySeries(t *testing.T) {
	series := TrajectorySeries(snapshots(), 0.001, []string{"#ff0000"})

	require.Len(t, series, 2)
	assert.Equal(t, "cube_0", series[0].Name)
	assert.Equal(t, "#ff0000", series[0].Color)
	assert.Equal(t, foreground, series[1].Color)
	require.Len(t, series[0].Points, 3)
	assert.InDelta(t, 0.2, series[0].Points[2].X, 1e-12)
	assert.InDelta(t, 1.68, series[0].Points[2].Y, 1e-12)
	assert.Nil(t, TrajectorySeries(nil, 0.001, nil))
}

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG(TrajectorySeries(snapshots(), 0.001, []string{"#ff0000", "#00ff00"}), 640, 360)

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, 2, strings.Count(svg, `stroke-width="1.5"`))
	assert.Contains(t, svg, `stroke="#00ff00"`)
	assert.Contains(t, svg, ">cube_1</text>")
}

func TestSeriesToSVGEmpty(t *testing.T) {
	assert.Empty(t, SeriesToSVG(nil, 640, 360))
	assert.Empty(t, SeriesToSVG([]Series{{Name: "x"}}, 640, 360))
}

func TestSamplesToSVG(t *testing.T) {
	samples := []experiment.Sample{
		{Entity: "cube_0", Friction: 0, DisplacementX: 80},
		{Entity: "cube_1", Friction: 0.5, DisplacementX: 0.5},
		{Entity: "cube_2", Friction: 100, DisplacementX: 0},
	}
	svg := SamplesToSVG(samples, []string{"#ff0000", "#00ff00", "#0000ff"}, 600, 300)

	assert.Equal(t, 4, strings.Count(svg, "<rect"), "background plus one bar per cube")
	assert.Contains(t, svg, "mu=100")
	assert.Contains(t, svg, ">80.00</text>")
	// the longest bar spans the whole plot height
	assert.Contains(t, svg, `y="40.0" width="104.0" height="220.0" fill="#ff0000"`)
	assert.Empty(t, SamplesToSVG(nil, nil, 600, 300))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "a&lt;b&gt;&amp;&quot;", escape(`a<b>&"`))
}
