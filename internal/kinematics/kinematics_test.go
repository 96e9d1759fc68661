package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/cnc-control/internal/execstate"
)

func TestStepsToMpos_Cartesian(t *testing.T) {
	a := Axes{StepsPerMM: []float64{80, 80, 400}}
	steps := [execstate.MaxAxis]int32{800, -160, 2000}

	assert.Equal(t, []float64{10, -2, 5}, a.Mpos(steps))
	assert.Equal(t, 0.0, a.StepsToMpos(steps, 4), "unconfigured axis")
}

func TestStepsToMpos_CoreXY(t *testing.T) {
	a := Axes{StepsPerMM: []float64{100, 100, 400}, CoreXY: true}
	steps := [execstate.MaxAxis]int32{3000, 1000, 800}

	assert.Equal(t, int32(2000), CoreXYToX(steps))
	assert.Equal(t, int32(1000), CoreXYToY(steps))
	assert.Equal(t, []float64{20, 10, 2}, a.Mpos(steps))
}

func TestCoreXY_TruncatesTowardZero(t *testing.T) {
	steps := [execstate.MaxAxis]int32{3, -6}
	assert.Equal(t, int32(-1), CoreXYToX(steps))
	assert.Equal(t, int32(4), CoreXYToY(steps))
}
