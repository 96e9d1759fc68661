package kinematics

import "github.com/thatsimonsguy/cnc-control/internal/execstate"

const (
	AxisX = 0
	AxisY = 1

	// CoreXY motors share the X and Y slots of the step vector.
	MotorA = 0
	MotorB = 1
)

// Axes describes how motor steps map to machine position.
type Axes struct {
	StepsPerMM []float64 `json:"steps_per_mm"`
	CoreXY     bool      `json:"corexy"`
}

func CoreXYToX(steps [execstate.MaxAxis]int32) int32 {
	return (steps[MotorA] + steps[MotorB]) / 2
}

func CoreXYToY(steps [execstate.MaxAxis]int32) int32 {
	return (steps[MotorA] - steps[MotorB]) / 2
}

// StepsToMpos returns the machine position of one axis in mm. Axes without a
// positive steps/mm setting report 0.
func (a Axes) StepsToMpos(steps [execstate.MaxAxis]int32, axis int) float64 {
	if axis < 0 || axis >= len(a.StepsPerMM) || axis >= execstate.MaxAxis || a.StepsPerMM[axis] <= 0 {
		return 0
	}
	perMM := a.StepsPerMM[axis]
	if a.CoreXY {
		switch axis {
		case AxisX:
			return float64(CoreXYToX(steps)) / perMM
		case AxisY:
			return float64(CoreXYToY(steps)) / perMM
		}
	}
	return float64(steps[axis]) / perMM
}

// Mpos converts every configured axis.
func (a Axes) Mpos(steps [execstate.MaxAxis]int32) []float64 {
	n := len(a.StepsPerMM)
	if n > execstate.MaxAxis {
		n = execstate.MaxAxis
	}
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = a.StepsToMpos(steps, i)
	}
	return pos
}
