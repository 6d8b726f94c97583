package engine

import (
	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/fluid"
)

// GridStep is how many cells one grow or shrink key press adds to every grid axis.
const GridStep = 10

type keyAction int

const (
	actionNone keyAction = iota
	actionGrowGrid
	actionShrinkGrid
	actionTogglePause
	actionReferenceStats
)

// actionForKey maps a window key code to a demo action.
func actionForKey(code uint32) keyAction {
	switch code {
	case common.KeyEqual, common.KeyKPAdd:
		return actionGrowGrid
	case common.KeyMinus, common.KeyKPSubtract:
		return actionShrinkGrid
	case common.KeySpace:
		return actionTogglePause
	case common.KeyR:
		return actionReferenceStats
	default:
		return actionNone
	}
}

// steppedGrid returns g with steps*GridStep added to every axis. The result may be invalid;
// the simulation ignores such requests.
func steppedGrid(g fluid.Grid, steps int) fluid.Grid {
	d := steps * GridStep
	return fluid.Grid{X: g.X + d, Y: g.Y + d, Z: g.Z + d}
}
