package obstacles

import (
	"github.com/chasegame/chase-server/internal/game/board"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/rules"
)

// RoadblockPlan is a validated roadblock placement.
type RoadblockPlan struct {
	Node   string
	Hidden bool
	// Remaining is the effect stack after the placement's effects are consumed.
	Remaining effects.Stack
	Consumed  []effects.Type
}

// PlanRoadblock applies the roadblock placement rules. requested may be empty
// to mean the seeker's own node. The input stack is not modified.
func PlanRoadblock(m *board.Map, seekerNode, requested string, active effects.Stack) (RoadblockPlan, error) {
	node := requested
	if node == "" {
		node = seekerNode
	}
	if !m.HasNode(node) {
		return RoadblockPlan{}, rules.Validationf("unknown node %q", node)
	}

	global := active.Has(effects.GlobalPlacement)
	misdirect := active.Has(effects.Misdirection)
	switch {
	case node == seekerNode:
	case global:
	case misdirect && m.Adjacent(seekerNode, node):
	case misdirect:
		return RoadblockPlan{}, rules.Validationf("roadblock must be on or next to %s", seekerNode)
	default:
		return RoadblockPlan{}, rules.Validationf("roadblock must be placed at %s", seekerNode)
	}

	remaining := active.Clone()
	consumed := remaining.ConsumeAny(effects.Misdirection, effects.HiddenRoadblock, effects.GlobalPlacement)
	return RoadblockPlan{
		Node:      node,
		Hidden:    active.Has(effects.HiddenRoadblock),
		Remaining: remaining,
		Consumed:  consumed,
	}, nil
}

// CursePlan is a validated curse placement, possibly doubled.
type CursePlan struct {
	Start string
	End   string
	// Second is set when see_double allowed a second curse. SecondErr holds
	// the reason the second target was rejected, if it was.
	Second    *[2]string
	SecondErr error
	Remaining effects.Stack
	Consumed  []effects.Type
}

// PlanCurse applies the curse placement rules for the edge starting at the
// seeker node. target is required; second is only honoured with see_double.
// A rejected second target never invalidates the first.
func PlanCurse(m *board.Map, seekerNode, target, second string, active effects.Stack) (CursePlan, error) {
	global := active.Has(effects.GlobalPlacement)
	if err := checkCurseEnd(m, seekerNode, target, global); err != nil {
		return CursePlan{}, err
	}

	plan := CursePlan{Start: seekerNode, End: target}
	if second != "" && active.Has(effects.SeeDouble) {
		if err := checkCurseEnd(m, seekerNode, second, global); err != nil {
			plan.SecondErr = err
		} else {
			plan.Second = &[2]string{seekerNode, second}
		}
	}

	plan.Remaining = active.Clone()
	plan.Consumed = plan.Remaining.ConsumeAny(effects.SeeDouble, effects.GlobalPlacement)
	return plan, nil
}

func checkCurseEnd(m *board.Map, seekerNode, end string, global bool) error {
	if end == "" {
		return rules.Validationf("curse requires a target node")
	}
	if !m.HasNode(end) {
		return rules.Validationf("unknown node %q", end)
	}
	if end == seekerNode {
		return rules.Validationf("curse must connect two different nodes")
	}
	if !global && !m.Adjacent(seekerNode, end) {
		return rules.Validationf("%s is not adjacent to %s", end, seekerNode)
	}
	return nil
}
