package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chasegame/chase-server/internal/game/cards"
	"github.com/chasegame/chase-server/internal/game/effects"
	"github.com/chasegame/chase-server/internal/game/obstacles"
	"github.com/chasegame/chase-server/internal/game/rules"
	"go.uber.org/zap"
)

// PlayCardRequest carries a card play and its optional targets.
type PlayCardRequest struct {
	CardID string
	// Target names a card in the pool (tutor).
	Target string
	// Node is the roadblock node or curse end node.
	Node string
	// Node2 is the second curse end node under see_double.
	Node2 string
}

// PendingAction is an active effect as presented to a seeker.
type PendingAction struct {
	Type        effects.Type `json:"type"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
}

// Draw deals one random card from the game's card set without touching state.
func (e *Engine) Draw(ctx context.Context, gameID string) (cards.Card, error) {
	var pool *cards.Pool
	err := e.store.InTx(ctx, gameID, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		a, err := e.loadAssets(ctx, gameID, st.MapName, st.CardSet)
		if err != nil {
			return err
		}
		pool = a.pool
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			return cards.Card{}, rules.NotFoundf("game %s not found", gameID)
		}
		return cards.Card{}, rules.Persistence("draw", err)
	}
	drawn, err := e.drawN(pool, 1)
	if err != nil {
		return cards.Card{}, err
	}
	return drawn[0], nil
}

// PlayCard plays a card from the seeker hand and resolves its effect.
// The hand change and the effect commit together or not at all.
func (e *Engine) PlayCard(ctx context.Context, gameID, actorID string, req PlayCardRequest) error {
	return e.mutate(ctx, gameID, actorID, "play card", func(o *op) error {
		if err := o.requireSeeker(); err != nil {
			return err
		}
		if err := o.requireActivePhase(); err != nil {
			return err
		}
		card, ok := o.st.Hand.Remove(req.CardID)
		if !ok {
			return rules.NotFoundf("card %s is not in hand", req.CardID)
		}

		entry := cards.DiscardEntry{
			Card:   card,
			UsedBy: o.actor,
			UsedAt: o.now,
			Target: req.Target,
		}
		for _, n := range []string{req.Node, req.Node2} {
			if n != "" {
				entry.Nodes = append(entry.Nodes, n)
			}
		}
		o.st.DiscardPile = append(o.st.DiscardPile, entry)
		o.dirty = true

		var err error
		switch card.Type {
		case cards.TypeBattle:
			err = e.playBattle(o, card)
		case cards.TypeRoadblock:
			err = e.playRoadblock(o, card, firstNonEmpty(req.Node, req.Target))
		case cards.TypeCurse:
			err = e.playCurse(o, card, firstNonEmpty(req.Node, req.Target), req.Node2)
		case cards.TypeUtility:
			err = e.playUtility(o, card, req)
		default:
			err = rules.Validationf("card %s has unknown type %q", card.Name, card.Type)
		}
		if err != nil {
			return err
		}
		o.emit(rules.EventCardPlayed, card.ID, 0, map[string]string{
			"card": card.Name,
			"type": string(card.Type),
		})
		return nil
	})
}

func (e *Engine) playBattle(o *op, card cards.Card) error {
	ch, err := o.reg.AddChallenge(o.ctx, o.st.SeekerNode, o.actor, card.Description)
	if err != nil {
		return rules.Persistence("place challenge", err)
	}
	o.emit(rules.EventObstaclePlaced, ch.ID, 0, map[string]string{"kind": "challenge", "node": ch.NodeName})

	reveal := effects.NewExpiring(effects.RunnerRevealed,
		fmt.Sprintf("Runner location revealed: %s", o.st.RunnerNode),
		o.now.Add(e.settings.RevealDuration))
	o.st.Effects.Push(reveal)
	o.emit(rules.EventEffectAdded, string(reveal.Type), 0, nil)
	return nil
}

func (e *Engine) playRoadblock(o *op, card cards.Card, node string) error {
	plan, err := obstacles.PlanRoadblock(o.board, o.st.SeekerNode, node, o.st.Effects)
	if err != nil {
		return err
	}
	rb, err := o.reg.AddRoadblock(o.ctx, plan.Node, o.actor, plan.Hidden, e.settings.RoadblockTTL, card.Description)
	if err != nil {
		return rules.Persistence("place roadblock", err)
	}
	o.emit(rules.EventObstaclePlaced, rb.ID, 0, map[string]string{
		"kind":   "roadblock",
		"node":   rb.NodeName,
		"hidden": fmt.Sprint(rb.IsHidden),
	})
	e.consumeLater(o, plan.Remaining, plan.Consumed)
	return nil
}

func (e *Engine) playCurse(o *op, card cards.Card, end, second string) error {
	plan, err := obstacles.PlanCurse(o.board, o.st.SeekerNode, end, second, o.st.Effects)
	if err != nil {
		return err
	}
	c, err := o.reg.AddCurse(o.ctx, plan.Start, plan.End, o.actor, card.Description)
	if err != nil {
		return rules.Persistence("place curse", err)
	}
	o.emit(rules.EventObstaclePlaced, c.ID, 0, map[string]string{"kind": "curse", "start": c.StartNode, "end": c.EndNode})

	if plan.SecondErr != nil {
		e.logger.Info("second curse rejected",
			zap.String("game_id", o.st.GameID),
			zap.String("target", second),
			zap.Error(plan.SecondErr),
		)
	}
	if plan.Second != nil {
		start, end2 := plan.Second[0], plan.Second[1]
		var placed obstacles.Curse
		err := o.tx.Savepoint(o.ctx, func(tx Tx) error {
			var err error
			placed, err = obstacles.NewRegistry(tx, o.st.GameID, func() time.Time { return o.now }).
				AddCurse(o.ctx, start, end2, o.actor, card.Description)
			return err
		})
		if err != nil {
			e.logger.Warn("second curse placement failed",
				zap.String("game_id", o.st.GameID),
				zap.String("target", end2),
				zap.Error(err),
			)
		} else {
			o.emit(rules.EventObstaclePlaced, placed.ID, 0, map[string]string{"kind": "curse", "start": start, "end": end2})
		}
	}
	e.consumeLater(o, plan.Remaining, plan.Consumed)
	return nil
}

// consumeLater schedules removal of the effects a placement used up as a
// secondary write.
func (e *Engine) consumeLater(o *op, remaining effects.Stack, consumed []effects.Type) {
	if len(consumed) == 0 {
		return
	}
	ctx := o.ctx
	o.secondary = append(o.secondary, secondaryWrite{
		name: "consume effects",
		write: func(tx Tx) error {
			return tx.SaveEffects(ctx, remaining)
		},
		onSuccess: func() {
			o.st.Effects = remaining
		},
	})
}

func (e *Engine) playUtility(o *op, card cards.Card, req PlayCardRequest) error {
	kind := card.Utility
	if kind == cards.UtilityNone {
		kind = cards.UtilityForName(card.Name)
	}

	switch kind {
	case cards.UtilityDrawDiscard:
		if err := e.drawInto(o, 2); err != nil {
			return err
		}
		e.pushEffect(o, effects.New(effects.DiscardTwo))
	case cards.UtilityMisdirection:
		e.pushEffect(o, effects.New(effects.Misdirection))
	case cards.UtilitySeeDouble:
		e.pushEffect(o, effects.New(effects.SeeDouble))
	case cards.UtilityHiddenPlacement:
		e.pushEffect(o, effects.New(effects.HiddenRoadblock))
	case cards.UtilityGlobalPlacement:
		e.pushEffect(o, effects.New(effects.GlobalPlacement))
	case cards.UtilityHandRefresh:
		fresh, err := e.drawN(o.pool, e.settings.RefreshHandSize)
		if err != nil {
			return err
		}
		dropped := o.st.Hand
		o.recordDropped(dropped...)
		o.st.Hand = cards.Hand(fresh)
		o.emit(rules.EventCardsDiscarded, card.ID, len(dropped), map[string]string{"reason": "hand refresh"})
		o.emit(rules.EventCardDrawn, card.ID, len(fresh), nil)
	case cards.UtilityTutor:
		return e.tutor(o, req.Target)
	case cards.UtilityBonusDraw:
		return e.drawInto(o, e.settings.BonusDrawCount)
	default:
		return rules.Validationf("card %s has unsupported utility %q", card.Name, kind)
	}
	return nil
}

func (e *Engine) tutor(o *op, name string) error {
	if name == "" {
		return rules.Validationf("choose a card to fetch")
	}
	def, ok := o.pool.Lookup(name)
	if !ok {
		return rules.Validationf("card %q is not in card set %s", name, o.pool.Name())
	}
	if len(o.st.Hand) > 0 {
		dropped := o.st.Hand.RemoveAt(e.intN(len(o.st.Hand)))
		o.recordDropped(dropped)
		o.emit(rules.EventCardsDiscarded, dropped.ID, 1, map[string]string{"reason": "tutor", "card": dropped.Name})
	}
	fetched := def.Instantiate()
	o.st.Hand = append(o.st.Hand, fetched)
	o.emit(rules.EventCardDrawn, fetched.ID, 1, map[string]string{"card": fetched.Name, "reason": "tutor"})
	return nil
}

// recordDropped attaches cards thrown away by the current play to its
// discard entry.
func (o *op) recordDropped(dropped ...cards.Card) {
	if len(dropped) == 0 || len(o.st.DiscardPile) == 0 {
		return
	}
	last := &o.st.DiscardPile[len(o.st.DiscardPile)-1]
	last.Dropped = append(last.Dropped, dropped...)
}

func (e *Engine) drawInto(o *op, n int) error {
	drawn, err := e.drawN(o.pool, n)
	if err != nil {
		return err
	}
	o.st.Hand = append(o.st.Hand, drawn...)
	o.emit(rules.EventCardDrawn, "", len(drawn), nil)
	return nil
}

func (e *Engine) pushEffect(o *op, fx effects.Effect) {
	o.st.Effects.Push(fx)
	o.emit(rules.EventEffectAdded, string(fx.Type), 0, nil)
}

// DiscardCards resolves a pending discard_two effect.
func (e *Engine) DiscardCards(ctx context.Context, gameID, actorID string, cardIDs []string) error {
	return e.mutate(ctx, gameID, actorID, "discard cards", func(o *op) error {
		if err := o.requireSeeker(); err != nil {
			return err
		}
		if !o.st.Effects.Has(effects.DiscardTwo) {
			return rules.Preconditionf("no discard is pending")
		}
		if len(cardIDs) != 2 {
			return rules.Validationf("exactly 2 cards must be discarded, got %d", len(cardIDs))
		}
		if cardIDs[0] == cardIDs[1] {
			return rules.Validationf("cards to discard must be different")
		}
		if !o.st.Hand.Contains(cardIDs...) {
			return rules.Validationf("cards to discard must be in hand")
		}

		for _, id := range cardIDs {
			card, _ := o.st.Hand.Remove(id)
			o.st.DiscardPile = append(o.st.DiscardPile, cards.DiscardEntry{
				Card:   card,
				UsedBy: o.actor,
				UsedAt: o.now,
			})
		}
		o.st.Effects.Consume(effects.DiscardTwo)
		o.dirty = true
		o.emit(rules.EventCardsDiscarded, "", 2, nil)
		return nil
	})
}

// GetPendingActions lists the seekers' active effects. The runner has none.
func (e *Engine) GetPendingActions(ctx context.Context, gameID, actorID string) ([]PendingAction, error) {
	var out []PendingAction
	err := e.mutate(ctx, gameID, actorID, "pending actions", func(o *op) error {
		if err := o.requirePlayer(); err != nil {
			return err
		}
		out = make([]PendingAction, 0, len(o.st.Effects))
		if o.st.IsRunner(o.actor) {
			return nil
		}
		for _, fx := range o.st.Effects {
			out = append(out, PendingAction{
				Type:        fx.Type,
				Description: fx.Description,
				Required:    fx.Type.Required(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
