// game/selection.go
package game

import (
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/network"
)

// selectionState is the card selection phase. Players pick a card and stake
// into the pot; when the timer runs out the round starts only if someone
// actually staked, otherwise selection begins again with a fresh round id.
type selectionState struct {
	c *Controller
}

func (s *selectionState) Phase() Phase { return PhaseSelection }

func (s *selectionState) OnEnter() {
	c := s.c
	c.round.TimeLeft = c.cfg.SelectionTime
	c.round.Winner = nil
	c.round.Drawn = c.round.Drawn[:0]
	c.sessions.ResetRound()

	roundID, err := c.rounds.OpenRound(c.round.Stake)
	if err != nil {
		// bookkeeping is best effort, the round keeps running on its timer
		logger.Log.Errorf("Failed to open round: %v", err)
	} else {
		c.round.ID = roundID
		logger.Log.Infof("Round %d opened, stake %.2f", roundID, c.round.Stake)
	}

	if c.mon != nil {
		c.mon.IncRoundsStarted()
		c.mon.SetStakedPlayers(0)
	}

	c.bc.Broadcast(network.PhaseChangeEvent{
		Type:     network.EventPhaseChange,
		Phase:    c.round.Phase.String(),
		TimeLeft: c.round.TimeLeft,
		RoundID:  c.round.ID,
	})
}

func (s *selectionState) OnExit() {}

func (s *selectionState) OnTick() {
	c := s.c
	c.round.TimeLeft--
	c.bc.Broadcast(network.TimerUpdateEvent{
		Type:     network.EventTimerUpdate,
		Phase:    c.round.Phase.String(),
		TimeLeft: c.round.TimeLeft,
	})

	if c.round.TimeLeft > 0 {
		return
	}

	if c.sessions.CountStaked() > 0 {
		c.setState(&activeState{c: c})
	} else {
		// a round with no stakers never starts
		c.setState(&selectionState{c: c})
	}
}
