// game/winner.go
package game

import (
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/network"
	"github.com/abel198523/Edel-bingo-30/session"
)

func newWinnerInfo(s *session.Session) *network.WinnerInfo {
	return &network.WinnerInfo{
		UserID:   s.UserID(),
		Username: s.Username(),
		CardID:   s.CardID(),
	}
}

// winnerState displays the round winner and settles the pot. A failed
// payout is never reported as success: the prize field stays absent from
// the broadcast unless the wallet credit landed.
type winnerState struct {
	c      *Controller
	winner *network.WinnerInfo
}

func (s *winnerState) Phase() Phase { return PhaseWinner }

func (s *winnerState) OnEnter() {
	c := s.c
	c.round.TimeLeft = c.cfg.WinnerDisplayTime
	c.round.Winner = s.winner

	drawn := make([]int, len(c.round.Drawn))
	copy(drawn, c.round.Drawn)

	pot, err := c.rounds.CloseRound(c.round.ID, s.winner.UserID, s.winner.CardID, drawn)
	if err != nil {
		logger.Log.Errorf("Failed to close round %d: %v", c.round.ID, err)
	} else if pot > 0 {
		balance, err := c.wallet.Credit(s.winner.UserID, pot, c.round.ID)
		if err != nil {
			logger.Log.Errorf("Payout of %.2f for round %d failed: %v", pot, c.round.ID, err)
		} else {
			prize := pot
			s.winner.Prize = &prize
			if c.mon != nil {
				c.mon.AddPayout(pot)
			}
			for _, sess := range c.sessions.GetByUserID(s.winner.UserID) {
				sess.SetBalance(balance)
			}
		}
	}

	logger.Log.Infof("Round %d won by %s with card %d", c.round.ID, s.winner.Username, s.winner.CardID)
	c.bc.Broadcast(network.PhaseChangeEvent{
		Type:     network.EventPhaseChange,
		Phase:    c.round.Phase.String(),
		TimeLeft: c.round.TimeLeft,
		Winner:   s.winner,
	})
}

func (s *winnerState) OnExit() {}

func (s *winnerState) OnTick() {
	c := s.c
	c.round.TimeLeft--
	c.bc.Broadcast(network.TimerUpdateEvent{
		Type:     network.EventTimerUpdate,
		Phase:    c.round.Phase.String(),
		TimeLeft: c.round.TimeLeft,
	})

	if c.round.TimeLeft <= 0 {
		c.setState(&selectionState{c: c})
	}
}
