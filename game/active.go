// game/active.go
package game

import (
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/network"
)

// activeState is the number calling phase. It lasts until a valid win claim
// arrives or the pool is exhausted; timing is driven by the caller's own
// cadence, not the 1 Hz tick.
type activeState struct {
	c *Controller
}

func (s *activeState) Phase() Phase { return PhaseActive }

func (s *activeState) OnEnter() {
	c := s.c
	c.round.TimeLeft = -1
	c.round.Pool = NewPool()
	c.round.Drawn = c.round.Drawn[:0]

	staked := c.sessions.StakedSessions()
	players := make([]network.PlayerInfo, 0, len(staked))
	for _, sess := range staked {
		players = append(players, network.PlayerInfo{
			ID:       sess.ID,
			Username: sess.Username(),
			CardID:   sess.CardID(),
		})
	}

	logger.Log.Infof("Round %d active with %d staked players", c.round.ID, len(players))
	c.bc.Broadcast(network.PhaseChangeEvent{
		Type:     network.EventPhaseChange,
		Phase:    c.round.Phase.String(),
		TimeLeft: -1,
		Players:  players,
	})

	c.caller.start()
}

func (s *activeState) OnExit() {
	s.c.caller.stop()
}

func (s *activeState) OnTick() {}
