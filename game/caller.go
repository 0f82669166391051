// game/caller.go
package game

import (
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/network"
)

// NumberCaller drives repeated draws on a fixed cadence while the round is
// active. Its timer is cancelled whenever the controller leaves the active
// phase so it never runs into the next round.
type NumberCaller struct {
	c       *Controller
	timerID int64
	running bool
}

func newNumberCaller(c *Controller) *NumberCaller {
	return &NumberCaller{c: c}
}

// start and stop are called with the controller lock held.
func (n *NumberCaller) start() {
	if n.running {
		n.stop()
	}
	n.running = true
	n.timerID = n.c.sched.AddTimer(n.c.cfg.CallInterval, n.c.cfg.CallInterval, n.call)
}

func (n *NumberCaller) stop() {
	if !n.running {
		return
	}
	n.running = false
	n.c.sched.RemoveTimer(n.timerID)
}

// call draws the next undrawn number and broadcasts it, or reports
// exhaustion exactly once and schedules the delayed selection re-entry.
func (n *NumberCaller) call() {
	c := n.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round.Phase != PhaseActive {
		return
	}

	undrawn := Undrawn(c.round.Pool, c.round.Drawn)
	number, letter, ok := Draw(undrawn)
	if !ok {
		n.stop()
		logger.Log.Infof("Round %d exhausted all numbers with no claim", c.round.ID)
		c.bc.Broadcast(network.AllNumbersCalledEvent{Type: network.EventAllNumbersCalled})
		// no winner, no payout: give clients a beat, then open a fresh round
		c.sched.AddTimer(c.cfg.RestartDelay, 0, c.restartAfterExhaustion)
		return
	}

	c.round.Drawn = append(c.round.Drawn, number)
	if c.mon != nil {
		c.mon.IncNumbersCalled()
	}

	drawn := make([]int, len(c.round.Drawn))
	copy(drawn, c.round.Drawn)
	c.bc.Broadcast(network.NumberCalledEvent{
		Type:          network.EventNumberCalled,
		Number:        number,
		Letter:        letter,
		CalledNumbers: drawn,
	})
}
