// game/machine.go
package game

// State is one phase of the round lifecycle.
type State interface {
	Phase() Phase
	OnEnter()
	OnExit()
	OnTick()
}

// setState swaps the active state: the old state's OnExit runs before the
// new state's OnEnter. Callers must hold c.mu.
func (c *Controller) setState(s State) {
	if c.state != nil {
		c.state.OnExit()
	}
	c.state = s
	c.round.Phase = s.Phase()
	s.OnEnter()
}
