// game/controller.go
package game

import (
	"sync"
	"time"

	"github.com/abel198523/Edel-bingo-30/broadcast"
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/monitor"
	"github.com/abel198523/Edel-bingo-30/persistence"
	"github.com/abel198523/Edel-bingo-30/session"
	"github.com/abel198523/Edel-bingo-30/timer"
)

// Config holds the round timing and stake parameters.
type Config struct {
	SelectionTime     int // seconds
	WinnerDisplayTime int // seconds
	StakeAmount       float64
	CallInterval      time.Duration
	RestartDelay      time.Duration // grace between exhaustion and the next selection
}

// Controller drives the continuously repeating round lifecycle:
// selection -> active -> winner display -> selection. All round and phase
// mutation is serialized behind mu; the only gateway call made without the
// lock is the stake debit, whose atomicity belongs to the wallet gateway.
type Controller struct {
	cfg      Config
	sessions *session.Manager
	bc       broadcast.Broadcaster
	wallet   persistence.WalletGateway
	rounds   persistence.RoundStore
	sched    *timer.TimerManager
	mon      *monitor.Monitor

	mu     sync.Mutex
	round  Round
	state  State
	caller *NumberCaller
	tickID int64
}

func NewController(cfg Config, sessions *session.Manager, bc broadcast.Broadcaster,
	wallet persistence.WalletGateway, rounds persistence.RoundStore,
	sched *timer.TimerManager, mon *monitor.Monitor) *Controller {

	c := &Controller{
		cfg:      cfg,
		sessions: sessions,
		bc:       bc,
		wallet:   wallet,
		rounds:   rounds,
		sched:    sched,
		mon:      mon,
	}
	c.round.Stake = cfg.StakeAmount
	c.caller = newNumberCaller(c)
	return c
}

// Start opens the first selection phase and begins the 1 Hz tick.
func (c *Controller) Start() {
	c.mu.Lock()
	c.setState(&selectionState{c: c})
	c.mu.Unlock()

	c.tickID = c.sched.AddTimer(time.Second, time.Second, c.onTick)
}

func (c *Controller) Stop() {
	c.sched.RemoveTimer(c.tickID)

	c.mu.Lock()
	c.caller.stop()
	c.mu.Unlock()
}

func (c *Controller) onTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != nil {
		c.state.OnTick()
	}
}

// Snapshot returns a consistent copy of the round for the init unicast.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	drawn := make([]int, len(c.round.Drawn))
	copy(drawn, c.round.Drawn)
	return Snapshot{
		Phase:         c.round.Phase.String(),
		TimeLeft:      c.round.TimeLeft,
		CalledNumbers: drawn,
		Winner:        c.round.Winner,
		RoundID:       c.round.ID,
	}
}

// SelectCard records the card a session claims. Only permitted during
// selection; the card id is opaque to the engine.
func (c *Controller) SelectCard(s *session.Session, cardID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round.Phase != PhaseSelection {
		return ErrWrongPhase
	}
	s.SelectCard(cardID)
	return nil
}

// ConfirmCard is the stake entry point. Preconditions are checked in order,
// each a distinct rejection; then the wallet debit runs with the controller
// lock released, so ticks and other sessions keep flowing while it is
// awaited. Double-spend prevention lives in the gateway's conditional
// update, not in the staked flag.
func (c *Controller) ConfirmCard(s *session.Session) (float64, error) {
	c.mu.Lock()
	if !s.IsAuthenticated() {
		c.mu.Unlock()
		return 0, ErrNotAuthenticated
	}
	if c.round.Phase != PhaseSelection {
		c.mu.Unlock()
		return 0, ErrWrongPhase
	}
	cardID := s.CardID()
	if cardID == 0 {
		c.mu.Unlock()
		return 0, ErrNoCardSelected
	}
	if s.IsStaked() {
		c.mu.Unlock()
		return 0, ErrAlreadyStaked
	}
	roundID := c.round.ID
	stake := c.round.Stake
	userID := s.UserID()
	c.mu.Unlock()

	balance, err := c.wallet.Debit(userID, stake, roundID)
	if err != nil {
		return 0, err
	}

	// once the debit landed the stake stands, even if the phase moved on
	// while we were waiting
	s.MarkStaked(balance)
	if c.mon != nil {
		c.mon.IncStakes()
		c.mon.SetStakedPlayers(c.sessions.CountStaked())
	}

	if err := c.rounds.AddParticipant(roundID, userID, cardID, stake); err != nil {
		logger.Log.Errorf("Failed to record participant (round %d, user %d): %v", roundID, userID, err)
	}
	return balance, nil
}

// ClaimBingo honors the first accepted win claim of the round. The pattern
// validity flag is trusted from the claiming client; the engine checks only
// that the round is active and the claimant staked.
func (c *Controller) ClaimBingo(s *session.Session, isValid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round.Phase != PhaseActive {
		// the round already has a winner or is between rounds
		return
	}
	if !s.IsStaked() || !isValid {
		return
	}

	c.setState(&winnerState{c: c, winner: newWinnerInfo(s)})
}

func (c *Controller) restartAfterExhaustion() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// a claim may have landed during the grace window
	if c.round.Phase == PhaseActive {
		c.setState(&selectionState{c: c})
	}
}
