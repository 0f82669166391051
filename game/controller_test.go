package game

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/models"
	"github.com/abel198523/Edel-bingo-30/network"
	"github.com/abel198523/Edel-bingo-30/persistence"
	"github.com/abel198523/Edel-bingo-30/session"
	"github.com/abel198523/Edel-bingo-30/timer"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeConn satisfies network.Connection and drops everything.
type fakeConn struct{}

func (c *fakeConn) Send(v interface{}) error                  { return nil }
func (c *fakeConn) Close() error                              { return nil }
func (c *fakeConn) RemoteAddr() net.Addr                      { return &net.TCPAddr{} }
func (c *fakeConn) SetHeartbeat(interval time.Duration)       {}
func (c *fakeConn) ReadEnvelope() (*network.Envelope, error)  { return nil, nil }

// recorder captures every broadcast event.
type recorder struct {
	events []interface{}
}

func (r *recorder) Broadcast(v interface{})                { r.events = append(r.events, v) }
func (r *recorder) Unicast(sessionID int64, v interface{}) { r.events = append(r.events, v) }

func (r *recorder) phaseChanges() []network.PhaseChangeEvent {
	var out []network.PhaseChangeEvent
	for _, e := range r.events {
		if pc, ok := e.(network.PhaseChangeEvent); ok {
			out = append(out, pc)
		}
	}
	return out
}

func (r *recorder) countType(match func(interface{}) bool) int {
	n := 0
	for _, e := range r.events {
		if match(e) {
			n++
		}
	}
	return n
}

// fakeWallet keeps balances in memory with the same conditional-debit
// contract as the real gateway.
type fakeWallet struct {
	balances   map[int64]float64
	debits     int
	credits    int
	failCredit bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: map[int64]float64{}}
}

func (w *fakeWallet) Debit(userID int64, amount float64, roundID int64) (float64, error) {
	w.debits++
	if w.balances[userID] < amount {
		return 0, persistence.ErrInsufficientBalance
	}
	w.balances[userID] -= amount
	return w.balances[userID], nil
}

func (w *fakeWallet) Credit(userID int64, amount float64, roundID int64) (float64, error) {
	w.credits++
	if w.failCredit {
		return 0, errors.New("credit failed")
	}
	w.balances[userID] += amount
	return w.balances[userID], nil
}

func (w *fakeWallet) Deposit(userID int64, amount float64) (float64, error) {
	w.balances[userID] += amount
	return w.balances[userID], nil
}

func (w *fakeWallet) GetBalance(userID int64) (float64, error) {
	return w.balances[userID], nil
}

func (w *fakeWallet) TransactionHistory(userID int64, limit int) ([]models.TransactionRecord, error) {
	return nil, nil
}

// fakeRounds hands out incrementing round ids and tallies the pot from
// participants.
type fakeRounds struct {
	nextID       int64
	participants int
	pot          float64
	closed       []int64
}

func (r *fakeRounds) OpenRound(stake float64) (int64, error) {
	r.nextID++
	return r.nextID, nil
}

func (r *fakeRounds) AddParticipant(roundID, userID int64, cardID int, stake float64) error {
	r.participants++
	r.pot += stake
	return nil
}

func (r *fakeRounds) CloseRound(roundID, winnerUserID int64, cardID int, calledNumbers []int) (float64, error) {
	r.closed = append(r.closed, roundID)
	return r.pot, nil
}

func (r *fakeRounds) UserHistory(userID int64, limit int) ([]models.RoundHistoryEntry, error) {
	return nil, nil
}

func (r *fakeRounds) UserStats(userID int64) (*models.PlayerStats, error) {
	return nil, nil
}

type fixture struct {
	controller *Controller
	sessions   *session.Manager
	bc         *recorder
	wallet     *fakeWallet
	rounds     *fakeRounds
	clock      *clockwork.FakeClock
	sched      *timer.TimerManager
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sched := timer.NewTimerManager(clock)
	sessions := session.NewManager()
	bc := &recorder{}
	wallet := newFakeWallet()
	rounds := &fakeRounds{}

	controller := NewController(cfg, sessions, bc, wallet, rounds, sched, nil)
	return &fixture{
		controller: controller,
		sessions:   sessions,
		bc:         bc,
		wallet:     wallet,
		rounds:     rounds,
		clock:      clock,
		sched:      sched,
	}
}

func defaultConfig() Config {
	return Config{
		SelectionTime:     2,
		WinnerDisplayTime: 1,
		StakeAmount:       10,
		CallInterval:      time.Second,
		RestartDelay:      time.Second,
	}
}

// tick advances virtual time by one second and runs everything due.
func (f *fixture) tick() {
	f.clock.Advance(time.Second)
	f.sched.RunDue()
}

func (f *fixture) addPlayer(userID int64, balance float64) *session.Session {
	sess := f.sessions.Create(&fakeConn{})
	sess.Authenticate(userID, "player", balance)
	f.wallet.balances[userID] = balance
	return sess
}

func (f *fixture) stake(t *testing.T, sess *session.Session, cardID int) {
	t.Helper()
	if err := f.controller.SelectCard(sess, cardID); err != nil {
		t.Fatalf("SelectCard failed: %v", err)
	}
	if _, err := f.controller.ConfirmCard(sess); err != nil {
		t.Fatalf("ConfirmCard failed: %v", err)
	}
}

// toActive drives the fixture from selection into the active phase with
// the given sessions staked.
func (f *fixture) toActive(t *testing.T) {
	t.Helper()
	for i := 0; i < defaultConfig().SelectionTime; i++ {
		f.tick()
	}
	if got := f.controller.Snapshot().Phase; got != "active" {
		t.Fatalf("Expected active phase, got %q", got)
	}
}

func TestSelection_RestartsWithoutStakers(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	firstID := f.controller.Snapshot().RoundID
	if firstID == 0 {
		t.Fatal("Start should open a round")
	}

	f.tick()
	f.tick()

	snap := f.controller.Snapshot()
	if snap.Phase != "selection" {
		t.Fatalf("A round with no stakers should restart selection, got %q", snap.Phase)
	}
	if snap.RoundID == firstID {
		t.Fatal("The restarted selection should carry a fresh round id")
	}
}

func TestConfirmCard_PreconditionOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	guest := f.sessions.Create(&fakeConn{})
	if _, err := f.controller.ConfirmCard(guest); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Expected ErrNotAuthenticated, got %v", err)
	}

	sess := f.addPlayer(1, 100)
	if _, err := f.controller.ConfirmCard(sess); !errors.Is(err, ErrNoCardSelected) {
		t.Fatalf("Expected ErrNoCardSelected, got %v", err)
	}

	f.stake(t, sess, 5)
	if _, err := f.controller.ConfirmCard(sess); !errors.Is(err, ErrAlreadyStaked) {
		t.Fatalf("Expected ErrAlreadyStaked, got %v", err)
	}
	if f.wallet.debits != 1 {
		t.Fatalf("A rejected confirm must not reach the wallet, got %d debits", f.wallet.debits)
	}

	f.toActive(t)
	if _, err := f.controller.ConfirmCard(sess); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("Expected ErrWrongPhase outside selection, got %v", err)
	}
	if err := f.controller.SelectCard(sess, 9); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("Expected ErrWrongPhase for select outside selection, got %v", err)
	}
}

func TestConfirmCard_InsufficientBalance(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	rich := f.addPlayer(1, 50)
	poor := f.addPlayer(2, 5)
	okay := f.addPlayer(3, 20)

	f.stake(t, rich, 1)

	if err := f.controller.SelectCard(poor, 2); err != nil {
		t.Fatalf("SelectCard failed: %v", err)
	}
	if _, err := f.controller.ConfirmCard(poor); !errors.Is(err, persistence.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if poor.IsStaked() {
		t.Fatal("A failed debit must not mark the session staked")
	}

	f.stake(t, okay, 3)

	if f.wallet.balances[1] != 40 || f.wallet.balances[3] != 10 {
		t.Fatalf("Expected balances 40 and 10 after stakes, got %v and %v",
			f.wallet.balances[1], f.wallet.balances[3])
	}
	if f.wallet.balances[2] != 5 {
		t.Fatalf("A rejected stake must not move money, balance is %v", f.wallet.balances[2])
	}
	if f.sessions.CountStaked() != 2 {
		t.Fatalf("Expected 2 staked sessions, got %d", f.sessions.CountStaked())
	}
	if f.rounds.participants != 2 {
		t.Fatalf("Expected 2 recorded participants, got %d", f.rounds.participants)
	}
}

func TestClaimBingo_FirstClaimWins(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	first := f.addPlayer(1, 100)
	second := f.addPlayer(2, 100)
	f.stake(t, first, 1)
	f.stake(t, second, 2)
	f.toActive(t)

	// a claim with a false validity flag is ignored
	f.controller.ClaimBingo(first, false)
	if f.controller.Snapshot().Phase != "active" {
		t.Fatal("An invalid claim must not end the round")
	}

	f.controller.ClaimBingo(first, true)
	snap := f.controller.Snapshot()
	if snap.Phase != "winner" {
		t.Fatalf("Expected winner phase after a valid claim, got %q", snap.Phase)
	}
	if snap.Winner == nil || snap.Winner.UserID != 1 {
		t.Fatalf("Expected user 1 as winner, got %+v", snap.Winner)
	}

	// the race loser is ignored
	f.controller.ClaimBingo(second, true)
	if got := f.controller.Snapshot().Winner.UserID; got != 1 {
		t.Fatalf("A later claim must not replace the winner, got user %d", got)
	}
	if len(f.rounds.closed) != 1 {
		t.Fatalf("Expected exactly one round close, got %d", len(f.rounds.closed))
	}
}

func TestClaimBingo_UnstakedClaimIgnored(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	staked := f.addPlayer(1, 100)
	watcher := f.addPlayer(2, 100)
	f.stake(t, staked, 1)
	f.toActive(t)

	f.controller.ClaimBingo(watcher, true)
	if got := f.controller.Snapshot().Phase; got != "active" {
		t.Fatalf("A claim from an unstaked session must be ignored, got %q", got)
	}
}

func TestWinner_PayoutAndPrize(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	first := f.addPlayer(1, 100)
	second := f.addPlayer(2, 100)
	third := f.addPlayer(3, 100)
	f.stake(t, first, 1)
	f.stake(t, second, 2)
	f.stake(t, third, 3)
	f.toActive(t)

	f.controller.ClaimBingo(second, true)

	snap := f.controller.Snapshot()
	if snap.Winner == nil || snap.Winner.Prize == nil {
		t.Fatal("A successful payout should attach the prize to the winner")
	}
	if *snap.Winner.Prize != 30 {
		t.Fatalf("Expected prize 30 from three stakes of 10, got %v", *snap.Winner.Prize)
	}
	if f.wallet.balances[2] != 120 {
		t.Fatalf("Expected winner balance 120, got %v", f.wallet.balances[2])
	}
	if second.Balance() != 120 {
		t.Fatalf("Winning session should see the credited balance, got %v", second.Balance())
	}

	// winner display counts down back into selection
	f.tick()
	if got := f.controller.Snapshot().Phase; got != "selection" {
		t.Fatalf("Expected selection after winner display, got %q", got)
	}
}

func TestWinner_FailedCreditOmitsPrize(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	sess := f.addPlayer(1, 100)
	f.stake(t, sess, 1)
	f.toActive(t)

	f.wallet.failCredit = true
	f.controller.ClaimBingo(sess, true)

	snap := f.controller.Snapshot()
	if snap.Phase != "winner" {
		t.Fatalf("Expected winner phase, got %q", snap.Phase)
	}
	if snap.Winner == nil {
		t.Fatal("Winner identity should still be displayed")
	}
	if snap.Winner.Prize != nil {
		t.Fatal("A failed credit must not report a prize")
	}
	if f.wallet.balances[1] != 90 {
		t.Fatalf("Balance should hold the staked amount only, got %v", f.wallet.balances[1])
	}
}

func TestExhaustion_RestartsSelection(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	sess := f.addPlayer(1, 100)
	f.stake(t, sess, 1)
	f.toActive(t)

	// drain the whole pool, then one extra call to report exhaustion
	for i := 0; i < MaxNumber+1; i++ {
		f.tick()
	}

	called := f.bc.countType(func(e interface{}) bool {
		_, ok := e.(network.NumberCalledEvent)
		return ok
	})
	if called != MaxNumber {
		t.Fatalf("Expected all %d numbers called, got %d", MaxNumber, called)
	}

	exhausted := f.bc.countType(func(e interface{}) bool {
		_, ok := e.(network.AllNumbersCalledEvent)
		return ok
	})
	if exhausted != 1 {
		t.Fatalf("Exhaustion should be reported exactly once, got %d", exhausted)
	}

	// still active during the grace window
	if got := f.controller.Snapshot().Phase; got != "active" {
		t.Fatalf("Expected active during the grace window, got %q", got)
	}

	f.tick()
	snap := f.controller.Snapshot()
	if snap.Phase != "selection" {
		t.Fatalf("Expected selection after the grace window, got %q", snap.Phase)
	}
	if len(snap.CalledNumbers) != 0 {
		t.Fatal("A fresh selection should carry no called numbers")
	}
	if snap.Winner != nil {
		t.Fatal("An exhausted round has no winner")
	}
}

func TestExhaustion_ClaimDuringGraceStillWins(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	sess := f.addPlayer(1, 100)
	f.stake(t, sess, 1)
	f.toActive(t)

	for i := 0; i < MaxNumber+1; i++ {
		f.tick()
	}

	// exhaustion announced but the restart has not fired yet
	f.controller.ClaimBingo(sess, true)
	if got := f.controller.Snapshot().Phase; got != "winner" {
		t.Fatalf("A claim during the grace window should still win, got %q", got)
	}

	// the pending restart must not clobber the winner display
	f.clock.Advance(time.Second)
	f.sched.RunDue()
	if got := f.controller.Snapshot().Phase; got == "active" {
		t.Fatal("The exhaustion restart must not re-enter the round")
	}
}

func TestActive_ListsStakedPlayers(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.Start()

	staked := f.addPlayer(1, 100)
	f.addPlayer(2, 100)
	f.stake(t, staked, 7)
	f.toActive(t)

	var active *network.PhaseChangeEvent
	for _, pc := range f.bc.phaseChanges() {
		if pc.Phase == "active" {
			pc := pc
			active = &pc
		}
	}
	if active == nil {
		t.Fatal("Expected an active phase_change broadcast")
	}
	if len(active.Players) != 1 {
		t.Fatalf("Expected only staked players listed, got %d", len(active.Players))
	}
	if active.Players[0].CardID != 7 {
		t.Fatalf("Expected the staked card id 7, got %d", active.Players[0].CardID)
	}
}
