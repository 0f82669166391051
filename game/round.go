// game/round.go
package game

import (
	"github.com/abel198523/Edel-bingo-30/network"
)

// Phase 表示轮次生命周期的阶段
type Phase int

const (
	PhaseSelection Phase = iota
	PhaseActive
	PhaseWinner
)

func (p Phase) String() string {
	switch p {
	case PhaseSelection:
		return "selection"
	case PhaseActive:
		return "active"
	case PhaseWinner:
		return "winner"
	}
	return "unknown"
}

// Round is the single process-wide round state. It is owned by the
// Controller and mutated only under its lock.
type Round struct {
	ID       int64
	Phase    Phase
	TimeLeft int // seconds; -1 while numbers are being called
	Stake    float64
	Pool     []int // all callable numbers, populated at active entry
	Drawn    []int // append-only within a round
	Winner   *network.WinnerInfo
}

// Snapshot is a consistent copy of the round for the init unicast.
type Snapshot struct {
	Phase         string
	TimeLeft      int
	CalledNumbers []int
	Winner        *network.WinnerInfo
	RoundID       int64
}
