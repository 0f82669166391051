// game/errors.go
package game

import "errors"

// Stake rejections, checked in this order by ConfirmCard. Each is reported
// only to the requesting session; the round is unaffected.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrWrongPhase       = errors.New("wrong phase")
	ErrNoCardSelected   = errors.New("no card selected")
	ErrAlreadyStaked    = errors.New("already staked")
)
