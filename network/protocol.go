package network

// Client -> server message types.
const (
	MsgTypeAuth            = "auth"
	MsgTypeRegister        = "register"
	MsgTypeLogin           = "login"
	MsgTypeSelectCard      = "select_card"
	MsgTypeConfirmCard     = "confirm_card"
	MsgTypeClaimBingo      = "claim_bingo"
	MsgTypeGetBalance      = "get_balance"
	MsgTypeDeposit         = "deposit"
	MsgTypeGetTransactions = "get_transactions"
	MsgTypeGetGameHistory  = "get_game_history"
)

// Server -> client event types.
const (
	EventInit             = "init"
	EventPhaseChange      = "phase_change"
	EventTimerUpdate      = "timer_update"
	EventNumberCalled     = "number_called"
	EventAllNumbersCalled = "all_numbers_called"
	EventCardConfirmed    = "card_confirmed"
	EventBalanceUpdate    = "balance_update"
	EventError            = "error"
)

// WinnerInfo is the winner payload attached to a winner phase change.
// Prize is only present when the pot credit actually succeeded.
type WinnerInfo struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	CardID   int      `json:"cardId"`
	Prize    *float64 `json:"prize,omitempty"`
}

// PlayerInfo lists one staked player at game start.
type PlayerInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	CardID   int    `json:"cardId"`
}

type InitEvent struct {
	Type          string      `json:"type"`
	PlayerID      int64       `json:"playerId"`
	Phase         string      `json:"phase"`
	TimeLeft      int         `json:"timeLeft"`
	CalledNumbers []int       `json:"calledNumbers"`
	Winner        *WinnerInfo `json:"winner"`
	RoundID       int64       `json:"roundId"`
}

type PhaseChangeEvent struct {
	Type     string       `json:"type"`
	Phase    string       `json:"phase"`
	TimeLeft int          `json:"timeLeft"`
	RoundID  int64        `json:"roundId,omitempty"`
	Players  []PlayerInfo `json:"players,omitempty"`
	Winner   *WinnerInfo  `json:"winner,omitempty"`
}

type TimerUpdateEvent struct {
	Type     string `json:"type"`
	Phase    string `json:"phase"`
	TimeLeft int    `json:"timeLeft"`
}

type NumberCalledEvent struct {
	Type          string `json:"type"`
	Number        int    `json:"number"`
	Letter        string `json:"letter"`
	CalledNumbers []int  `json:"calledNumbers"`
}

type AllNumbersCalledEvent struct {
	Type string `json:"type"`
}

type CardConfirmedEvent struct {
	Type    string  `json:"type"`
	CardID  int     `json:"cardId"`
	Balance float64 `json:"balance"`
}

type BalanceUpdateEvent struct {
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
