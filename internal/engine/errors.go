package engine

import "errors"

var (
	ErrWrongPhase         = errors.New("action not allowed in current phase")
	ErrLocked             = errors.New("roster and deck size are locked for this game")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrDuplicatePlayer    = errors.New("duplicate player")
	ErrInvalidPlayerName  = errors.New("invalid player name")
	ErrTooFewPlayers      = errors.New("not enough players")
	ErrNegativeValue      = errors.New("value must not be negative")
	ErrBlindNotAllowed    = errors.New("blind bidding not allowed")
	ErrUnknownAction      = errors.New("unknown action")
	ErrUnknownSpecialGame = errors.New("unknown special game")
	ErrUnknownStageType   = errors.New("unknown stage type")
	ErrInvalidDeckSize    = errors.New("invalid deck size")
	ErrRoundOutOfRange    = errors.New("round outside configured stages")
	ErrInvalidStages      = errors.New("invalid stage config")
)
