package entities

import "errors"

// Validation errors returned before any state is mutated
var (
	ErrRoundNotFound         = errors.New("round not found")
	ErrRoundNotAcceptingBets = errors.New("round is not accepting bets")
	ErrIncompleteSelection   = errors.New("selection must cover every match of the round")
	ErrUnknownMatch          = errors.New("match does not belong to the round")
	ErrInvalidOutcome        = errors.New("invalid outcome symbol")
	ErrInvalidStake          = errors.New("stake must be positive with at most 2 decimal places")
	ErrNoCombinations        = errors.New("selection produces no combinations")
	ErrTooManyVariants       = errors.New("selection produces too many variants")
	ErrUserNotFound          = errors.New("user not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
)

// Lifecycle and settlement errors
var (
	ErrInvalidTransition     = errors.New("invalid round status transition")
	ErrSelectionStillOpen    = errors.New("selection window has not elapsed")
	ErrMatchAlreadyResolved  = errors.New("match already has a result")
	ErrRoundNotResolved      = errors.New("round has unresolved matches")
	ErrInvalidCategoryConfig = errors.New("active payout category percents exceed 100")
	ErrNotEnoughTeams        = errors.New("not enough active teams to generate a round")
	ErrNoUnseenWin           = errors.New("no unseen winning coupon")
	ErrUnknownPayoutPolicy   = errors.New("unknown payout policy")
	ErrResultCountMismatch   = errors.New("result count does not match match count")
)

// Registration errors
var (
	ErrInvalidUsername = errors.New("username must be 1 to 150 characters")
	ErrUsernameTaken   = errors.New("username is already taken")
)
