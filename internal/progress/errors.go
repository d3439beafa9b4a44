package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrLevelDecrease is returned when a write would lower the upgrade level.
	ErrLevelDecrease = errors.New("upgrade level cannot decrease")

	// ErrNegativeAmount is returned for a negative spend.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// InsufficientFundsError reports a purchase the balance cannot cover.
// It is recoverable: nothing was changed.
type InsufficientFundsError struct {
	Cost     int64
	Balance  int64
	Shortage int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d more (cost %d, balance %d)", e.Shortage, e.Cost, e.Balance)
}

// IsInsufficientFunds returns true if err is or wraps an
// InsufficientFundsError. Uses errors.As to handle wrapped errors.
func IsInsufficientFunds(err error) bool {
	var ie *InsufficientFundsError
	return errors.As(err, &ie)
}

// Shortage returns the shortage carried by err, or 0.
func Shortage(err error) int64 {
	var ie *InsufficientFundsError
	if errors.As(err, &ie) {
		return ie.Shortage
	}
	return 0
}
