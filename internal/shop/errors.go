package shop

import (
	"errors"

	"github.com/roach88/idle/internal/animate"
)

var (
	// ErrUnknownItem is returned for an id the catalog does not sell.
	ErrUnknownItem = errors.New("unknown shop item")

	// ErrAlreadyOwned is returned when buying a one-time unlock twice.
	ErrAlreadyOwned = errors.New("already owned")

	// ErrMaxLevel is returned when the upgrade is at its current cap.
	ErrMaxLevel = errors.New("upgrade at max level")

	// ErrLocked is returned when an item's level requirement is not met.
	ErrLocked = errors.New("item locked")

	// ErrPurchaseInProgress is returned while another purchase is animating.
	ErrPurchaseInProgress = animate.ErrPurchaseInProgress
)

// IsRejection reports whether err is a no-op rejection: the purchase was
// refused before any cost was computed and nothing is shown to the player.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyOwned) ||
		errors.Is(err, ErrMaxLevel) ||
		errors.Is(err, ErrLocked) ||
		errors.Is(err, ErrPurchaseInProgress)
}
