// Package reward holds the rules that turn a submitted waste scan into
// points. Points are computed once when the scan is created and stored on the
// scan row; they are never recalculated, even if the category is repriced
// later.
package reward

import "github.com/pkg/errors"

var (
	ErrQuantity   = errors.New("quantity must be at least 1")
	ErrConfidence = errors.New("ml_confidence must be between 0.0 and 1.0")
)

// bonusConfidenceThreshold is the ML confidence above which a scan earns
// bonus points.
const bonusConfidenceThreshold = 0.9

// Points holds the immutable point values awarded to a single scan.
type Points struct {
	Awarded int
	Bonus   int
}

// Total is the amount added to the owning user's running point total.
func (p Points) Total() int {
	return p.Awarded + p.Bonus
}

// Compute calculates the points for a scan of quantity items in a category
// worth pointsPerItem each. mlConfidence is nil when the scan was entered
// manually; a confidence above 0.9 earns a 10% bonus, rounded down.
func Compute(pointsPerItem int, quantity int, mlConfidence *float64) (Points, error) {
	if quantity < 1 {
		return Points{}, ErrQuantity
	}
	if mlConfidence != nil && (*mlConfidence < 0 || *mlConfidence > 1) {
		return Points{}, ErrConfidence
	}

	base := pointsPerItem * quantity
	bonus := 0
	if mlConfidence != nil && *mlConfidence > bonusConfidenceThreshold {
		bonus = base / 10
	}
	return Points{Awarded: base, Bonus: bonus}, nil
}
