package host

import "github.com/reglet-dev/ledgerhost/domain/errors"

// gasMeter tracks one frame's budget. Gas reserved for a child counts as used
// until the unused part is refunded.
type gasMeter struct {
	budget uint64
	used   uint64
}

func newGasMeter(budget uint64) *gasMeter {
	return &gasMeter{budget: budget}
}

func (g *gasMeter) left() uint64 {
	return g.budget - g.used
}

// charge consumes n. A charge that does not fit exhausts the budget.
func (g *gasMeter) charge(op string, n uint64) error {
	if left := g.left(); n > left {
		g.used = g.budget
		return &errors.OutOfGasError{Operation: op, Required: n, Available: left}
	}
	g.used += n
	return nil
}

// reserve sets aside a child budget: min(limit, left), all of it when limit is
// zero. It reports whether the child received everything that was left.
func (g *gasMeter) reserve(limit uint64) (budget uint64, all bool) {
	left := g.left()
	budget = left
	if limit != 0 && limit < left {
		budget = limit
	}
	g.used += budget
	return budget, budget == left
}

// refund returns the unused part of a reservation.
func (g *gasMeter) refund(n uint64) {
	g.used -= n
}
