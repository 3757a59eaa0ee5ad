package negotiation

/*
Pricing policy: the 2x2 base-offer lookup and the counter-offer rule.

The counter rule is deterministic and monotonic: our ceiling is the initial offer plus
the configured flexibility. A seller ask at or under the ceiling is met exactly; an ask
above it gets the ceiling and nothing more. We never propose more than the seller asked.
*/

import (
	"fmt"

	"marketbot/config"
)

// ErrMissingPrice reports a pricing table cell that is absent for the requested
// (locked, damaged) combination. It is fatal: a zero-dollar offer must never go out.
type ErrMissingPrice struct {
	Product string
	Locked  bool
	Damaged bool
}

func (e *ErrMissingPrice) Error() string {
	return fmt.Sprintf("no base offer configured for %s (locked=%v damaged=%v)", e.Product, e.Locked, e.Damaged)
}

// Policy applies the configured pricing scheme.
type Policy struct {
	Flexibility int //max concession above the initial offer
}

// NewPolicy builds a policy with the given flexibility cap.
func NewPolicy(flexibility int) *Policy {
	if flexibility < 0 {
		flexibility = 0
	}
	return &Policy{Flexibility: flexibility}
}

// BaseOffer selects the initial offer for a product from the 2x2 table on
// (locked, damaged). No interpolation between cells.
func (p *Policy) BaseOffer(prod config.Product, locked, damaged bool) (int, error) {
	var offer int
	switch {
	case locked && damaged:
		offer = prod.BaseOfferLockedDamaged
	case locked:
		offer = prod.BaseOfferLocked
	case damaged:
		offer = prod.BaseOfferUnlockedDamaged
	default:
		offer = prod.BaseOfferUnlocked
	}
	if offer <= 0 {
		return 0, &ErrMissingPrice{Product: prod.Name, Locked: locked, Damaged: damaged}
	}
	return offer, nil
}

// Ceiling is the most we will ever pay on top of the initial offer.
func (p *Policy) Ceiling(initialOffer int) int {
	return initialOffer + p.Flexibility
}

// Counter computes our response to a seller ask given our initial offer.
// The returned amount is never below the initial offer, never above the ask,
// and never above the ceiling. withinReach is false when the ask exceeds the
// ceiling, which signals a likely decline to the caller.
func (p *Policy) Counter(initialOffer, ask int) (counter int, withinReach bool) {
	ceiling := p.Ceiling(initialOffer)
	if ask <= initialOffer {
		//Seller asked for our offer or less; meet them where they are
		return ask, true
	}
	if ask <= ceiling {
		return ask, true
	}
	return ceiling, false
}
