// Package capacity computes occupied and available floor area for a
// facility and decides whether a prospective area change is admissible.
// Everything here is pure: no storage, no locking, no messaging.
package capacity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one active contract's contribution as seen by the evaluator:
// the resolved unit area of its equipment type and the placed quantity.
type Entry struct {
	ContractID uuid.UUID
	UnitArea   decimal.Decimal
	Quantity   int
}

// Area returns UnitArea*Quantity.
func (e Entry) Area() decimal.Decimal {
	return e.UnitArea.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Snapshot is the capacity picture of a facility at evaluation time.
type Snapshot struct {
	FacilityCode  string
	StandardArea  decimal.Decimal
	OccupiedArea  decimal.Decimal
	AvailableArea decimal.Decimal
}

// Occupied sums the contributions of the given active entries.
func Occupied(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Area())
	}
	return total
}

// Evaluate builds a Snapshot for a facility from its active entries.
func Evaluate(facilityCode string, standardArea decimal.Decimal, entries []Entry) Snapshot {
	occupied := Occupied(entries)
	return Snapshot{
		FacilityCode:  facilityCode,
		StandardArea:  standardArea,
		OccupiedArea:  occupied,
		AvailableArea: standardArea.Sub(occupied),
	}
}

// Admit reports whether a change of delta square metres fits into the
// available area.  Decreases and zero changes always fit.
func Admit(delta, available decimal.Decimal) bool {
	if !delta.IsPositive() {
		return true
	}
	return delta.LessThanOrEqual(available)
}

// UpdateDelta returns the signed area change of resizing a contract
// from oldQty to newQty units of the given unit area.
func UpdateDelta(unitArea decimal.Decimal, oldQty, newQty int) decimal.Decimal {
	return unitArea.Mul(decimal.NewFromInt(int64(newQty - oldQty)))
}
