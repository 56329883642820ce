package model

import "github.com/shopspring/decimal"

// Facility is a production location with a fixed floor-area budget.
// Occupied and available area are never stored on the facility; they
// are computed from the active placement contracts that reference it.
//
// Fields:
//
//	Code         – unique, immutable facility code (e.g. FAC-001).
//	Name         – display name.
//	StandardArea – total floor area, the capacity ceiling.
type Facility struct {
	Code         string          // facilities.code
	Name         string          // facilities.name
	StandardArea decimal.Decimal // facilities.standard_area
}
