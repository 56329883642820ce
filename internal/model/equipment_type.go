package model

import "github.com/shopspring/decimal"

// EquipmentType is a catalog entry describing the per-unit floor
// footprint of one kind of process equipment.  Records are created by
// catalog seeding and are read-only to the allocation engine.
//
// Fields:
//
//	Code     – unique, immutable equipment type code (e.g. EQT-001).
//	Name     – display name.
//	UnitArea – floor area occupied by one unit, in square metres.
type EquipmentType struct {
	Code     string          // equipment_types.code
	Name     string          // equipment_types.name
	UnitArea decimal.Decimal // equipment_types.unit_area
}

// AreaFor returns the floor area consumed by quantity units of this type.
func (e EquipmentType) AreaFor(quantity int) decimal.Decimal {
	return e.UnitArea.Mul(decimal.NewFromInt(int64(quantity)))
}
