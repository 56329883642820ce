package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrContractInactive is returned by state transitions attempted on a
// contract that has already been deactivated.
var ErrContractInactive = errors.New("contract is inactive")

// PlacementContract commits some quantity of one equipment type to one
// facility.  While active it consumes UnitArea*Quantity of the
// facility's standard area.  Deactivation is one-way.
//
// Fields:
//
//	ID             – globally unique identifier generated at creation.
//	ContractNumber – human readable number, display only.
//	FacilityCode   – code of the facility the equipment is placed in.
//	EquipmentCode  – code of the placed equipment type.
//	Quantity       – number of units placed; always positive.
//	IsActive       – whether the contract still consumes area.
//	CreatedAt      – creation timestamp (UTC).
//	ModifiedAt     – last quantity change or deactivation (nil if never).
type PlacementContract struct {
	ID             uuid.UUID  // placement_contracts.id
	ContractNumber string     // placement_contracts.contract_number
	FacilityCode   string     // placement_contracts.facility_code
	EquipmentCode  string     // placement_contracts.equipment_code
	Quantity       int        // placement_contracts.quantity
	IsActive       bool       // placement_contracts.is_active
	CreatedAt      time.Time  // placement_contracts.created_at
	ModifiedAt     *time.Time // placement_contracts.modified_at (nullable)
}

// NewPlacementContract builds a fresh active contract stamped with now.
// Callers are expected to have validated codes and quantity already.
func NewPlacementContract(facilityCode, equipmentCode string, quantity int, now time.Time) *PlacementContract {
	id := uuid.New()
	now = now.UTC()
	return &PlacementContract{
		ID:             id,
		ContractNumber: ContractNumber(now, id),
		FacilityCode:   facilityCode,
		EquipmentCode:  equipmentCode,
		Quantity:       quantity,
		IsActive:       true,
		CreatedAt:      now,
	}
}

// ContractNumber formats the display number EPC-YYYYMMDD-XXXXXXXX from the
// creation date and the first eight hex digits of the contract id.
func ContractNumber(createdAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("EPC-%s-%s", createdAt.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// SetQuantity changes the placed quantity.  It reports whether anything
// changed; an unchanged quantity leaves ModifiedAt untouched.
func (c *PlacementContract) SetQuantity(quantity int, now time.Time) (bool, error) {
	if !c.IsActive {
		return false, ErrContractInactive
	}
	if quantity == c.Quantity {
		return false, nil
	}
	c.Quantity = quantity
	c.touch(now)
	return true, nil
}

// Deactivate moves the contract to its terminal inactive state.
func (c *PlacementContract) Deactivate(now time.Time) error {
	if !c.IsActive {
		return ErrContractInactive
	}
	c.IsActive = false
	c.touch(now)
	return nil
}

// Clone returns a deep copy so stores can hand out contracts without
// sharing the ModifiedAt pointer.
func (c *PlacementContract) Clone() *PlacementContract {
	cp := *c
	if c.ModifiedAt != nil {
		t := *c.ModifiedAt
		cp.ModifiedAt = &t
	}
	return &cp
}

func (c *PlacementContract) touch(now time.Time) {
	t := now.UTC()
	c.ModifiedAt = &t
}
