// Package repository defines the storage abstraction used by the
// allocation engine together with its MySQL and in-memory
// implementations.  The sentinel errors below let higher layers
// distinguish between the different failure scenarios without
// depending on a particular driver.
package repository

import "errors"

// ErrFacilityNotFound is returned when no facility exists for a code.
var ErrFacilityNotFound = errors.New("facility not found")

// ErrEquipmentNotFound is returned when no equipment type exists for a code.
var ErrEquipmentNotFound = errors.New("equipment type not found")

// ErrContractNotFound is returned when no placement contract exists for an id.
var ErrContractNotFound = errors.New("contract not found")

// ErrConflict is returned when a facility scope could not be committed
// because of concurrent writers (deadlock, lock wait timeout, stale
// version).  The whole scope may be retried.
var ErrConflict = errors.New("conflict")
