package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/facility-placement/internal/capacity"
	"github.com/iliyamo/facility-placement/internal/model"
)

// Store is the storage collaborator of the allocation engine.  Plain
// lookups may run outside any lock; every write goes through
// WithinFacility so that loading, evaluating and committing happen
// under one serialization boundary per facility.
type Store interface {
	GetFacility(ctx context.Context, code string) (*model.Facility, error)
	ListFacilities(ctx context.Context) ([]model.Facility, error)
	GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error)
	ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error)
	GetContractDetail(ctx context.Context, id uuid.UUID) (*ContractDetail, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]ContractDetail, error)
	GetFacilityActiveContracts(ctx context.Context, code string) ([]capacity.Entry, error)

	// WithinFacility runs fn inside a transactional scope that holds the
	// facility exclusively.  Writes made through the scope are committed
	// when fn returns nil and discarded otherwise.  ErrFacilityNotFound
	// is returned without calling fn when the facility does not exist.
	WithinFacility(ctx context.Context, code string, fn func(ctx context.Context, scope FacilityScope) error) error

	// EnsureFacility and EnsureEquipmentType insert catalog records when
	// their code is not yet known.  Existing records are left untouched.
	EnsureFacility(ctx context.Context, f model.Facility) error
	EnsureEquipmentType(ctx context.Context, e model.EquipmentType) error
}

// FacilityScope is the view of one locked facility handed to
// WithinFacility callbacks.
type FacilityScope interface {
	Facility() model.Facility
	GetFacilityActiveContracts(ctx context.Context) ([]capacity.Entry, error)
	GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error)
	SaveContract(ctx context.Context, c *model.PlacementContract) error
}

// ContractFilter narrows ListContracts.  Zero value lists everything.
type ContractFilter struct {
	FacilityCode string
	ActiveOnly   bool
}

// ContractDetail is a contract joined with its facility and equipment
// type names.  It backs the read endpoints.
type ContractDetail struct {
	Contract      model.PlacementContract
	FacilityName  string
	EquipmentName string
	UnitArea      decimal.Decimal
}

// TotalArea returns the area the contract consumes while active.
func (d ContractDetail) TotalArea() decimal.Decimal {
	return d.UnitArea.Mul(decimal.NewFromInt(int64(d.Contract.Quantity)))
}

// lessContract orders contracts newest first, then by id for stability.
func lessContract(a, b model.PlacementContract) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// timeOrNil returns nil for a nil pointer, otherwise the UTC time.
func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
