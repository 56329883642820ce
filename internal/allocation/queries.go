package allocation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/facility-placement/internal/capacity"
	"github.com/iliyamo/facility-placement/internal/model"
	"github.com/iliyamo/facility-placement/internal/repository"
)

// FacilityUsage is a facility together with its area computed from the
// currently active contracts.
type FacilityUsage struct {
	Facility      model.Facility
	OccupiedArea  decimal.Decimal
	AvailableArea decimal.Decimal
}

// ListFacilities returns every facility with its current usage.  Usage is
// read without the facility lock, so it is a point-in-time view.
func (p *Processor) ListFacilities(ctx context.Context) ([]FacilityUsage, error) {
	facilities, err := p.store.ListFacilities(ctx)
	if err != nil {
		return nil, p.classify(ctx, err, "")
	}
	out := make([]FacilityUsage, 0, len(facilities))
	for _, f := range facilities {
		u, err := p.usage(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// GetFacility returns one facility with its current usage.
func (p *Processor) GetFacility(ctx context.Context, code string) (*FacilityUsage, error) {
	f, err := p.store.GetFacility(ctx, code)
	if err != nil {
		return nil, p.classify(ctx, err, code)
	}
	u, err := p.usage(ctx, *f)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListEquipmentTypes returns the equipment catalog.
func (p *Processor) ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error) {
	items, err := p.store.ListEquipmentTypes(ctx)
	if err != nil {
		return nil, p.classify(ctx, err, "")
	}
	return items, nil
}

// GetEquipmentType returns one catalog entry.
func (p *Processor) GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error) {
	e, err := p.store.GetEquipmentType(ctx, code)
	if errors.Is(err, repository.ErrEquipmentNotFound) {
		return nil, equipmentNotFound(code)
	}
	if err != nil {
		return nil, p.classify(ctx, err, "")
	}
	return e, nil
}

// ListContracts returns contracts, newest first.
func (p *Processor) ListContracts(ctx context.Context, activeOnly bool) ([]repository.ContractDetail, error) {
	items, err := p.store.ListContracts(ctx, repository.ContractFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, p.classify(ctx, err, "")
	}
	return items, nil
}

// ContractsByFacility lists the contracts of one facility.  An unknown
// facility is reported as not found rather than as an empty list.
func (p *Processor) ContractsByFacility(ctx context.Context, code string, activeOnly bool) ([]repository.ContractDetail, error) {
	if _, err := p.store.GetFacility(ctx, code); err != nil {
		return nil, p.classify(ctx, err, code)
	}
	items, err := p.store.ListContracts(ctx, repository.ContractFilter{FacilityCode: code, ActiveOnly: activeOnly})
	if err != nil {
		return nil, p.classify(ctx, err, code)
	}
	return items, nil
}

// GetContract returns a contract by its textual id.
func (p *Processor) GetContract(ctx context.Context, raw string) (*repository.ContractDetail, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, contractNotFound(raw)
	}
	d, err := p.store.GetContractDetail(ctx, id)
	if errors.Is(err, repository.ErrContractNotFound) {
		return nil, contractNotFound(raw)
	}
	if err != nil {
		return nil, p.classify(ctx, err, "")
	}
	return d, nil
}

func (p *Processor) usage(ctx context.Context, f model.Facility) (FacilityUsage, error) {
	entries, err := p.store.GetFacilityActiveContracts(ctx, f.Code)
	if err != nil {
		return FacilityUsage{}, p.classify(ctx, err, f.Code)
	}
	snap := capacity.Evaluate(f.Code, f.StandardArea, entries)
	return FacilityUsage{Facility: f, OccupiedArea: snap.OccupiedArea, AvailableArea: snap.AvailableArea}, nil
}
