package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/facility-placement/internal/allocation"
	"github.com/iliyamo/facility-placement/internal/model"
	"github.com/iliyamo/facility-placement/internal/repository"
)

// Areas are rendered as JSON numbers.
func init() { decimal.MarshalJSONWithoutQuotes = true }

// FacilityResponse is a facility with its current area usage.
type FacilityResponse struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	StandardArea  decimal.Decimal `json:"standard_area"`
	OccupiedArea  decimal.Decimal `json:"occupied_area"`
	AvailableArea decimal.Decimal `json:"available_area"`
}

func facilityResponse(u allocation.FacilityUsage) FacilityResponse {
	return FacilityResponse{
		Code:          u.Facility.Code,
		Name:          u.Facility.Name,
		StandardArea:  u.Facility.StandardArea,
		OccupiedArea:  u.OccupiedArea,
		AvailableArea: u.AvailableArea,
	}
}

// EquipmentTypeResponse is one catalog entry.
type EquipmentTypeResponse struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	UnitArea decimal.Decimal `json:"unit_area"`
}

func equipmentTypeResponse(e model.EquipmentType) EquipmentTypeResponse {
	return EquipmentTypeResponse{Code: e.Code, Name: e.Name, UnitArea: e.UnitArea}
}

// ContractResponse is a placement contract.  Names and total area are
// present on read endpoints, which join the catalog.
type ContractResponse struct {
	ID             string           `json:"id"`
	ContractNumber string           `json:"contract_number"`
	FacilityCode   string           `json:"facility_code"`
	FacilityName   string           `json:"facility_name,omitempty"`
	EquipmentCode  string           `json:"equipment_code"`
	EquipmentName  string           `json:"equipment_name,omitempty"`
	Quantity       int              `json:"quantity"`
	TotalArea      *decimal.Decimal `json:"total_area,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	ModifiedAt     *time.Time       `json:"modified_at,omitempty"`
}

func contractResponse(c *model.PlacementContract) ContractResponse {
	return ContractResponse{
		ID:             c.ID.String(),
		ContractNumber: c.ContractNumber,
		FacilityCode:   c.FacilityCode,
		EquipmentCode:  c.EquipmentCode,
		Quantity:       c.Quantity,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		ModifiedAt:     c.ModifiedAt,
	}
}

func contractDetailResponse(d repository.ContractDetail) ContractResponse {
	r := contractResponse(&d.Contract)
	total := d.TotalArea()
	r.FacilityName = d.FacilityName
	r.EquipmentName = d.EquipmentName
	r.TotalArea = &total
	return r
}

func contractDetailResponses(items []repository.ContractDetail) []ContractResponse {
	out := make([]ContractResponse, 0, len(items))
	for _, d := range items {
		out = append(out, contractDetailResponse(d))
	}
	return out
}
