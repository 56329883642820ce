package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-placement/internal/allocation"
)

// CatalogHandler serves the read-only facility and equipment endpoints.
type CatalogHandler struct {
	Processor *allocation.Processor
}

// NewCatalogHandler constructs a CatalogHandler and panics on a nil processor.
func NewCatalogHandler(p *allocation.Processor) *CatalogHandler {
	if p == nil {
		panic("nil processor passed to NewCatalogHandler")
	}
	return &CatalogHandler{Processor: p}
}

// ListFacilities handles GET /v1/facilities.
func (h *CatalogHandler) ListFacilities(c echo.Context) error {
	items, err := h.Processor.ListFacilities(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]FacilityResponse, 0, len(items))
	for _, u := range items {
		out = append(out, facilityResponse(u))
	}
	return c.JSON(http.StatusOK, out)
}

// GetFacility handles GET /v1/facilities/:code.
func (h *CatalogHandler) GetFacility(c echo.Context) error {
	u, err := h.Processor.GetFacility(c.Request().Context(), c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, facilityResponse(*u))
}

// ListEquipmentTypes handles GET /v1/equipment-types.
func (h *CatalogHandler) ListEquipmentTypes(c echo.Context) error {
	items, err := h.Processor.ListEquipmentTypes(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]EquipmentTypeResponse, 0, len(items))
	for _, e := range items {
		out = append(out, equipmentTypeResponse(e))
	}
	return c.JSON(http.StatusOK, out)
}

// GetEquipmentType handles GET /v1/equipment-types/:code.
func (h *CatalogHandler) GetEquipmentType(c echo.Context) error {
	e, err := h.Processor.GetEquipmentType(c.Request().Context(), c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, equipmentTypeResponse(*e))
}
