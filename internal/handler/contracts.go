package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-placement/internal/allocation"
)

// ContractHandler serves the placement contract endpoints.
type ContractHandler struct {
	Processor *allocation.Processor
}

// NewContractHandler constructs a ContractHandler and panics on a nil processor.
func NewContractHandler(p *allocation.Processor) *ContractHandler {
	if p == nil {
		panic("nil processor passed to NewContractHandler")
	}
	return &ContractHandler{Processor: p}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Create handles POST /v1/contracts.
func (h *ContractHandler) Create(c echo.Context) error {
	var body allocation.CreateContractCommand
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Processor.CreateContract(c.Request().Context(), body)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/contracts/"+out.ID.String())
	return c.JSON(http.StatusCreated, contractResponse(out))
}

// UpdateQuantity handles PUT /v1/contracts/:id.
func (h *ContractHandler) UpdateQuantity(c echo.Context) error {
	var body updateQuantityRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Processor.UpdateQuantity(c.Request().Context(), allocation.UpdateQuantityCommand{
		ContractID: c.Param("id"),
		Quantity:   body.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contractResponse(out))
}

// Deactivate handles DELETE /v1/contracts/:id.
func (h *ContractHandler) Deactivate(c echo.Context) error {
	out, err := h.Processor.DeactivateContract(c.Request().Context(), allocation.DeactivateContractCommand{
		ContractID: c.Param("id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contractResponse(out))
}

// List handles GET /v1/contracts.  ?active=true limits the result to
// active contracts.
func (h *ContractHandler) List(c echo.Context) error {
	activeOnly, err := activeParam(c)
	if err != nil {
		return badRequest(c, "active must be true or false")
	}
	items, err := h.Processor.ListContracts(c.Request().Context(), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contractDetailResponses(items))
}

// Get handles GET /v1/contracts/:id.
func (h *ContractHandler) Get(c echo.Context) error {
	d, err := h.Processor.GetContract(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contractDetailResponse(*d))
}

// ByFacility handles GET /v1/facilities/:code/contracts.
func (h *ContractHandler) ByFacility(c echo.Context) error {
	activeOnly, err := activeParam(c)
	if err != nil {
		return badRequest(c, "active must be true or false")
	}
	items, err := h.Processor.ContractsByFacility(c.Request().Context(), c.Param("code"), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contractDetailResponses(items))
}

func activeParam(c echo.Context) (bool, error) {
	v := c.QueryParam("active")
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
