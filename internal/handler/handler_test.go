package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/facility-placement/internal/allocation"
	"github.com/iliyamo/facility-placement/internal/lock"
	"github.com/iliyamo/facility-placement/internal/model"
	"github.com/iliyamo/facility-placement/internal/repository"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureFacility(ctx, model.Facility{Code: "FAC-001", Name: "Main", StandardArea: decimal.NewFromInt(100)}))
	require.NoError(t, store.EnsureEquipmentType(ctx, model.EquipmentType{Code: "EQT-001", Name: "Press", UnitArea: decimal.NewFromInt(25)}))

	p := allocation.NewProcessor(store, lock.NewLocalLocker(), nil, allocation.Options{})
	contracts := NewContractHandler(p)
	catalog := NewCatalogHandler(p)

	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/v1/facilities", catalog.ListFacilities)
	e.GET("/v1/facilities/:code", catalog.GetFacility)
	e.GET("/v1/facilities/:code/contracts", contracts.ByFacility)
	e.GET("/v1/equipment-types", catalog.ListEquipmentTypes)
	e.GET("/v1/equipment-types/:code", catalog.GetEquipmentType)
	e.GET("/v1/contracts", contracts.List)
	e.GET("/v1/contracts/:id", contracts.Get)
	e.POST("/v1/contracts", contracts.Create)
	e.PUT("/v1/contracts/:id", contracts.UpdateQuantity)
	e.DELETE("/v1/contracts/:id", contracts.Deactivate)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(newTestEcho(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestContractLifecycleOverHTTP(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-001","quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ContractResponse](t, rec)
	assert.Equal(t, 4, created.Quantity)
	assert.True(t, created.IsActive)
	assert.Equal(t, "/v1/contracts/"+created.ID, rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-001","quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[map[string]any](t, rec)
	assert.Equal(t, allocation.CodeInsufficientArea, problem["error"])
	assert.Equal(t, "FAC-001", problem["facility_code"])
	assert.Equal(t, "25", problem["required_area"])
	assert.Equal(t, "0", problem["available_area"])

	rec = do(e, http.MethodPut, "/v1/contracts/"+created.ID, `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[ContractResponse](t, rec).Quantity)

	rec = do(e, http.MethodGet, "/v1/facilities/FAC-001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"FAC-001","name":"Main","standard_area":100,"occupied_area":75,"available_area":25}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/v1/contracts/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ContractResponse](t, rec)
	assert.Equal(t, "Main", got.FacilityName)
	assert.Equal(t, "Press", got.EquipmentName)
	require.NotNil(t, got.TotalArea)
	assert.True(t, got.TotalArea.Equal(decimal.NewFromInt(75)))

	rec = do(e, http.MethodDelete, "/v1/contracts/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[ContractResponse](t, rec).IsActive)

	rec = do(e, http.MethodDelete, "/v1/contracts/"+created.ID, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, allocation.CodeAlreadyDeactivated, decode[map[string]any](t, rec)["error"])

	rec = do(e, http.MethodPut, "/v1/contracts/"+created.ID, `{"quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, allocation.CodeContractInactive, decode[map[string]any](t, rec)["error"])
}

func TestErrorStatuses(t *testing.T) {
	e := newTestEcho(t)
	cases := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"unknown facility", http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-999","equipment_code":"EQT-001","quantity":1}`, http.StatusNotFound, allocation.CodeFacilityNotFound},
		{"unknown equipment", http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-999","quantity":1}`, http.StatusNotFound, allocation.CodeEquipmentNotFound},
		{"bad quantity", http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-001","quantity":1001}`, http.StatusBadRequest, allocation.CodeInvalidInput},
		{"bad code", http.MethodPost, "/v1/contracts", `{"facility_code":"fac 1","equipment_code":"EQT-001","quantity":1}`, http.StatusBadRequest, allocation.CodeInvalidInput},
		{"malformed body", http.MethodPost, "/v1/contracts", `{"quantity":"many"}`, http.StatusBadRequest, allocation.CodeInvalidInput},
		{"unknown contract", http.MethodGet, "/v1/contracts/5b0c7c2e-0000-4000-8000-000000000000", "", http.StatusNotFound, allocation.CodeContractNotFound},
		{"non uuid contract", http.MethodDelete, "/v1/contracts/abc", "", http.StatusNotFound, allocation.CodeContractNotFound},
		{"unknown facility read", http.MethodGet, "/v1/facilities/FAC-404", "", http.StatusNotFound, allocation.CodeFacilityNotFound},
		{"unknown facility contracts", http.MethodGet, "/v1/facilities/FAC-404/contracts", "", http.StatusNotFound, allocation.CodeFacilityNotFound},
		{"bad active flag", http.MethodGet, "/v1/contracts?active=maybe", "", http.StatusBadRequest, allocation.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestValidationFieldsAreReported(t *testing.T) {
	rec := do(newTestEcho(t), http.MethodPost, "/v1/contracts", `{"facility_code":"","equipment_code":"eqt","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	fields := map[string]bool{}
	for _, f := range body.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"facility_code": true, "equipment_code": true, "quantity": true}, fields)
}

func TestListings(t *testing.T) {
	e := newTestEcho(t)
	rec := do(e, http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-001","quantity":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[ContractResponse](t, rec)
	rec = do(e, http.MethodPost, "/v1/contracts", `{"facility_code":"FAC-001","equipment_code":"EQT-001","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/v1/contracts/"+first.ID, "").Code)

	assert.Len(t, decode[[]ContractResponse](t, do(e, http.MethodGet, "/v1/contracts", "")), 2)
	active := decode[[]ContractResponse](t, do(e, http.MethodGet, "/v1/contracts?active=true", ""))
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Quantity)
	assert.Len(t, decode[[]ContractResponse](t, do(e, http.MethodGet, "/v1/facilities/FAC-001/contracts?active=false", "")), 2)

	facilities := decode[[]FacilityResponse](t, do(e, http.MethodGet, "/v1/facilities", ""))
	require.Len(t, facilities, 1)
	assert.True(t, facilities[0].OccupiedArea.Equal(decimal.NewFromInt(50)))

	equipment := decode[[]EquipmentTypeResponse](t, do(e, http.MethodGet, "/v1/equipment-types", ""))
	require.Len(t, equipment, 1)
	assert.Equal(t, "EQT-001", equipment[0].Code)

	rec = do(e, http.MethodGet, "/v1/equipment-types/EQT-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(allocation.KindConcurrencyConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(allocation.KindUnexpected))
}
