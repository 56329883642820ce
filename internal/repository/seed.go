package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/facility-placement/internal/model"
)

// SeedData is the catalog and registry loaded once at startup.  The JSON
// form is what SEED_FILE points to.
type SeedData struct {
	Facilities     []SeedFacility  `json:"facilities"`
	EquipmentTypes []SeedEquipment `json:"equipment_types"`
}

// SeedFacility is one facility entry of a seed file.
type SeedFacility struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	StandardArea decimal.Decimal `json:"standard_area"`
}

// SeedEquipment is one equipment type entry of a seed file.
type SeedEquipment struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	UnitArea decimal.Decimal `json:"unit_area"`
}

// DefaultSeed returns the built-in registry of five facilities and the
// catalog of ten equipment types.
func DefaultSeed() SeedData {
	return SeedData{
		Facilities: []SeedFacility{
			{Code: "FAC-001", Name: "Main Production Facility", StandardArea: decimal.NewFromInt(10000)},
			{Code: "FAC-002", Name: "Secondary Production Facility", StandardArea: decimal.NewFromInt(7500)},
			{Code: "FAC-003", Name: "North Wing Facility", StandardArea: decimal.NewFromInt(5000)},
			{Code: "FAC-004", Name: "South Wing Facility", StandardArea: decimal.NewFromInt(5000)},
			{Code: "FAC-005", Name: "Research & Development Facility", StandardArea: decimal.NewFromInt(3000)},
		},
		EquipmentTypes: []SeedEquipment{
			{Code: "EQT-001", Name: "Industrial Lathe", UnitArea: decimal.NewFromInt(25)},
			{Code: "EQT-002", Name: "CNC Milling Machine", UnitArea: decimal.NewFromInt(30)},
			{Code: "EQT-003", Name: "3D Printer", UnitArea: decimal.NewFromInt(10)},
			{Code: "EQT-004", Name: "Assembly Robot", UnitArea: decimal.NewFromInt(40)},
			{Code: "EQT-005", Name: "Quality Control Station", UnitArea: decimal.NewFromInt(15)},
			{Code: "EQT-006", Name: "Packaging Machine", UnitArea: decimal.NewFromInt(35)},
			{Code: "EQT-007", Name: "Welding Station", UnitArea: decimal.NewFromInt(20)},
			{Code: "EQT-008", Name: "Paint Booth", UnitArea: decimal.NewFromInt(50)},
			{Code: "EQT-009", Name: "Testing Equipment", UnitArea: decimal.NewFromInt(18)},
			{Code: "EQT-010", Name: "Storage Rack System", UnitArea: decimal.NewFromInt(60)},
		},
	}
}

// LoadSeedFile reads a JSON seed file.  An empty path yields DefaultSeed.
func LoadSeedFile(path string) (SeedData, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSeed(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("read seed file: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return SeedData{}, fmt.Errorf("parse seed file: %w", err)
	}
	return data, nil
}

// Validate rejects entries with empty codes or names and non-positive areas.
func (s SeedData) Validate() error {
	for _, f := range s.Facilities {
		if strings.TrimSpace(f.Code) == "" || strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("seed: facility %q: code and name are required", f.Code)
		}
		if !f.StandardArea.IsPositive() {
			return fmt.Errorf("seed: facility %q: standard area must be greater than zero", f.Code)
		}
	}
	for _, e := range s.EquipmentTypes {
		if strings.TrimSpace(e.Code) == "" || strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("seed: equipment type %q: code and name are required", e.Code)
		}
		if !e.UnitArea.IsPositive() {
			return fmt.Errorf("seed: equipment type %q: area must be greater than zero", e.Code)
		}
	}
	return nil
}

// Apply validates the seed and inserts every record that is not yet
// present in the store.  Running it twice is harmless.
func (s SeedData) Apply(ctx context.Context, store Store) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, f := range s.Facilities {
		if err := store.EnsureFacility(ctx, model.Facility{Code: f.Code, Name: f.Name, StandardArea: f.StandardArea}); err != nil {
			return fmt.Errorf("seed facility %s: %w", f.Code, err)
		}
	}
	for _, e := range s.EquipmentTypes {
		if err := store.EnsureEquipmentType(ctx, model.EquipmentType{Code: e.Code, Name: e.Name, UnitArea: e.UnitArea}); err != nil {
			return fmt.Errorf("seed equipment type %s: %w", e.Code, err)
		}
	}
	return nil
}
