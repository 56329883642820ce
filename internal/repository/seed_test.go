package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFileDefault(t *testing.T) {
	data, err := LoadSeedFile("")
	require.NoError(t, err)
	assert.Len(t, data.Facilities, 5)
	assert.Len(t, data.EquipmentTypes, 10)
	require.NoError(t, data.Validate())
}

func TestLoadSeedFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	body := `{"facilities":[{"code":"FAC-100","name":"Test Hall","standard_area":"100"}],
	          "equipment_types":[{"code":"EQT-100","name":"Press","unit_area":12.5}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	data, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, data.Facilities, 1)
	assert.True(t, data.Facilities[0].StandardArea.Equal(decimal.NewFromInt(100)))
	assert.True(t, data.EquipmentTypes[0].UnitArea.Equal(decimal.RequireFromString("12.5")))

	s := NewMemoryStore()
	require.NoError(t, data.Apply(context.Background(), s))
	f, err := s.GetFacility(context.Background(), "FAC-100")
	require.NoError(t, err)
	assert.Equal(t, "Test Hall", f.Name)
}

func TestSeedValidateRejectsNonPositiveArea(t *testing.T) {
	data := SeedData{Facilities: []SeedFacility{{Code: "FAC-1", Name: "X", StandardArea: decimal.Zero}}}
	assert.Error(t, data.Validate())

	data = SeedData{EquipmentTypes: []SeedEquipment{{Code: "", Name: "X", UnitArea: decimal.NewFromInt(1)}}}
	assert.Error(t, data.Validate())
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, DefaultSeed().Apply(ctx, s))

	renamed := DefaultSeed()
	renamed.Facilities[0].Name = "Renamed"
	require.NoError(t, renamed.Apply(ctx, s))

	f, err := s.GetFacility(ctx, "FAC-001")
	require.NoError(t, err)
	assert.Equal(t, "Main Production Facility", f.Name)
}
