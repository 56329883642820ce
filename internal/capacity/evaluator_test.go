package capacity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluate(t *testing.T) {
	entries := []Entry{
		{ContractID: uuid.New(), UnitArea: d("25"), Quantity: 2},
		{ContractID: uuid.New(), UnitArea: d("10.5"), Quantity: 3},
	}
	snap := Evaluate("FAC-001", d("100"), entries)

	assert.Equal(t, "FAC-001", snap.FacilityCode)
	assert.True(t, snap.OccupiedArea.Equal(d("81.5")), snap.OccupiedArea.String())
	assert.True(t, snap.AvailableArea.Equal(d("18.5")), snap.AvailableArea.String())
}

func TestEvaluateEmpty(t *testing.T) {
	snap := Evaluate("FAC-002", d("7500"), nil)
	assert.True(t, snap.OccupiedArea.IsZero())
	assert.True(t, snap.AvailableArea.Equal(d("7500")))
}

func TestAdmit(t *testing.T) {
	cases := []struct {
		name      string
		delta     string
		available string
		want      bool
	}{
		{"fits exactly", "25", "25", true},
		{"fits", "10", "25", true},
		{"too large", "25.01", "25", false},
		{"nothing available", "25", "0", false},
		{"decrease always fits", "-50", "0", true},
		{"zero always fits", "0", "-1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Admit(d(tc.delta), d(tc.available)))
		})
	}
}

func TestUpdateDelta(t *testing.T) {
	assert.True(t, UpdateDelta(d("25"), 4, 3).Equal(d("-25")))
	assert.True(t, UpdateDelta(d("12.5"), 2, 6).Equal(d("50")))
	assert.True(t, UpdateDelta(d("12.5"), 2, 2).IsZero())
}
