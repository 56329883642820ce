package queue

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/facility-placement/internal/model"
)

func factBody(t *testing.T, kind FactKind) ([]byte, ContractFact) {
	t.Helper()
	c := model.NewPlacementContract("FAC-001", "EQT-002", 5, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	f := NewContractFact(kind, c, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	b, err := json.Marshal(f)
	require.NoError(t, err)
	return b, f
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestRecorderWritesOneLinePerFact(t *testing.T) {
	rec := NewRecorder(t.TempDir(), NewMemoryDeduper())
	ctx := context.Background()

	created, f := factBody(t, FactCreated)
	deactivated, _ := factBody(t, FactDeactivated)
	require.NoError(t, rec.Handle(ctx, created))
	require.NoError(t, rec.Handle(ctx, deactivated))

	lines := readLines(t, rec.Path())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Contract created")
	assert.Contains(t, lines[0], "contract_id="+f.ContractID)
	assert.Contains(t, lines[0], "facility=FAC-001")
	assert.Contains(t, lines[0], "quantity=5")
	assert.Contains(t, lines[1], "Contract deactivated")
}

func TestRecorderSkipsRedeliveries(t *testing.T) {
	rec := NewRecorder(t.TempDir(), nil)
	ctx := context.Background()

	body, _ := factBody(t, FactUpdated)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Handle(ctx, body))
	}
	assert.Len(t, readLines(t, rec.Path()), 1)
}

func TestRecorderRejectsMalformed(t *testing.T) {
	rec := NewRecorder(t.TempDir(), nil)
	ctx := context.Background()

	assert.Error(t, rec.Handle(ctx, []byte("{not json")))
	assert.Error(t, rec.Handle(ctx, []byte(`{"kind":"created"}`)))
	_, err := os.Stat(rec.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRecorderReleasesClaimOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// A file where the log directory should be makes MkdirAll fail.
	blocked := dir + "/blocked"
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	dedup := NewMemoryDeduper()
	rec := NewRecorder(blocked, dedup)
	body, f := factBody(t, FactCreated)
	require.Error(t, rec.Handle(context.Background(), body))

	first, err := dedup.Claim(context.Background(), f.FactID)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestFactRoutingKeys(t *testing.T) {
	assert.Equal(t, []string{"contract.created", "contract.updated", "contract.deactivated"}, FactKeys)
}
