package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/facility-placement/internal/capacity"
	"github.com/iliyamo/facility-placement/internal/model"
)

// MemoryStore keeps catalog, registry and ledger in process memory.  It
// is used when STORE_BACKEND=memory and by tests.  Each facility has its
// own mutex held for the whole WithinFacility callback; writes are
// buffered in the scope and applied only when the callback succeeds.
type MemoryStore struct {
	mu         sync.RWMutex
	facilities map[string]model.Facility
	equipment  map[string]model.EquipmentType
	contracts  map[uuid.UUID]*model.PlacementContract

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facilities: make(map[string]model.Facility),
		equipment:  make(map[string]model.EquipmentType),
		contracts:  make(map[uuid.UUID]*model.PlacementContract),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) GetFacility(ctx context.Context, code string) (*model.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facilities[code]
	if !ok {
		return nil, ErrFacilityNotFound
	}
	return &f, nil
}

func (s *MemoryStore) ListFacilities(ctx context.Context) ([]model.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Facility, 0, len(s.facilities))
	for _, f := range s.facilities {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.equipment[code]
	if !ok {
		return nil, ErrEquipmentNotFound
	}
	return &e, nil
}

func (s *MemoryStore) ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EquipmentType, 0, len(s.equipment))
	for _, e := range s.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) GetContractDetail(ctx context.Context, id uuid.UUID) (*ContractDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	d := s.detailLocked(c)
	return &d, nil
}

func (s *MemoryStore) ListContracts(ctx context.Context, filter ContractFilter) ([]ContractDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ContractDetail, 0)
	for _, c := range s.contracts {
		if filter.FacilityCode != "" && c.FacilityCode != filter.FacilityCode {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, s.detailLocked(c))
	}
	sort.Slice(out, func(i, j int) bool { return lessContract(out[i].Contract, out[j].Contract) })
	return out, nil
}

func (s *MemoryStore) GetFacilityActiveContracts(ctx context.Context, code string) ([]capacity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeEntriesLocked(code, nil), nil
}

func (s *MemoryStore) EnsureFacility(ctx context.Context, f model.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facilities[f.Code]; !ok {
		s.facilities[f.Code] = f
	}
	return nil
}

func (s *MemoryStore) EnsureEquipmentType(ctx context.Context, e model.EquipmentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[e.Code]; !ok {
		s.equipment[e.Code] = e
	}
	return nil
}

// WithinFacility serializes callers on the facility's mutex and applies
// the scope's buffered writes atomically on success.
func (s *MemoryStore) WithinFacility(ctx context.Context, code string, fn func(ctx context.Context, scope FacilityScope) error) error {
	l := s.facilityLock(code)
	l.Lock()
	defer l.Unlock()

	f, err := s.GetFacility(ctx, code)
	if err != nil {
		return err
	}
	scope := &memoryScope{store: s, facility: *f, pending: make(map[uuid.UUID]*model.PlacementContract)}
	if err := fn(ctx, scope); err != nil {
		return err
	}
	if len(scope.pending) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range scope.pending {
		s.contracts[id] = c
	}
	return nil
}

func (s *MemoryStore) facilityLock(code string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.Mutex{}
		s.locks[code] = l
	}
	return l
}

// detailLocked must be called with s.mu held.
func (s *MemoryStore) detailLocked(c *model.PlacementContract) ContractDetail {
	d := ContractDetail{Contract: *c.Clone()}
	if f, ok := s.facilities[c.FacilityCode]; ok {
		d.FacilityName = f.Name
	}
	if e, ok := s.equipment[c.EquipmentCode]; ok {
		d.EquipmentName = e.Name
		d.UnitArea = e.UnitArea
	}
	return d
}

// activeEntriesLocked must be called with s.mu held.  Pending writes of
// an open scope override committed contracts.
func (s *MemoryStore) activeEntriesLocked(code string, pending map[uuid.UUID]*model.PlacementContract) []capacity.Entry {
	var out []capacity.Entry
	add := func(c *model.PlacementContract) {
		if c.FacilityCode != code || !c.IsActive {
			return
		}
		e, ok := s.equipment[c.EquipmentCode]
		if !ok {
			return
		}
		out = append(out, capacity.Entry{ContractID: c.ID, UnitArea: e.UnitArea, Quantity: c.Quantity})
	}
	for id, c := range s.contracts {
		if _, overridden := pending[id]; overridden {
			continue
		}
		add(c)
	}
	for _, c := range pending {
		add(c)
	}
	return out
}

type memoryScope struct {
	store    *MemoryStore
	facility model.Facility
	pending  map[uuid.UUID]*model.PlacementContract
}

func (sc *memoryScope) Facility() model.Facility { return sc.facility }

func (sc *memoryScope) GetFacilityActiveContracts(ctx context.Context) ([]capacity.Entry, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	return sc.store.activeEntriesLocked(sc.facility.Code, sc.pending), nil
}

func (sc *memoryScope) GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error) {
	return sc.store.GetEquipmentType(ctx, code)
}

func (sc *memoryScope) GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error) {
	if c, ok := sc.pending[id]; ok {
		return c.Clone(), nil
	}
	return sc.store.GetContract(ctx, id)
}

func (sc *memoryScope) SaveContract(ctx context.Context, c *model.PlacementContract) error {
	if c.FacilityCode != sc.facility.Code {
		return ErrConflict
	}
	sc.pending[c.ID] = c.Clone()
	return nil
}
