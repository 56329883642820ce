package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/facility-placement/internal/capacity"
	"github.com/iliyamo/facility-placement/internal/model"
)

// MySQL error numbers that mean "another transaction got in the way".
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// MySQLStore implements Store on the facilities, equipment_types and
// placement_contracts tables.  WithinFacility opens a transaction and
// locks the facility row with SELECT ... FOR UPDATE, so writers for the
// same facility are serialized even across server processes.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the provided database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle for health checks.
func (r *MySQLStore) DB() *sql.DB { return r.db }

const (
	selectFacility  = `SELECT code, name, standard_area FROM facilities`
	selectEquipment = `SELECT code, name, unit_area FROM equipment_types`
	selectContract  = `SELECT id, contract_number, facility_code, equipment_code, quantity, is_active, created_at, modified_at
	                   FROM placement_contracts`
	selectDetail = `SELECT c.id, c.contract_number, c.facility_code, c.equipment_code, c.quantity, c.is_active,
	                       c.created_at, c.modified_at, f.name, e.name, e.unit_area
	                FROM placement_contracts c
	                JOIN facilities f ON f.code = c.facility_code
	                JOIN equipment_types e ON e.code = c.equipment_code`
	selectActiveEntries = `SELECT c.id, e.unit_area, c.quantity
	                       FROM placement_contracts c
	                       JOIN equipment_types e ON e.code = c.equipment_code
	                       WHERE c.facility_code = ? AND c.is_active = 1`
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *MySQLStore) GetFacility(ctx context.Context, code string) (*model.Facility, error) {
	var f model.Facility
	err := r.db.QueryRowContext(ctx, selectFacility+` WHERE code = ?`, code).Scan(&f.Code, &f.Name, &f.StandardArea)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFacilityNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *MySQLStore) ListFacilities(ctx context.Context) ([]model.Facility, error) {
	rows, err := r.db.QueryContext(ctx, selectFacility+` ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Facility, 0)
	for rows.Next() {
		var f model.Facility
		if err := rows.Scan(&f.Code, &f.Name, &f.StandardArea); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *MySQLStore) GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error) {
	return getEquipmentType(ctx, r.db, code)
}

func (r *MySQLStore) ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error) {
	rows, err := r.db.QueryContext(ctx, selectEquipment+` ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.EquipmentType, 0)
	for rows.Next() {
		var e model.EquipmentType
		if err := rows.Scan(&e.Code, &e.Name, &e.UnitArea); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *MySQLStore) GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error) {
	return getContract(ctx, r.db, id, false)
}

func (r *MySQLStore) GetContractDetail(ctx context.Context, id uuid.UUID) (*ContractDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, selectDetail+` WHERE c.id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListContracts returns contracts newest first, optionally restricted to
// one facility and/or to active contracts.
func (r *MySQLStore) ListContracts(ctx context.Context, filter ContractFilter) ([]ContractDetail, error) {
	q := selectDetail + ` WHERE 1 = 1`
	args := make([]interface{}, 0, 1)
	if filter.FacilityCode != "" {
		q += ` AND c.facility_code = ?`
		args = append(args, filter.FacilityCode)
	}
	if filter.ActiveOnly {
		q += ` AND c.is_active = 1`
	}
	q += ` ORDER BY c.created_at DESC, c.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ContractDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *MySQLStore) GetFacilityActiveContracts(ctx context.Context, code string) ([]capacity.Entry, error) {
	return activeEntries(ctx, r.db, code)
}

// EnsureFacility inserts the facility unless its code already exists.
func (r *MySQLStore) EnsureFacility(ctx context.Context, f model.Facility) error {
	const q = `INSERT IGNORE INTO facilities (code, name, standard_area) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, f.Code, f.Name, f.StandardArea)
	return err
}

// EnsureEquipmentType inserts the equipment type unless its code already exists.
func (r *MySQLStore) EnsureEquipmentType(ctx context.Context, e model.EquipmentType) error {
	const q = `INSERT IGNORE INTO equipment_types (code, name, unit_area) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, e.Code, e.Name, e.UnitArea)
	return err
}

// WithinFacility locks the facility row for the lifetime of a
// transaction and commits only when fn succeeds.  Deadlocks and lock
// wait timeouts are reported as ErrConflict.
func (r *MySQLStore) WithinFacility(ctx context.Context, code string, fn func(ctx context.Context, scope FacilityScope) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateMySQLError(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var f model.Facility
	err = tx.QueryRowContext(ctx, selectFacility+` WHERE code = ? FOR UPDATE`, code).Scan(&f.Code, &f.Name, &f.StandardArea)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFacilityNotFound
		}
		return translateMySQLError(err)
	}
	if err := fn(ctx, &mysqlScope{tx: tx, facility: f}); err != nil {
		return translateMySQLError(err)
	}
	if err := tx.Commit(); err != nil {
		return translateMySQLError(err)
	}
	committed = true
	return nil
}

type mysqlScope struct {
	tx       *sql.Tx
	facility model.Facility
}

func (sc *mysqlScope) Facility() model.Facility { return sc.facility }

func (sc *mysqlScope) GetFacilityActiveContracts(ctx context.Context) ([]capacity.Entry, error) {
	return activeEntries(ctx, sc.tx, sc.facility.Code)
}

func (sc *mysqlScope) GetEquipmentType(ctx context.Context, code string) (*model.EquipmentType, error) {
	return getEquipmentType(ctx, sc.tx, code)
}

// GetContract reads the contract row with FOR UPDATE so the row stays
// pinned until the scope commits.
func (sc *mysqlScope) GetContract(ctx context.Context, id uuid.UUID) (*model.PlacementContract, error) {
	return getContract(ctx, sc.tx, id, true)
}

// SaveContract inserts or updates the contract row.  Only the mutable
// columns are rewritten on update.
func (sc *mysqlScope) SaveContract(ctx context.Context, c *model.PlacementContract) error {
	if c.FacilityCode != sc.facility.Code {
		return ErrConflict
	}
	const q = `INSERT INTO placement_contracts
	               (id, contract_number, facility_code, equipment_code, quantity, is_active, created_at, modified_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = VALUES(quantity), is_active = VALUES(is_active), modified_at = VALUES(modified_at)`
	_, err := sc.tx.ExecContext(ctx, q,
		c.ID.String(), c.ContractNumber, c.FacilityCode, c.EquipmentCode, c.Quantity, c.IsActive,
		c.CreatedAt.UTC(), timeOrNil(c.ModifiedAt),
	)
	return err
}

func getEquipmentType(ctx context.Context, q queryer, code string) (*model.EquipmentType, error) {
	var e model.EquipmentType
	err := q.QueryRowContext(ctx, selectEquipment+` WHERE code = ?`, code).Scan(&e.Code, &e.Name, &e.UnitArea)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

func getContract(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*model.PlacementContract, error) {
	query := selectContract + ` WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanContract(q.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return c, nil
}

func activeEntries(ctx context.Context, q queryer, code string) ([]capacity.Entry, error) {
	rows, err := q.QueryContext(ctx, selectActiveEntries, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []capacity.Entry
	for rows.Next() {
		var e capacity.Entry
		if err := rows.Scan(&e.ContractID, &e.UnitArea, &e.Quantity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanContract(row rowScanner) (*model.PlacementContract, error) {
	var c model.PlacementContract
	var modified sql.NullTime
	if err := row.Scan(&c.ID, &c.ContractNumber, &c.FacilityCode, &c.EquipmentCode, &c.Quantity, &c.IsActive, &c.CreatedAt, &modified); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ModifiedAt = nullTime(modified)
	return &c, nil
}

func scanDetail(row rowScanner) (*ContractDetail, error) {
	var d ContractDetail
	var modified sql.NullTime
	c := &d.Contract
	if err := row.Scan(&c.ID, &c.ContractNumber, &c.FacilityCode, &c.EquipmentCode, &c.Quantity, &c.IsActive,
		&c.CreatedAt, &modified, &d.FacilityName, &d.EquipmentName, &d.UnitArea); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ModifiedAt = nullTime(modified)
	return &d, nil
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// translateMySQLError maps contention failures to ErrConflict and
// leaves everything else untouched.
func translateMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return ErrConflict
		}
	}
	return err
}
