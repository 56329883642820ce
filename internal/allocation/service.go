// Package allocation implements the placement command processor.  Every
// command follows load, evaluate, commit, publish: the facility is held
// exclusively (lock.Locker plus a repository scope) from the first read
// of its active contracts until the write commits, so the sum of active
// contract areas can never exceed the facility's standard area.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/facility-placement/internal/capacity"
	"github.com/iliyamo/facility-placement/internal/lock"
	"github.com/iliyamo/facility-placement/internal/model"
	"github.com/iliyamo/facility-placement/internal/queue"
	"github.com/iliyamo/facility-placement/internal/repository"
	"github.com/iliyamo/facility-placement/internal/utils"
)

// Publisher receives one fact per committed command.  Delivery is best
// effort: a publish error is logged and never undoes the commit.
type Publisher interface {
	PublishContractFact(ctx context.Context, fact queue.ContractFact) error
}

// Options tunes a Processor.  Zero values select the defaults noted on
// each field.
type Options struct {
	// CommandTimeout caps each command, 0 means only the caller's deadline.
	CommandTimeout time.Duration
	// MaxCommitRetries is how often a store conflict is retried, default 3.
	MaxCommitRetries int
	// PublishTimeout bounds a single fact publish, default 5s.
	PublishTimeout time.Duration
	// Now is the clock, default time.Now.
	Now func() time.Time
}

// Processor executes placement commands.  It is safe for concurrent use.
type Processor struct {
	store          repository.Store
	locker         lock.Locker
	publisher      Publisher
	log            *logrus.Logger
	now            func() time.Time
	commandTimeout time.Duration
	publishTimeout time.Duration
	retries        int
}

// NewProcessor wires a Processor.  A nil publisher disables facts.
func NewProcessor(store repository.Store, locker lock.Locker, publisher Publisher, opts Options) *Processor {
	p := &Processor{
		store:          store,
		locker:         locker,
		publisher:      publisher,
		log:            utils.Logger,
		now:            opts.Now,
		commandTimeout: opts.CommandTimeout,
		publishTimeout: opts.PublishTimeout,
		retries:        opts.MaxCommitRetries,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.publishTimeout <= 0 {
		p.publishTimeout = 5 * time.Second
	}
	if p.retries <= 0 {
		p.retries = 3
	}
	return p
}

// CreateContract places cmd.Quantity units of an equipment type in a
// facility and returns the persisted contract.
func (p *Processor) CreateContract(ctx context.Context, cmd CreateContractCommand) (out *model.PlacementContract, err error) {
	defer p.recoverPanic("create", &out, &err)

	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	ctx, cancel := p.commandContext(ctx)
	defer cancel()

	var created *model.PlacementContract
	err = p.inFacility(ctx, cmd.FacilityCode, func(ctx context.Context, scope repository.FacilityScope) error {
		created = nil
		f := scope.Facility()
		eq, err := scope.GetEquipmentType(ctx, cmd.EquipmentCode)
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return equipmentNotFound(cmd.EquipmentCode)
		}
		if err != nil {
			return err
		}
		entries, err := scope.GetFacilityActiveContracts(ctx)
		if err != nil {
			return err
		}
		snap := capacity.Evaluate(f.Code, f.StandardArea, entries)
		required := eq.AreaFor(cmd.Quantity)
		if !capacity.Admit(required, snap.AvailableArea) {
			return insufficientArea(f.Code, required, snap.AvailableArea)
		}

		c := model.NewPlacementContract(f.Code, eq.Code, cmd.Quantity, p.now())
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scope.SaveContract(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		p.logRejected("create", err, logrus.Fields{
			"facility_code":  cmd.FacilityCode,
			"equipment_code": cmd.EquipmentCode,
			"quantity":       cmd.Quantity,
		})
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"contract_id":     created.ID.String(),
		"contract_number": created.ContractNumber,
		"facility_code":   created.FacilityCode,
		"equipment_code":  created.EquipmentCode,
		"quantity":        created.Quantity,
	}).Info("placement contract created")
	p.publish(ctx, queue.FactCreated, created)
	return created.Clone(), nil
}

// UpdateQuantity changes the quantity of an active contract.  Only the
// net area change is capacity checked; shrinking always succeeds.  An
// unchanged quantity returns the contract as is and emits no fact.
func (p *Processor) UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (out *model.PlacementContract, err error) {
	defer p.recoverPanic("update", &out, &err)

	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	ctx, cancel := p.commandContext(ctx)
	defer cancel()

	id, facilityCode, err := p.resolveContract(ctx, cmd.ContractID)
	if err != nil {
		return nil, err
	}

	var (
		updated *model.PlacementContract
		changed bool
	)
	err = p.inFacility(ctx, facilityCode, func(ctx context.Context, scope repository.FacilityScope) error {
		updated, changed = nil, false
		c, err := scope.GetContract(ctx, id)
		if errors.Is(err, repository.ErrContractNotFound) {
			return contractNotFound(cmd.ContractID)
		}
		if err != nil {
			return err
		}
		if !c.IsActive {
			return contractInactive(c.ID.String())
		}
		f := scope.Facility()
		eq, err := scope.GetEquipmentType(ctx, c.EquipmentCode)
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return equipmentNotFound(c.EquipmentCode)
		}
		if err != nil {
			return err
		}
		entries, err := scope.GetFacilityActiveContracts(ctx)
		if err != nil {
			return err
		}
		snap := capacity.Evaluate(f.Code, f.StandardArea, entries)
		delta := capacity.UpdateDelta(eq.UnitArea, c.Quantity, cmd.Quantity)
		if !capacity.Admit(delta, snap.AvailableArea) {
			return insufficientArea(f.Code, delta, snap.AvailableArea)
		}

		ok, err := c.SetQuantity(cmd.Quantity, p.now())
		if errors.Is(err, model.ErrContractInactive) {
			return contractInactive(c.ID.String())
		}
		if err != nil {
			return err
		}
		updated = c
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scope.SaveContract(ctx, c); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		p.logRejected("update", err, logrus.Fields{
			"contract_id":   cmd.ContractID,
			"facility_code": facilityCode,
			"quantity":      cmd.Quantity,
		})
		return nil, err
	}
	if !changed {
		p.log.WithField("contract_id", updated.ID.String()).Debug("quantity unchanged, nothing to update")
		return updated.Clone(), nil
	}

	p.log.WithFields(logrus.Fields{
		"contract_id":   updated.ID.String(),
		"facility_code": updated.FacilityCode,
		"quantity":      updated.Quantity,
	}).Info("placement contract updated")
	p.publish(ctx, queue.FactUpdated, updated)
	return updated.Clone(), nil
}

// DeactivateContract ends an active contract and frees its area.  A
// second deactivation fails with KindAlreadyDeactivated.
func (p *Processor) DeactivateContract(ctx context.Context, cmd DeactivateContractCommand) (out *model.PlacementContract, err error) {
	defer p.recoverPanic("deactivate", &out, &err)

	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	ctx, cancel := p.commandContext(ctx)
	defer cancel()

	id, facilityCode, err := p.resolveContract(ctx, cmd.ContractID)
	if err != nil {
		return nil, err
	}

	var deactivated *model.PlacementContract
	err = p.inFacility(ctx, facilityCode, func(ctx context.Context, scope repository.FacilityScope) error {
		deactivated = nil
		c, err := scope.GetContract(ctx, id)
		if errors.Is(err, repository.ErrContractNotFound) {
			return contractNotFound(cmd.ContractID)
		}
		if err != nil {
			return err
		}
		if err := c.Deactivate(p.now()); err != nil {
			if errors.Is(err, model.ErrContractInactive) {
				return alreadyDeactivated(c.ID.String())
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scope.SaveContract(ctx, c); err != nil {
			return err
		}
		deactivated = c
		return nil
	})
	if err != nil {
		p.logRejected("deactivate", err, logrus.Fields{
			"contract_id":   cmd.ContractID,
			"facility_code": facilityCode,
		})
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"contract_id":   deactivated.ID.String(),
		"facility_code": deactivated.FacilityCode,
	}).Info("placement contract deactivated")
	p.publish(ctx, queue.FactDeactivated, deactivated)
	return deactivated.Clone(), nil
}

// resolveContract finds the facility a contract lives in so the caller
// can lock it.  The contract itself is re-read inside the scope.
func (p *Processor) resolveContract(ctx context.Context, raw string) (uuid.UUID, string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", contractNotFound(raw)
	}
	c, err := p.store.GetContract(ctx, id)
	if errors.Is(err, repository.ErrContractNotFound) {
		return uuid.Nil, "", contractNotFound(raw)
	}
	if err != nil {
		return uuid.Nil, "", p.classify(ctx, err, "")
	}
	return id, c.FacilityCode, nil
}

// inFacility runs fn under the facility lock and a store scope, retrying
// store conflicts up to p.retries times.
func (p *Processor) inFacility(ctx context.Context, facilityCode string, fn func(ctx context.Context, scope repository.FacilityScope) error) error {
	release, err := p.locker.Lock(ctx, lock.FacilityKey(facilityCode))
	if err != nil {
		if ctx.Err() != nil {
			return deadlineExceeded(ctx.Err())
		}
		if errors.Is(err, lock.ErrNotAcquired) {
			return concurrencyConflict(err)
		}
		return unexpected(err)
	}
	defer release()

	var lastErr error
	for attempt := 1; attempt <= p.retries+1; attempt++ {
		err := p.store.WithinFacility(ctx, facilityCode, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return p.classify(ctx, err, facilityCode)
		}
		lastErr = err
		p.log.WithFields(logrus.Fields{
			"facility_code": facilityCode,
			"attempt":       attempt,
		}).Warn("store conflict, retrying command")
	}
	return concurrencyConflict(lastErr)
}

// classify turns store and context failures into tagged errors.  Errors
// that are already tagged pass through.
func (p *Processor) classify(ctx context.Context, err error, facilityCode string) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	switch {
	case errors.Is(err, repository.ErrFacilityNotFound):
		return facilityNotFound(facilityCode)
	case errors.Is(err, repository.ErrConflict):
		return concurrencyConflict(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return deadlineExceeded(err)
	case ctx.Err() != nil:
		return deadlineExceeded(ctx.Err())
	}
	return unexpected(err)
}

func (p *Processor) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.commandTimeout > 0 {
		return context.WithTimeout(ctx, p.commandTimeout)
	}
	return context.WithCancel(ctx)
}

// publish emits a fact for a committed contract.  It runs detached from
// the command's cancellation since the write already happened.
func (p *Processor) publish(ctx context.Context, kind queue.FactKind, c *model.PlacementContract) {
	if p.publisher == nil {
		return
	}
	fact := queue.NewContractFact(kind, c, p.now())
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.publishTimeout)
	defer cancel()
	if err := p.publisher.PublishContractFact(pctx, fact); err != nil {
		p.log.WithFields(logrus.Fields{
			"fact_id":     fact.FactID,
			"kind":        fact.Kind,
			"contract_id": fact.ContractID,
		}).WithError(err).Warn("publish contract fact failed")
	}
}

func (p *Processor) logRejected(op string, err error, fields logrus.Fields) {
	entry := p.log.WithFields(fields).WithField("op", op)
	var tagged *Error
	if errors.As(err, &tagged) {
		entry = entry.WithField("code", tagged.Code)
	}
	switch KindOf(err) {
	case KindUnexpected:
		entry.WithError(err).Error("placement command failed")
	case KindConcurrencyConflict:
		entry.WithError(err).Warn("placement command conflicted")
	default:
		entry.Info("placement command rejected: " + err.Error())
	}
}

func (p *Processor) recoverPanic(op string, out **model.PlacementContract, err *error) {
	r := recover()
	if r == nil {
		return
	}
	p.log.WithField("op", op).Errorf("panic in placement command: %v", r)
	*out = nil
	*err = unexpected(fmt.Errorf("panic: %v", r))
}

func deadlineExceeded(err error) *Error {
	return &Error{
		Kind:    KindUnexpected,
		Code:    CodeUnexpected,
		Message: "The command deadline passed before commit",
		Err:     err,
	}
}
