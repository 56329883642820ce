package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/facility-placement/internal/queue"
	"github.com/iliyamo/facility-placement/internal/utils"
)

// LogPublisher writes facts to the application log.  It stands in for
// the broker when RABBITMQ_URL is not configured.
type LogPublisher struct {
	log *logrus.Logger
}

// NewLogPublisher returns a LogPublisher on utils.Logger.
func NewLogPublisher() *LogPublisher { return &LogPublisher{log: utils.Logger} }

// PublishContractFact logs fact at info level and never fails.
func (p *LogPublisher) PublishContractFact(_ context.Context, fact queue.ContractFact) error {
	p.log.WithFields(logrus.Fields{
		"fact_id":        fact.FactID,
		"kind":           fact.Kind,
		"contract_id":    fact.ContractID,
		"facility_code":  fact.FacilityCode,
		"equipment_code": fact.EquipmentCode,
		"quantity":       fact.Quantity,
	}).Info("contract fact")
	return nil
}
