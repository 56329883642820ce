// Package queue defines the contract facts exchanged over the message
// broker and the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/facility-placement/internal/model"
)

// FactKind names the transition a fact reports.
type FactKind string

const (
	FactCreated     FactKind = "created"
	FactUpdated     FactKind = "updated"
	FactDeactivated FactKind = "deactivated"
)

// RoutingKey is the topic routing key the fact is published under.
func (k FactKind) RoutingKey() string { return "contract." + string(k) }

// ContractFact is emitted once per committed placement command.  FactID
// is unique per emission so consumers can drop redeliveries.
type ContractFact struct {
	FactID        string   `json:"fact_id"`
	Kind          FactKind `json:"kind"`
	ContractID    string   `json:"contract_id"`
	ContractNo    string   `json:"contract_number"`
	FacilityCode  string   `json:"facility_code"`
	EquipmentCode string   `json:"equipment_code"`
	Quantity      int      `json:"quantity"`
	IsActive      bool     `json:"is_active"`
	Timestamp     string   `json:"timestamp"`
}

// NewContractFact snapshots c into a fact of the given kind.
func NewContractFact(kind FactKind, c *model.PlacementContract, at time.Time) ContractFact {
	return ContractFact{
		FactID:        uuid.NewString(),
		Kind:          kind,
		ContractID:    c.ID.String(),
		ContractNo:    c.ContractNumber,
		FacilityCode:  c.FacilityCode,
		EquipmentCode: c.EquipmentCode,
		Quantity:      c.Quantity,
		IsActive:      c.IsActive,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}
