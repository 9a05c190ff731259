package model

import (
	"time"

	"surplus-relay.com/surplus-relay/pkg/constants"
)

type Task struct {
	ID                string               `gorm:"primaryKey;size:36" json:"id"`
	ItemID            string               `gorm:"size:36;not null;uniqueIndex" json:"item_id"`
	OwnerID           string               `gorm:"size:64;not null" json:"owner_id"`
	ClaimantID        string               `gorm:"size:64;not null" json:"claimant_id"`
	CarrierID         *string              `gorm:"size:64;index" json:"carrier_id,omitempty"`
	Status            constants.TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IsVolunteer       bool                 `gorm:"not null;default:false" json:"is_volunteer"`
	AssignedAt        *time.Time           `json:"assigned_at,omitempty"`
	PickupTimestamp   *time.Time           `json:"pickup_timestamp,omitempty"`
	DeliveryTimestamp *time.Time           `json:"delivery_timestamp,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (t *Task) HasCarrier() bool {
	return t.CarrierID != nil && *t.CarrierID != ""
}

func (t *Task) CarriedBy(carrierID string) bool {
	return t.HasCarrier() && *t.CarrierID == carrierID
}

func (Task) TableName() string { return "tasks" }
