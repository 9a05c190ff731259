package model

import (
	"time"

	"surplus-relay.com/surplus-relay/pkg/constants"
)

type Item struct {
	ID             string               `gorm:"primaryKey;size:36" json:"id"`
	OwnerID        string               `gorm:"size:64;not null;index" json:"owner_id"`
	Title          string               `gorm:"not null" json:"title"`
	Category       string               `gorm:"size:64;not null" json:"category"`
	Quantity       int                  `gorm:"not null" json:"quantity"`
	Unit           string               `gorm:"size:32;not null" json:"unit"`
	Location       string               `gorm:"not null" json:"location"`
	Status         constants.ItemStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ClaimantID     *string              `gorm:"size:64;index" json:"claimant_id,omitempty"`
	CarrierID      *string              `gorm:"size:64" json:"carrier_id,omitempty"`
	Feedback       string               `gorm:"not null;default:''" json:"feedback,omitempty"`
	FeedbackRating int                  `gorm:"not null;default:0" json:"feedback_rating,omitempty"`
	ExpiresAt      *time.Time           `gorm:"index" json:"expires_at,omitempty"`
	ConfirmedAt    *time.Time           `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// DeliveryRecord is the read-only view handed to the receipt subsystem.
type DeliveryRecord struct {
	ItemID      string     `json:"item_id"`
	Delivered   bool       `json:"delivered"`
	DonorID     string     `json:"donor_id"`
	RecipientID string     `json:"recipient_id,omitempty"`
	CarrierID   string     `json:"carrier_id,omitempty"`
	SelfDeliver bool       `json:"self_delivery"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func (Item) TableName() string { return "items" }

// Overdue reports whether the item's expiry has passed at now. Items without
// an expiry never go overdue.
func (i *Item) Overdue(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}
