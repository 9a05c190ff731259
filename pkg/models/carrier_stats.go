package model

import "time"

type CarrierStats struct {
	CarrierID        string    `gorm:"primaryKey;size:64" json:"carrier_id"`
	TotalDeliveries  int       `gorm:"not null;default:0" json:"total_deliveries"`
	ActiveDeliveries int       `gorm:"not null;default:0" json:"active_deliveries"`
	PeopleHelped     int       `gorm:"not null;default:0" json:"people_helped"`
	Points           int       `gorm:"not null;default:0" json:"points"`
	Streak           int       `gorm:"not null;default:0" json:"streak"`
	LastDeliveryDay  string    `gorm:"size:10;not null;default:''" json:"last_delivery_day,omitempty"`
	Badges           []string  `gorm:"-" json:"badges"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CarrierBadge struct {
	CarrierID string    `gorm:"primaryKey;size:64" json:"carrier_id"`
	Badge     string    `gorm:"primaryKey;size:64" json:"badge"`
	EarnedAt  time.Time `json:"earned_at"`
}

func (CarrierStats) TableName() string { return "carrier_stats" }

func (CarrierBadge) TableName() string { return "carrier_badges" }
