package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "surplus-relay.com/surplus-relay/pkg/models"
)

const decrementActive = "CASE WHEN carrier_stats.active_deliveries > 0 THEN carrier_stats.active_deliveries - 1 ELSE 0 END"

// CarrierStatsRepository mutates volunteer counters with upserts and SQL
// arithmetic only; rows are never read, modified and written back.
type CarrierStatsRepository struct {
	db *gorm.DB
}

func NewCarrierStatsRepository(db *gorm.DB) *CarrierStatsRepository {
	return &CarrierStatsRepository{db: db}
}

func (r *CarrierStatsRepository) IncrementActive(ctx context.Context, carrierID string) error {
	row := model.CarrierStats{CarrierID: carrierID, ActiveDeliveries: 1, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "carrier_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"active_deliveries": gorm.Expr("carrier_stats.active_deliveries + 1"),
			"updated_at":        row.UpdatedAt,
		}),
	}).Create(&row).Error
}

func (r *CarrierStatsRepository) DecrementActive(ctx context.Context, carrierID string) error {
	return r.db.WithContext(ctx).Model(&model.CarrierStats{}).
		Where("carrier_id = ?", carrierID).
		Updates(map[string]interface{}{
			"active_deliveries": gorm.Expr(decrementActive),
			"updated_at":        time.Now().UTC(),
		}).Error
}

// DeliveryCredit is what one completed volunteer delivery adds.
type DeliveryCredit struct {
	PeopleHelped int
	Points       int
	At           time.Time
}

// RecordDelivery applies one completed delivery in a single upsert. The streak
// grows when the previous delivery was on the prior UTC day, holds on the same
// day and restarts otherwise.
func (r *CarrierStatsRepository) RecordDelivery(ctx context.Context, carrierID string, credit DeliveryCredit) error {
	at := credit.At.UTC()
	today := at.Format(time.DateOnly)
	yesterday := at.AddDate(0, 0, -1).Format(time.DateOnly)

	row := model.CarrierStats{
		CarrierID:       carrierID,
		TotalDeliveries: 1,
		PeopleHelped:    credit.PeopleHelped,
		Points:          credit.Points,
		Streak:          1,
		LastDeliveryDay: today,
		UpdatedAt:       at,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "carrier_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_deliveries":  gorm.Expr("carrier_stats.total_deliveries + 1"),
			"active_deliveries": gorm.Expr(decrementActive),
			"people_helped":     gorm.Expr("carrier_stats.people_helped + ?", credit.PeopleHelped),
			"points":            gorm.Expr("carrier_stats.points + ?", credit.Points),
			"streak": gorm.Expr(
				"CASE WHEN carrier_stats.last_delivery_day = ? THEN carrier_stats.streak "+
					"WHEN carrier_stats.last_delivery_day = ? THEN carrier_stats.streak + 1 ELSE 1 END",
				today, yesterday),
			"last_delivery_day": today,
			"updated_at":        at,
		}),
	}).Create(&row).Error
}

// AwardBadge adds badge to the carrier's set and reports whether it was new.
func (r *CarrierStatsRepository) AwardBadge(ctx context.Context, carrierID, badge string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CarrierBadge{CarrierID: carrierID, Badge: badge, EarnedAt: at.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Get returns the carrier's stats with badges. A carrier with no recorded
// activity gets zero stats.
func (r *CarrierStatsRepository) Get(ctx context.Context, carrierID string) (*model.CarrierStats, error) {
	var stats model.CarrierStats
	err := r.db.WithContext(ctx).First(&stats, "carrier_id = ?", carrierID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = model.CarrierStats{CarrierID: carrierID}
	} else if err != nil {
		return nil, err
	}

	var badges []model.CarrierBadge
	if err := r.db.WithContext(ctx).
		Where("carrier_id = ?", carrierID).
		Order("earned_at asc, badge asc").
		Find(&badges).Error; err != nil {
		return nil, err
	}

	stats.Badges = make([]string, 0, len(badges))
	for _, b := range badges {
		stats.Badges = append(stats.Badges, b.Badge)
	}

	return &stats, nil
}
