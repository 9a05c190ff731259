package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrConditionNotMet is returned when a conditional update or delete matched
// no rows: the record moved on since it was read.
var ErrConditionNotMet = errors.New("conditional write matched no rows")

// Store groups the repositories over one connection or one transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Items() *ItemRepository {
	return NewItemRepository(s.db)
}

func (s *Store) Tasks() *TaskRepository {
	return NewTaskRepository(s.db)
}

func (s *Store) Stats() *CarrierStatsRepository {
	return NewCarrierStatsRepository(s.db)
}

// Transaction runs fn against repositories bound to a single transaction.
// Any error returned by fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionNotMet
	}
	return nil
}
