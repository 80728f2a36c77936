package repository

import (
	"context"

	"gorm.io/gorm"

	"libris/internal/model"
)

// CirculationEventRepository defines audit log persistence operations.
type CirculationEventRepository interface {
	Create(ctx context.Context, event *model.CirculationEvent) error
	ListByBorrow(ctx context.Context, borrowID uint) ([]model.CirculationEvent, error)
}

type circulationEventRepository struct {
	db *gorm.DB
}

// NewCirculationEventRepository creates a new audit log repository.
func NewCirculationEventRepository(db *gorm.DB) CirculationEventRepository {
	return &circulationEventRepository{db: db}
}

// Create creates a new audit entry.
func (r *circulationEventRepository) Create(ctx context.Context, event *model.CirculationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByBorrow lists the entries of one borrow record, oldest first.
func (r *circulationEventRepository) ListByBorrow(ctx context.Context, borrowID uint) ([]model.CirculationEvent, error) {
	var events []model.CirculationEvent
	if err := r.db.WithContext(ctx).Where("borrow_id = ?", borrowID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
