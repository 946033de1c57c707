package implementation

import (
	"context"

	"sloth-wake-be/internal/model"
	"sloth-wake-be/internal/repository/contract"

	"gorm.io/gorm"
)

type WakeHistoryRepositoryImpl struct {
	db *gorm.DB
}

func NewWakeHistoryRepository(db *gorm.DB) contract.WakeHistoryRepository {
	return &WakeHistoryRepositoryImpl{db: db}
}

func (r *WakeHistoryRepositoryImpl) Insert(ctx context.Context, history *model.WakeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *WakeHistoryRepositoryImpl) FindBySessionID(ctx context.Context, sessionID string) ([]model.WakeHistory, error) {
	var rows []model.WakeHistory
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC").
		Find(&rows).Error
	return rows, err
}
