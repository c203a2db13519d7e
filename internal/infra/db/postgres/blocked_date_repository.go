package postgres

import (
	"context"

	"gorm.io/gorm"

	domainavailability "rentbox/internal/domain/availability"
	"rentbox/internal/domain/shared/daterange"
)

type BlockedDateRepository struct {
	db *gorm.DB
}

func NewBlockedDateRepository(db *gorm.DB) *BlockedDateRepository {
	return &BlockedDateRepository{db: db}
}

func (r *BlockedDateRepository) List(ctx context.Context) ([]domainavailability.BlockedDate, error) {
	var rows []blockedDateModel
	if err := conn(ctx, r.db).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domainavailability.BlockedDate, 0, len(rows))
	for _, m := range rows {
		out = append(out, domainavailability.BlockedDate{Date: dateOf(m.Date), Reason: m.Reason, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

func (r *BlockedDateRepository) Add(ctx context.Context, b domainavailability.BlockedDate) error {
	err := conn(ctx, r.db).Create(&blockedDateModel{Date: b.Date.Time(), Reason: b.Reason, CreatedAt: b.CreatedAt.UTC()}).Error
	if isUniqueViolation(err) {
		return domainavailability.ErrDateAlreadyBlocked
	}
	return err
}

func (r *BlockedDateRepository) Remove(ctx context.Context, d daterange.Date) error {
	res := conn(ctx, r.db).Where("date = ?", d.String()).Delete(&blockedDateModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainavailability.ErrBlockedDateNotFound
	}
	return nil
}

var _ domainavailability.BlockedDateRepository = (*BlockedDateRepository)(nil)
