package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	domainreservation "rentbox/internal/domain/reservation"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ID) (*domainreservation.Reservation, error) {
	return r.first(ctx, "id = ?", string(id))
}

func (r *ReservationRepository) ByPaymentReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	if reference == "" {
		return nil, domainreservation.ErrNotFound
	}
	return r.first(ctx, "payment_reference = ?", reference)
}

func (r *ReservationRepository) first(ctx context.Context, query string, args ...any) (*domainreservation.Reservation, error) {
	var m reservationModel
	if err := conn(ctx, r.db).Where(query, args...).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate()
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, statuses ...domainreservation.Status) ([]*domainreservation.Reservation, error) {
	q := conn(ctx, r.db).Model(&reservationModel{}).Order("created_at ASC, id ASC")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		q = q.Where("status IN ?", values)
	}
	var rows []reservationModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainreservation.Reservation, 0, len(rows))
	for _, m := range rows {
		res, err := m.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Save inserts version 0 and otherwise updates guarded by the version column.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	m := newReservationModel(res)
	m.Version = res.Version + 1
	db := conn(ctx, r.db)
	if res.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			if isUniqueViolation(err) {
				return domainreservation.ErrConcurrentUpdate
			}
			return err
		}
		res.Version = m.Version
		return nil
	}
	result := db.Model(&reservationModel{}).
		Where("id = ? AND version = ?", m.ID, res.Version).
		Updates(map[string]any{
			"customer_name":     m.CustomerName,
			"customer_email":    m.CustomerEmail,
			"customer_phone":    m.CustomerPhone,
			"notes":             m.Notes,
			"start_date":        m.StartDate,
			"end_date":          m.EndDate,
			"total_cents":       m.TotalCents,
			"currency":          m.Currency,
			"payment_reference": m.PaymentReference,
			"payment_intent":    m.PaymentIntent,
			"status":            m.Status,
			"updated_at":        m.UpdatedAt,
			"version":           m.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainreservation.ErrConcurrentUpdate
	}
	res.Version = m.Version
	return nil
}

// isUniqueViolation matches SQLSTATE 23505 without importing the pgx error types.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
