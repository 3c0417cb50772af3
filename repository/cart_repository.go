package repository

import (
	"context"
	"time"

	"recovery-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines data-access operations for carts.
type CartRepository interface {
	Create(ctx context.Context, cart *models.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByRemoteID(ctx context.Context, storeID uuid.UUID, remoteID string) (*models.Cart, error)
	Update(ctx context.Context, cart *models.Cart) error

	// FindDormant returns carts still in status none, untouched since the
	// cutoff, that have a customer phone on record.
	FindDormant(ctx context.Context, storeID uuid.UUID, updatedBefore time.Time) ([]models.Cart, error)

	// FindForFollowUp returns notified_first carts whose last notification
	// is older than the cutoff and that have a customer phone on record.
	FindForFollowUp(ctx context.Context, storeID uuid.UUID, notifiedBefore time.Time) ([]models.Cart, error)

	// MarkLostBefore bulk-moves notified_final carts with a last
	// notification older than the cutoff to lost. Returns rows affected.
	MarkLostBefore(ctx context.Context, storeID uuid.UUID, notifiedBefore time.Time) (int64, error)

	CountByStatus(ctx context.Context, storeID uuid.UUID, statuses ...models.RecoveryStatus) (int64, error)

	// RecoveredRevenue sums total minus discount over recovered carts.
	RecoveredRevenue(ctx context.Context, storeID uuid.UUID) (float64, error)

	FindByStore(ctx context.Context, storeID uuid.UUID, status models.RecoveryStatus, page, limit int) ([]models.Cart, int64, error)
}

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository.
func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCartRepository) FindByRemoteID(ctx context.Context, storeID uuid.UUID, remoteID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND remote_cart_id = ?", storeID, remoteID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCartRepository) Update(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Save(cart).Error
}

func (r *GormCartRepository) FindDormant(ctx context.Context, storeID uuid.UUID, updatedBefore time.Time) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND updated_at < ? AND customer_phone <> ''",
			storeID, models.StatusNone, updatedBefore).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *GormCartRepository) FindForFollowUp(ctx context.Context, storeID uuid.UUID, notifiedBefore time.Time) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND last_notified_at < ? AND customer_phone <> ''",
			storeID, models.StatusNotifiedFirst, notifiedBefore).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *GormCartRepository) MarkLostBefore(ctx context.Context, storeID uuid.UUID, notifiedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("store_id = ? AND status = ? AND last_notified_at < ?",
			storeID, models.StatusNotifiedFinal, notifiedBefore).
		Update("status", models.StatusLost)
	return res.RowsAffected, res.Error
}

func (r *GormCartRepository) CountByStatus(ctx context.Context, storeID uuid.UUID, statuses ...models.RecoveryStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("store_id = ? AND status IN ?", storeID, statuses).
		Count(&count).Error
	return count, err
}

func (r *GormCartRepository) RecoveredRevenue(ctx context.Context, storeID uuid.UUID) (float64, error) {
	var revenue float64
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("store_id = ? AND status = ?", storeID, models.StatusRecovered).
		Select("COALESCE(SUM(total - discount_amount), 0)").
		Scan(&revenue).Error
	return revenue, err
}

func (r *GormCartRepository) FindByStore(ctx context.Context, storeID uuid.UUID, status models.RecoveryStatus, page, limit int) ([]models.Cart, int64, error) {
	var carts []models.Cart
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Cart{}).Where("store_id = ?", storeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).Limit(limit).
		Order("updated_at DESC").
		Find(&carts).Error; err != nil {
		return nil, 0, err
	}

	return carts, total, nil
}
