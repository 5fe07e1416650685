package distributions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
)

// Repository exposes distribution persistence operations. The partial unique
// index on (device_id) WHERE status = 'active' backs Create; the status guard
// on MarkReturned backs the terminal transition. Those two conditional writes
// are the only concurrency primitives the engine relies on.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a distributions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new distribution. A unique violation on the active-device
// index means a concurrent assign won the race.
func (r *Repository) Create(ctx context.Context, dist *models.Distribution) error {
	return r.db.WithContext(ctx).Create(dist).Error
}

// FindByID loads a distribution joined with its device.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Distribution, error) {
	var dist models.Distribution
	err := r.db.WithContext(ctx).
		Preload("Device").
		First(&dist, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// FindActiveByDevice returns the open distribution for a device, if any.
func (r *Repository) FindActiveByDevice(ctx context.Context, deviceID uuid.UUID) (*models.Distribution, error) {
	var dist models.Distribution
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND status = ?", deviceID, enums.DistributionStatusActive).
		First(&dist).Error
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// MarkReturned performs the terminal transition as a single conditional
// update. It reports false when the row was already returned by someone else.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Distribution{}).
		Where("id = ? AND status = ?", id, enums.DistributionStatusActive).
		Updates(map[string]any{
			"status":          enums.DistributionStatusReturned,
			"returned_at":     at,
			"returned_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a distribution row. Only the engine's device-deletion cascade
// calls this; returned history is never deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Distribution{}, "id = ?", id).Error
}

// ListAll returns every distribution joined with its device, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Distribution, error) {
	return r.list(ctx, nil)
}

// ListByStatus returns distributions in the given state joined with devices.
func (r *Repository) ListByStatus(ctx context.Context, status enums.DistributionStatus) ([]models.Distribution, error) {
	return r.list(ctx, &status)
}

func (r *Repository) list(ctx context.Context, status *enums.DistributionStatus) ([]models.Distribution, error) {
	query := r.db.WithContext(ctx).
		Preload("Device").
		Order("assigned_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var out []models.Distribution
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
