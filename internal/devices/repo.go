package devices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
)

// Repository exposes device persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a devices repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new device.
func (r *Repository) Create(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// FindByID loads a device with its cached distribution pointer resolved.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	var device models.Device
	err := r.db.WithContext(ctx).
		Preload("CurrentDistribution").
		First(&device, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// List returns every device with the cached distribution pointer resolved.
func (r *Repository) List(ctx context.Context) ([]models.Device, error) {
	var out []models.Device
	err := r.db.WithContext(ctx).
		Preload("CurrentDistribution").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields applies a partial update to non-assignment columns.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// SetAssignment points the device cache at the given distribution. Best-effort:
// the distribution row is authoritative whether or not this lands.
func (r *Repository) SetAssignment(ctx context.Context, deviceID, distributionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{
			"status":                  enums.DeviceStatusAssigned,
			"current_distribution_id": distributionID,
		}).Error
}

// ClearAssignment resets the cache, but only while it still points at the
// expected distribution so a racing assign is not clobbered.
func (r *Repository) ClearAssignment(ctx context.Context, deviceID, distributionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ? AND current_distribution_id = ?", deviceID, distributionID).
		Updates(map[string]any{
			"status":                  enums.DeviceStatusAvailable,
			"current_distribution_id": nil,
		}).Error
}

// ClearStaleStatus resets a device marked assigned whose pointer is already
// gone (crash between the distribution write and the cache write).
func (r *Repository) ClearStaleStatus(ctx context.Context, deviceID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("id = ? AND current_distribution_id IS NULL", deviceID).
		Update("status", enums.DeviceStatusAvailable).Error
}

// Delete removes the device row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Device{}, "id = ?", id).Error
}
