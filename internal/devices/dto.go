package devices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
)

// CreateDeviceRequest is the payload accepted by the create endpoint.
type CreateDeviceRequest struct {
	Name         string          `json:"name" validate:"required"`
	SerialNumber string          `json:"serial_number" validate:"required"`
	Model        string          `json:"model" validate:"required"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	Origin       string          `json:"origin" validate:"required,oneof=donation purchased"`
}

// UpdateDeviceRequest carries optional non-assignment field updates. Assignment
// state is owned by the engine and cannot be patched here.
type UpdateDeviceRequest struct {
	Name         *string          `json:"name,omitempty"`
	SerialNumber *string          `json:"serial_number,omitempty"`
	Model        *string          `json:"model,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Origin       *string          `json:"origin,omitempty" validate:"omitempty,oneof=donation purchased"`
}

// DeviceDTO is the flat transport shape without the joined distribution.
type DeviceDTO struct {
	ID                    uuid.UUID          `json:"id"`
	Name                  string             `json:"name"`
	SerialNumber          string             `json:"serial_number"`
	Model                 string             `json:"model"`
	Price                 decimal.Decimal    `json:"price"`
	Origin                enums.DeviceOrigin `json:"origin"`
	Status                enums.DeviceStatus `json:"status"`
	CurrentDistributionID *uuid.UUID         `json:"current_distribution_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func FromModel(d *models.Device) *DeviceDTO {
	if d == nil {
		return nil
	}
	return &DeviceDTO{
		ID:                    d.ID,
		Name:                  d.Name,
		SerialNumber:          d.SerialNumber,
		Model:                 d.Model,
		Price:                 d.Price,
		Origin:                d.Origin,
		Status:                d.Status,
		CurrentDistributionID: d.CurrentDistributionID,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

func (c CreateDeviceRequest) ToModel(origin enums.DeviceOrigin) *models.Device {
	return &models.Device{
		ID:           uuid.New(),
		Name:         c.Name,
		SerialNumber: c.SerialNumber,
		Model:        c.Model,
		Price:        c.Price,
		Origin:       origin,
		Status:       enums.DeviceStatusAvailable,
	}
}
