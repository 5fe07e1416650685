package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shami987/kigali-bn/pkg/enums"
)

// Device represents one tracked physical unit. Status and
// CurrentDistributionID are a denormalized cache of the authoritative
// distribution state: they are written only by the assignment engine and may
// briefly disagree with the distributions table after a partial failure.
type Device struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string             `gorm:"column:name;not null"`
	SerialNumber          string             `gorm:"column:serial_number;type:text;not null;uniqueIndex:devices_serial_number_idx"`
	Model                 string             `gorm:"column:model;not null"`
	Price                 decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	Origin                enums.DeviceOrigin `gorm:"column:origin;type:text;not null"`
	Status                enums.DeviceStatus `gorm:"column:status;type:text;not null;default:available"`
	CurrentDistributionID *uuid.UUID         `gorm:"column:current_distribution_id;type:uuid"`
	CurrentDistribution   *Distribution      `gorm:"foreignKey:CurrentDistributionID"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Assigned reports the cached assignment state.
func (d *Device) Assigned() bool {
	return d != nil && d.Status == enums.DeviceStatusAssigned
}
