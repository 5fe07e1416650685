package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shami987/kigali-bn/pkg/enums"
)

// ActiveDistributionConstraint names the partial unique index guaranteeing at
// most one active distribution per device. The index is the linearization
// point for racing assigns; repositories match violations against this name.
const ActiveDistributionConstraint = "distributions_active_device_idx"

// Distribution is the authoritative loan record. Status flips from active to
// returned exactly once; ReturnedAt and ReturnedReason are written in the same
// conditional update so a returned row always carries its timestamp.
type Distribution struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DeviceID       uuid.UUID                `gorm:"column:device_id;type:uuid;not null"`
	Device         *Device                  `gorm:"foreignKey:DeviceID"`
	HolderName     string                   `gorm:"column:holder_name;not null"`
	HolderEmail    *string                  `gorm:"column:holder_email"`
	HolderPhone    *string                  `gorm:"column:holder_phone"`
	HolderPosition string                   `gorm:"column:holder_position;not null"`
	Status         enums.DistributionStatus `gorm:"column:status;type:text;not null;default:active"`
	AssignedAt     time.Time                `gorm:"column:assigned_at;not null"`
	ReturnedAt     *time.Time               `gorm:"column:returned_at"`
	ReturnedReason *string                  `gorm:"column:returned_reason"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the loan is still open.
func (d *Distribution) Active() bool {
	return d != nil && d.Status == enums.DistributionStatusActive
}
