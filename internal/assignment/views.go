package assignment

import (
	"time"

	"github.com/google/uuid"

	"github.com/shami987/kigali-bn/internal/devices"
	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
)

// DistributionView is the transport shape of a loan record, joined with its
// device when the caller asked for one. Device is nil for history rows whose
// device was deleted.
type DistributionView struct {
	ID             uuid.UUID                `json:"id"`
	DeviceID       uuid.UUID                `json:"device_id"`
	Device         *devices.DeviceDTO       `json:"device,omitempty"`
	HolderName     string                   `json:"holder_name"`
	HolderEmail    *string                  `json:"holder_email,omitempty"`
	HolderPhone    *string                  `json:"holder_phone,omitempty"`
	HolderPosition string                   `json:"holder_position"`
	Status         enums.DistributionStatus `json:"status"`
	AssignedAt     time.Time                `json:"assigned_at"`
	ReturnedAt     *time.Time               `json:"returned_at,omitempty"`
	ReturnedReason *string                  `json:"returned_reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// DeviceView is a device joined with its active distribution, if any.
type DeviceView struct {
	devices.DeviceDTO
	CurrentDistribution *DistributionView `json:"current_distribution,omitempty"`
}

// ReturnResult reports the terminal transition and the refreshed device cache.
type ReturnResult struct {
	Distribution *DistributionView  `json:"distribution"`
	Device       *devices.DeviceDTO `json:"device,omitempty"`
}

func distributionView(d *models.Distribution) *DistributionView {
	if d == nil {
		return nil
	}
	return &DistributionView{
		ID:             d.ID,
		DeviceID:       d.DeviceID,
		Device:         devices.FromModel(d.Device),
		HolderName:     d.HolderName,
		HolderEmail:    d.HolderEmail,
		HolderPhone:    d.HolderPhone,
		HolderPosition: d.HolderPosition,
		Status:         d.Status,
		AssignedAt:     d.AssignedAt,
		ReturnedAt:     d.ReturnedAt,
		ReturnedReason: d.ReturnedReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func deviceView(d *models.Device) *DeviceView {
	if d == nil {
		return nil
	}
	view := &DeviceView{DeviceDTO: *devices.FromModel(d)}
	if d.CurrentDistribution != nil {
		view.CurrentDistribution = distributionView(d.CurrentDistribution)
	}
	return view
}
