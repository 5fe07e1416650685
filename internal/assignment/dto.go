package assignment

import "github.com/google/uuid"

// AssignRequest is the payload accepted by the assign endpoint.
type AssignRequest struct {
	DeviceID       uuid.UUID `json:"device_id" validate:"required"`
	HolderName     string    `json:"holder_name" validate:"required"`
	HolderEmail    *string   `json:"holder_email,omitempty" validate:"omitempty,email"`
	HolderPhone    *string   `json:"holder_phone,omitempty"`
	HolderPosition string    `json:"holder_position" validate:"required"`
}

// ReturnByDeviceRequest is the payload accepted by the return-by-device endpoint.
type ReturnByDeviceRequest struct {
	DeviceID uuid.UUID `json:"device_id" validate:"required"`
	Reason   *string   `json:"reason,omitempty"`
}

// ReturnByDistributionRequest carries the optional reason for a direct return.
type ReturnByDistributionRequest struct {
	Reason *string `json:"reason,omitempty"`
}
