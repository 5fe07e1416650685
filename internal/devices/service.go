package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/pkg/db"
	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
)

// Service covers the inventory operations that do not touch assignment state.
// Assign, return, and delete flow through the assignment engine instead.
type Service interface {
	Create(ctx context.Context, req CreateDeviceRequest) (*DeviceDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateDeviceRequest) (*DeviceDTO, error)
}

type repository interface {
	Create(ctx context.Context, device *models.Device) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type service struct {
	repo repository
}

// NewService constructs the inventory service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("devices repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, req CreateDeviceRequest) (*DeviceDTO, error) {
	origin, err := enums.ParseDeviceOrigin(req.Origin)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid origin")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	device := req.ToModel(origin)
	device.SerialNumber = strings.TrimSpace(device.SerialNumber)
	if device.SerialNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial_number is required")
	}

	if err := s.repo.Create(ctx, device); err != nil {
		if db.IsUniqueViolation(err, "devices_serial_number_idx") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "serial number already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create device")
	}
	return FromModel(device), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateDeviceRequest) (*DeviceDTO, error) {
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.SerialNumber != nil {
		serial := strings.TrimSpace(*req.SerialNumber)
		if serial == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial_number cannot be empty")
		}
		fields["serial_number"] = serial
	}
	if req.Model != nil {
		fields["model"] = *req.Model
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		fields["price"] = *req.Price
	}
	if req.Origin != nil {
		origin, err := enums.ParseDeviceOrigin(*req.Origin)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid origin")
		}
		fields["origin"] = origin
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup device")
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if db.IsUniqueViolation(err, "devices_serial_number_idx") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "serial number already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update device")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload device")
	}
	return FromModel(updated), nil
}
