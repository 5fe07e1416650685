package devices

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
)

type stubRepo struct {
	createErr error
	updateErr error
	device    *models.Device
	findErr   error

	created    *models.Device
	lastFields map[string]any
}

func (s *stubRepo) Create(_ context.Context, device *models.Device) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = device
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Device, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.device, nil
}

func (s *stubRepo) UpdateFields(_ context.Context, _ uuid.UUID, fields map[string]any) error {
	s.lastFields = fields
	return s.updateErr
}

func mustService(t *testing.T, repo repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s got %s", code, typed.Code())
	}
}

func TestCreateSetsDefaults(t *testing.T) {
	repo := &stubRepo{}
	svc := mustService(t, repo)

	dto, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:         "Dell Latitude",
		SerialNumber: "  SN-100  ",
		Model:        "L5520",
		Price:        decimal.NewFromInt(850),
		Origin:       "donation",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.DeviceStatusAvailable {
		t.Fatalf("expected new device available, got %s", dto.Status)
	}
	if dto.SerialNumber != "SN-100" {
		t.Fatalf("expected trimmed serial, got %q", dto.SerialNumber)
	}
	if repo.created == nil || repo.created.ID == uuid.Nil {
		t.Fatal("expected device persisted with generated id")
	}
}

func TestCreateRejectsBadOrigin(t *testing.T) {
	svc := mustService(t, &stubRepo{})

	_, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:         "Dell",
		SerialNumber: "SN-1",
		Model:        "L5520",
		Price:        decimal.NewFromInt(1),
		Origin:       "leased",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := mustService(t, &stubRepo{})

	_, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:         "Dell",
		SerialNumber: "SN-1",
		Model:        "L5520",
		Price:        decimal.NewFromInt(-5),
		Origin:       "purchased",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateMapsDuplicateSerial(t *testing.T) {
	repo := &stubRepo{createErr: fmt.Errorf(`duplicate key value violates unique constraint "devices_serial_number_idx"`)}
	svc := mustService(t, repo)

	_, err := svc.Create(context.Background(), CreateDeviceRequest{
		Name:         "Dell",
		SerialNumber: "SN-1",
		Model:        "L5520",
		Price:        decimal.NewFromInt(1),
		Origin:       "purchased",
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateRequiresAField(t *testing.T) {
	svc := mustService(t, &stubRepo{})

	_, err := svc.Update(context.Background(), uuid.New(), UpdateDeviceRequest{})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateUnknownDevice(t *testing.T) {
	repo := &stubRepo{findErr: gorm.ErrRecordNotFound}
	svc := mustService(t, repo)

	name := "Renamed"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateDeviceRequest{Name: &name})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo := &stubRepo{device: &models.Device{
		ID:           uuid.New(),
		Name:         "Renamed",
		SerialNumber: "SN-1",
		Model:        "L5520",
		Origin:       enums.DeviceOriginPurchased,
		Status:       enums.DeviceStatusAvailable,
	}}
	svc := mustService(t, repo)

	name := "Renamed"
	dto, err := svc.Update(context.Background(), repo.device.ID, UpdateDeviceRequest{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(repo.lastFields) != 1 {
		t.Fatalf("expected a single patched field, got %v", repo.lastFields)
	}
	if repo.lastFields["name"] != "Renamed" {
		t.Fatalf("expected name patch, got %v", repo.lastFields)
	}
	if dto.Name != "Renamed" {
		t.Fatalf("expected reloaded name, got %q", dto.Name)
	}
}
