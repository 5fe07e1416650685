package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/internal/devices"
	"github.com/shami987/kigali-bn/internal/distributions"
	"github.com/shami987/kigali-bn/pkg/db"
	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
)

func setupFlowTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	devicesTable := `
CREATE TABLE IF NOT EXISTS devices (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  serial_number TEXT NOT NULL UNIQUE,
  model TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  origin TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  current_distribution_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	distributionsTable := `
CREATE TABLE IF NOT EXISTS distributions (
  id TEXT PRIMARY KEY,
  device_id TEXT NOT NULL,
  holder_name TEXT NOT NULL,
  holder_email TEXT,
  holder_phone TEXT,
  holder_position TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  assigned_at DATETIME NOT NULL,
  returned_at DATETIME,
  returned_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	activeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS distributions_active_device_idx
  ON distributions (device_id)
  WHERE status = 'active';`

	require.NoError(t, conn.Exec(devicesTable).Error)
	require.NoError(t, conn.Exec(distributionsTable).Error)
	require.NoError(t, conn.Exec(activeIndex).Error)
	return conn
}

func setupFlowEngine(t *testing.T) (Engine, *devices.Repository, *distributions.Repository) {
	t.Helper()
	conn := setupFlowTestDB(t)
	devRepo := devices.NewRepository(conn)
	distRepo := distributions.NewRepository(conn)
	eng, err := NewEngine(EngineParams{
		DeviceStore:       devRepo,
		DistributionStore: distRepo,
	})
	require.NoError(t, err)
	return eng, devRepo, distRepo
}

func seedFlowDevice(t *testing.T, repo *devices.Repository, serial string) *models.Device {
	t.Helper()
	device := &models.Device{
		ID:           uuid.New(),
		Name:         "Dell Latitude",
		SerialNumber: serial,
		Model:        "L5520",
		Price:        decimal.NewFromInt(850),
		Origin:       enums.DeviceOriginPurchased,
		Status:       enums.DeviceStatusAvailable,
	}
	require.NoError(t, repo.Create(context.Background(), device))
	return device
}

func TestFlowAssignReturnRoundTrip(t *testing.T) {
	eng, devRepo, _ := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	email := "alice@example.com"
	view, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderEmail:    &email,
		HolderPosition: "Intern",
	})
	require.NoError(t, err)
	require.Equal(t, enums.DeviceStatusAssigned, view.Status)
	require.NotNil(t, view.CurrentDistribution)
	assert.Equal(t, "Alice", view.CurrentDistribution.HolderName)
	assert.Nil(t, view.CurrentDistribution.ReturnedAt)

	got, err := eng.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DeviceStatusAssigned, got.Status)
	require.NotNil(t, got.CurrentDistribution)
	assert.Equal(t, "Alice", got.CurrentDistribution.HolderName)
	assert.Equal(t, "Intern", got.CurrentDistribution.HolderPosition)

	reason := "role ended"
	result, err := eng.ReturnByDevice(ctx, device.ID, &reason)
	require.NoError(t, err)
	require.NotNil(t, result.Distribution.ReturnedAt)
	assert.Equal(t, reason, *result.Distribution.ReturnedReason)

	got, err = eng.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeviceStatusAvailable, got.Status)
	assert.Nil(t, got.CurrentDistributionID)
	assert.Nil(t, got.CurrentDistribution)

	returned, err := eng.ListReturned(ctx)
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, result.Distribution.ID, returned[0].ID)
	assert.NotNil(t, returned[0].ReturnedAt)
}

func TestFlowSecondAssignBlockedUntilReturn(t *testing.T) {
	eng, devRepo, _ := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	_, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
	})
	require.NoError(t, err)

	_, err = eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Bob",
		HolderPosition: "Engineer",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Contains(t, err.Error(), "Alice")

	reason := "role ended"
	_, err = eng.ReturnByDevice(ctx, device.ID, &reason)
	require.NoError(t, err)

	view, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Bob",
		HolderPosition: "Engineer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", view.CurrentDistribution.HolderName)
}

func TestFlowActiveIndexRejectsSecondWriter(t *testing.T) {
	_, devRepo, distRepo := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	first := &models.Distribution{
		ID:             uuid.New(),
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
		Status:         enums.DistributionStatusActive,
		AssignedAt:     time.Now().UTC(),
	}
	require.NoError(t, distRepo.Create(ctx, first))

	// A second open row for the same device must lose on the partial index,
	// regardless of what any in-process check concluded.
	second := &models.Distribution{
		ID:             uuid.New(),
		DeviceID:       device.ID,
		HolderName:     "Bob",
		HolderPosition: "Engineer",
		Status:         enums.DistributionStatusActive,
		AssignedAt:     time.Now().UTC(),
	}
	err := distRepo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, models.ActiveDistributionConstraint))

	// A returned row does not collide with the open one.
	now := time.Now().UTC()
	reason := "history"
	third := &models.Distribution{
		ID:             uuid.New(),
		DeviceID:       device.ID,
		HolderName:     "Carol",
		HolderPosition: "Manager",
		Status:         enums.DistributionStatusReturned,
		AssignedAt:     now.Add(-time.Hour),
		ReturnedAt:     &now,
		ReturnedReason: &reason,
	}
	require.NoError(t, distRepo.Create(ctx, third))
}

func TestFlowReturnIsTerminal(t *testing.T) {
	eng, devRepo, _ := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	_, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
	})
	require.NoError(t, err)

	result, err := eng.ReturnByDevice(ctx, device.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultReturnReason, *result.Distribution.ReturnedReason)
	firstReturnedAt := *result.Distribution.ReturnedAt

	_, err = eng.ReturnByDistribution(ctx, result.Distribution.ID, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// The terminal fields were not overwritten by the losing call.
	reloaded, err := eng.GetDistribution(ctx, result.Distribution.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ReturnedAt)
	assert.WithinDuration(t, firstReturnedAt, *reloaded.ReturnedAt, time.Second)
}

func TestFlowStaleCacheHealedOnRead(t *testing.T) {
	eng, devRepo, distRepo := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	view, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
	})
	require.NoError(t, err)

	// Flip the distribution behind the engine's back, leaving the device
	// cache pointing at a returned row (crash between the two writes).
	ok, err := distRepo.MarkReturned(ctx, view.CurrentDistribution.ID, time.Now().UTC(), "returned elsewhere")
	require.NoError(t, err)
	require.True(t, ok)

	healed, err := eng.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeviceStatusAvailable, healed.Status)
	assert.Nil(t, healed.CurrentDistributionID)

	stored, err := devRepo.FindByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeviceStatusAvailable, stored.Status)
	assert.Nil(t, stored.CurrentDistributionID)
}

func TestFlowOrphanedDistributionAdoptedOnRead(t *testing.T) {
	eng, devRepo, distRepo := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	// The authoritative write landed but the cache write never did.
	orphan := &models.Distribution{
		ID:             uuid.New(),
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
		Status:         enums.DistributionStatusActive,
		AssignedAt:     time.Now().UTC(),
	}
	require.NoError(t, distRepo.Create(ctx, orphan))

	view, err := eng.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DeviceStatusAssigned, view.Status)
	require.NotNil(t, view.CurrentDistributionID)
	assert.Equal(t, orphan.ID, *view.CurrentDistributionID)

	stored, err := devRepo.FindByID(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentDistributionID)
	assert.Equal(t, orphan.ID, *stored.CurrentDistributionID)
}

func TestFlowDeleteDeviceCascadesOpenLoanKeepsHistory(t *testing.T) {
	eng, devRepo, _ := setupFlowEngine(t)
	ctx := context.Background()
	device := seedFlowDevice(t, devRepo, "SN-1")

	_, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
	})
	require.NoError(t, err)
	history, err := eng.ReturnByDevice(ctx, device.ID, nil)
	require.NoError(t, err)

	active, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       device.ID,
		HolderName:     "Bob",
		HolderPosition: "Engineer",
	})
	require.NoError(t, err)

	require.NoError(t, eng.DeleteDevice(ctx, device.ID))

	_, err = eng.GetDevice(ctx, device.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = eng.GetDistribution(ctx, active.CurrentDistribution.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	// Returned history survives as a dangling audit row.
	kept, err := eng.GetDistribution(ctx, history.Distribution.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.Device)
	assert.NotNil(t, kept.ReturnedAt)
}

func TestFlowListViews(t *testing.T) {
	eng, devRepo, _ := setupFlowEngine(t)
	ctx := context.Background()
	first := seedFlowDevice(t, devRepo, "SN-1")
	second := seedFlowDevice(t, devRepo, "SN-2")

	_, err := eng.Assign(ctx, AssignRequest{
		DeviceID:       first.ID,
		HolderName:     "Alice",
		HolderPosition: "Intern",
	})
	require.NoError(t, err)
	_, err = eng.Assign(ctx, AssignRequest{
		DeviceID:       second.ID,
		HolderName:     "Bob",
		HolderPosition: "Engineer",
	})
	require.NoError(t, err)
	_, err = eng.ReturnByDevice(ctx, second.ID, nil)
	require.NoError(t, err)

	active, err := eng.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Alice", active[0].HolderName)
	require.NotNil(t, active[0].Device)
	assert.Equal(t, "SN-1", active[0].Device.SerialNumber)

	returned, err := eng.ListReturned(ctx)
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, "Bob", returned[0].HolderName)

	all, err := eng.ListDistributions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deviceViews, err := eng.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, deviceViews, 2)
	for _, view := range deviceViews {
		if view.SerialNumber == "SN-1" {
			require.NotNil(t, view.CurrentDistribution)
			assert.Equal(t, "Alice", view.CurrentDistribution.HolderName)
		} else {
			assert.Nil(t, view.CurrentDistribution)
		}
	}
}
