package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shami987/kigali-bn/internal/devices"
	"github.com/shami987/kigali-bn/pkg/db"
	"github.com/shami987/kigali-bn/pkg/db/models"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
	"github.com/shami987/kigali-bn/pkg/logger"
)

// DefaultReturnReason is recorded when a return carries no reason.
const DefaultReturnReason = "No reason provided"

// Engine coordinates the device cache and the authoritative distribution rows.
// The distribution store's two conditional writes (the active-device unique
// index on create, the status guard on return) decide every race; the device's
// status and pointer are a best-effort cache that each operation re-derives
// from the distribution rows before trusting it.
type Engine interface {
	Assign(ctx context.Context, req AssignRequest) (*DeviceView, error)
	ReturnByDevice(ctx context.Context, deviceID uuid.UUID, reason *string) (*ReturnResult, error)
	ReturnByDistribution(ctx context.Context, distributionID uuid.UUID, reason *string) (*ReturnResult, error)
	DeleteDevice(ctx context.Context, deviceID uuid.UUID) error

	GetDevice(ctx context.Context, deviceID uuid.UUID) (*DeviceView, error)
	ListDevices(ctx context.Context) ([]DeviceView, error)
	GetDistribution(ctx context.Context, distributionID uuid.UUID) (*DistributionView, error)
	ListDistributions(ctx context.Context) ([]DistributionView, error)
	ListActive(ctx context.Context) ([]DistributionView, error)
	ListReturned(ctx context.Context) ([]DistributionView, error)
}

type deviceStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
	SetAssignment(ctx context.Context, deviceID, distributionID uuid.UUID) error
	ClearAssignment(ctx context.Context, deviceID, distributionID uuid.UUID) error
	ClearStaleStatus(ctx context.Context, deviceID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type distributionStore interface {
	Create(ctx context.Context, dist *models.Distribution) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Distribution, error)
	FindActiveByDevice(ctx context.Context, deviceID uuid.UUID) (*models.Distribution, error)
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]models.Distribution, error)
	ListByStatus(ctx context.Context, status enums.DistributionStatus) ([]models.Distribution, error)
}

type engine struct {
	devices       deviceStore
	distributions distributionStore
	logg          *logger.Logger
	now           func() time.Time
}

// EngineParams bundles the dependencies required to build the engine.
type EngineParams struct {
	DeviceStore       deviceStore
	DistributionStore distributionStore
	Logger            *logger.Logger
}

// NewEngine constructs the assignment engine.
func NewEngine(params EngineParams) (Engine, error) {
	if params.DeviceStore == nil {
		return nil, fmt.Errorf("device store is required")
	}
	if params.DistributionStore == nil {
		return nil, fmt.Errorf("distribution store is required")
	}
	return &engine{
		devices:       params.DeviceStore,
		distributions: params.DistributionStore,
		logg:          params.Logger,
		now:           time.Now,
	}, nil
}

func (e *engine) Assign(ctx context.Context, req AssignRequest) (*DeviceView, error) {
	holderName := strings.TrimSpace(req.HolderName)
	if holderName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "holder_name is required")
	}
	holderPosition := strings.TrimSpace(req.HolderPosition)
	if holderPosition == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "holder_position is required")
	}

	device, err := e.loadDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	device, err = e.reconcile(ctx, device)
	if err != nil {
		return nil, err
	}

	if device.Assigned() && device.CurrentDistribution != nil {
		holder := device.CurrentDistribution
		details := map[string]any{"holder_name": holder.HolderName}
		if holder.HolderEmail != nil {
			details["holder_email"] = *holder.HolderEmail
		}
		return nil, pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("device already assigned to %s", holder.HolderName),
		).WithDetails(details)
	}

	now := e.now().UTC()
	dist := &models.Distribution{
		ID:             uuid.New(),
		DeviceID:       device.ID,
		HolderName:     holderName,
		HolderEmail:    req.HolderEmail,
		HolderPhone:    req.HolderPhone,
		HolderPosition: holderPosition,
		Status:         enums.DistributionStatusActive,
		AssignedAt:     now,
	}

	// The insert is the linearization point: a concurrent assign for the same
	// device loses here, on the partial unique index.
	if err := e.distributions.Create(ctx, dist); err != nil {
		if db.IsUniqueViolation(err, models.ActiveDistributionConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "device was assigned concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create distribution")
	}

	// Cache write is best-effort. The distribution row is already committed,
	// so a failure here leaves a stale cache that the next reconcile heals.
	if err := e.devices.SetAssignment(ctx, device.ID, dist.ID); err != nil {
		e.warnCacheWrite(ctx, device.ID, "assign.cache_update_failed", err)
	}

	device.Status = enums.DeviceStatusAssigned
	device.CurrentDistributionID = &dist.ID
	device.CurrentDistribution = dist
	return deviceView(device), nil
}

func (e *engine) ReturnByDevice(ctx context.Context, deviceID uuid.UUID, reason *string) (*ReturnResult, error) {
	device, err := e.loadDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	device, err = e.reconcile(ctx, device)
	if err != nil {
		return nil, err
	}

	if !device.Assigned() || device.CurrentDistribution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "device is not distributed")
	}

	return e.finishReturn(ctx, device, device.CurrentDistribution, reason)
}

func (e *engine) ReturnByDistribution(ctx context.Context, distributionID uuid.UUID, reason *string) (*ReturnResult, error) {
	dist, err := e.distributions.FindByID(ctx, distributionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "distribution not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup distribution")
	}
	if !dist.Active() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "distribution already returned")
	}

	return e.finishReturn(ctx, dist.Device, dist, reason)
}

// finishReturn runs the terminal transition. The conditional update is the
// only arbiter: losing it means someone else returned the distribution first.
func (e *engine) finishReturn(ctx context.Context, device *models.Device, dist *models.Distribution, reason *string) (*ReturnResult, error) {
	now := e.now().UTC()
	returnedReason := DefaultReturnReason
	if reason != nil && strings.TrimSpace(*reason) != "" {
		returnedReason = strings.TrimSpace(*reason)
	}

	ok, err := e.distributions.MarkReturned(ctx, dist.ID, now, returnedReason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark distribution returned")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "distribution already returned")
	}

	if err := e.devices.ClearAssignment(ctx, dist.DeviceID, dist.ID); err != nil {
		e.warnCacheWrite(ctx, dist.DeviceID, "return.cache_update_failed", err)
	}

	dist.Status = enums.DistributionStatusReturned
	dist.ReturnedAt = &now
	dist.ReturnedReason = &returnedReason

	result := &ReturnResult{Distribution: distributionView(dist)}
	if device != nil {
		device.Status = enums.DeviceStatusAvailable
		device.CurrentDistributionID = nil
		device.CurrentDistribution = nil
		result.Device = devices.FromModel(device)
	}
	return result, nil
}

func (e *engine) DeleteDevice(ctx context.Context, deviceID uuid.UUID) error {
	device, err := e.loadDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	device, err = e.reconcile(ctx, device)
	if err != nil {
		return err
	}

	// Cascade covers only the open loan. Returned history stays behind as
	// dangling audit rows.
	if device.Assigned() && device.CurrentDistributionID != nil {
		if err := e.distributions.Delete(ctx, *device.CurrentDistributionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete active distribution")
		}
	}

	if err := e.devices.Delete(ctx, device.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete device")
	}
	return nil
}

func (e *engine) GetDevice(ctx context.Context, deviceID uuid.UUID) (*DeviceView, error) {
	device, err := e.loadDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	device, err = e.reconcile(ctx, device)
	if err != nil {
		return nil, err
	}
	return deviceView(device), nil
}

func (e *engine) ListDevices(ctx context.Context) ([]DeviceView, error) {
	list, err := e.devices.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list devices")
	}
	views := make([]DeviceView, 0, len(list))
	for i := range list {
		device, err := e.reconcile(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *deviceView(device))
	}
	return views, nil
}

func (e *engine) GetDistribution(ctx context.Context, distributionID uuid.UUID) (*DistributionView, error) {
	dist, err := e.distributions.FindByID(ctx, distributionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "distribution not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup distribution")
	}
	return distributionView(dist), nil
}

func (e *engine) ListDistributions(ctx context.Context) ([]DistributionView, error) {
	list, err := e.distributions.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list distributions")
	}
	return distributionViews(list), nil
}

func (e *engine) ListActive(ctx context.Context) ([]DistributionView, error) {
	list, err := e.distributions.ListByStatus(ctx, enums.DistributionStatusActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active distributions")
	}
	return distributionViews(list), nil
}

func (e *engine) ListReturned(ctx context.Context) ([]DistributionView, error) {
	list, err := e.distributions.ListByStatus(ctx, enums.DistributionStatusReturned)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list returned distributions")
	}
	return distributionViews(list), nil
}

// reconcile re-derives the device cache from the authoritative distribution
// rows, healing both directions of partial failure: a pointer left at a
// returned or deleted distribution, and an open distribution the cache never
// adopted. Cache writes stay best-effort; the returned model always reflects
// the authoritative state even when a write fails.
func (e *engine) reconcile(ctx context.Context, device *models.Device) (*models.Device, error) {
	active, err := e.distributions.FindActiveByDevice(ctx, device.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve active distribution")
	}

	if active == nil {
		if device.CurrentDistributionID != nil {
			if err := e.devices.ClearAssignment(ctx, device.ID, *device.CurrentDistributionID); err != nil {
				e.warnCacheWrite(ctx, device.ID, "reconcile.clear_failed", err)
			}
		} else if device.Assigned() {
			if err := e.devices.ClearStaleStatus(ctx, device.ID); err != nil {
				e.warnCacheWrite(ctx, device.ID, "reconcile.clear_failed", err)
			}
		}
		device.Status = enums.DeviceStatusAvailable
		device.CurrentDistributionID = nil
		device.CurrentDistribution = nil
		return device, nil
	}

	if device.CurrentDistributionID == nil || *device.CurrentDistributionID != active.ID || !device.Assigned() {
		if err := e.devices.SetAssignment(ctx, device.ID, active.ID); err != nil {
			e.warnCacheWrite(ctx, device.ID, "reconcile.adopt_failed", err)
		}
	}
	device.Status = enums.DeviceStatusAssigned
	device.CurrentDistributionID = &active.ID
	device.CurrentDistribution = active
	return device, nil
}

func (e *engine) loadDevice(ctx context.Context, deviceID uuid.UUID) (*models.Device, error) {
	device, err := e.devices.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup device")
	}
	return device, nil
}

func (e *engine) warnCacheWrite(ctx context.Context, deviceID uuid.UUID, event string, err error) {
	if e.logg == nil {
		return
	}
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"device_id": deviceID.String(),
		"cause":     err.Error(),
	})
	e.logg.Warn(logCtx, event)
}

func distributionViews(list []models.Distribution) []DistributionView {
	views := make([]DistributionView, 0, len(list))
	for i := range list {
		views = append(views, *distributionView(&list[i]))
	}
	return views
}
