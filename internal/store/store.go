package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pisowifi-backend/internal/model"
)

// Store is the single owner of all device state. Every balance mutation goes
// through it as one atomic in-database statement, so a request-driven
// operation and a ticker pass racing on the same device compose instead of
// overwriting each other's result.
type Store interface {
	// DB exposes the underlying handle for collaborators that manage their
	// own tables (push subscriptions).
	DB() *gorm.DB

	Exists(ctx context.Context, mac string) (bool, error)
	Get(ctx context.Context, mac string) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Insert(ctx context.Context, device *model.Device) error
	Update(ctx context.Context, device *model.Device) error
	Delete(ctx context.Context, mac string) error

	AddTime(ctx context.Context, mac string, seconds int64) error
	ReduceTime(ctx context.Context, mac string, seconds int64) error
	IsExpired(ctx context.Context, mac string) (bool, error)

	Connect(ctx context.Context, mac string) (*model.Device, bool, error)
	Disconnect(ctx context.Context, mac string) error

	// DecrementActive is the ticker's batch pass: one statement that ages
	// down every active device, clamping at zero and deactivating devices
	// whose balance is exhausted. It returns the number of devices mutated
	// and the hardware addresses that were cut off in this pass.
	DecrementActive(ctx context.Context, seconds int64) (int64, []string, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Exists(ctx context.Context, mac string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("mac_address = ?", mac).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check device %s: %w", mac, err)
	}
	return count > 0, nil
}

func (s *gormStore) Get(ctx context.Context, mac string) (*model.Device, error) {
	var device model.Device
	err := s.db.WithContext(ctx).Where("mac_address = ?", mac).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device %s: %w", mac, err)
	}
	return &device, nil
}

func (s *gormStore) List(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Order("mac_address").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Insert registers a new device. Uniqueness is enforced by the insert itself
// (ON CONFLICT DO NOTHING against the mac_address unique index), not by a
// racing existence pre-check.
func (s *gormStore) Insert(ctx context.Context, device *model.Device) error {
	if device.TimeRemaining < 0 {
		return ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mac_address"}},
		DoNothing: true,
	}).Create(device)
	if res.Error != nil {
		return fmt.Errorf("failed to insert device %s: %w", device.MACAddress, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *gormStore) Update(ctx context.Context, device *model.Device) error {
	if device.TimeRemaining < 0 {
		return ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("mac_address = ?", device.MACAddress).
		Updates(map[string]any{
			"time_remaining": device.TimeRemaining,
			"last_connected": device.LastConnected,
			"is_active":      device.IsActive,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update device %s: %w", device.MACAddress, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) Delete(ctx context.Context, mac string) error {
	res := s.db.WithContext(ctx).Where("mac_address = ?", mac).Delete(&model.Device{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete device %s: %w", mac, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTime credits seconds to the device's balance. The addition happens
// in-database relative to the current balance, never against a value read
// earlier.
func (s *gormStore) AddTime(ctx context.Context, mac string, seconds int64) error {
	if seconds < 0 {
		return ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("mac_address = ?", mac).
		Updates(map[string]any{
			"time_remaining": gorm.Expr("time_remaining + ?", seconds),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to add time to device %s: %w", mac, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReduceTime debits seconds from the device's balance, clamping at zero.
// A device whose balance reaches zero is deactivated in the same statement.
func (s *gormStore) ReduceTime(ctx context.Context, mac string, seconds int64) error {
	if seconds < 0 {
		return ErrInvalidInput
	}
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("mac_address = ?", mac).
		Updates(clampedDebit(seconds))
	if res.Error != nil {
		return fmt.Errorf("failed to reduce time for device %s: %w", mac, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) IsExpired(ctx context.Context, mac string) (bool, error) {
	device, err := s.Get(ctx, mac)
	if err != nil {
		return false, err
	}
	return device.TimeRemaining <= 0, nil
}

// Connect activates the device, creating it on first contact with a zero
// balance. A freshly created device is active but immediately eligible for
// expiry until it is topped up. Connecting an already-active device is
// idempotent.
func (s *gormStore) Connect(ctx context.Context, mac string) (*model.Device, bool, error) {
	now := time.Now().UTC()
	device := model.Device{
		MACAddress:    mac,
		TimeRemaining: 0,
		LastConnected: &now,
		IsActive:      true,
	}
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mac_address"}},
			DoNothing: true,
		}).Create(&device)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			created = true
			return nil
		}
		if err := tx.Model(&model.Device{}).
			Where("mac_address = ?", mac).
			Updates(map[string]any{
				"is_active":      true,
				"last_connected": now,
			}).Error; err != nil {
			return err
		}
		return tx.Where("mac_address = ?", mac).First(&device).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to connect device %s: %w", mac, err)
	}
	return &device, created, nil
}

// Disconnect deactivates the device. Balance and last_connected are left
// untouched; disconnecting an already-inactive device is a no-op.
func (s *gormStore) Disconnect(ctx context.Context, mac string) error {
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("mac_address = ?", mac).
		Updates(map[string]any{"is_active": false})
	if res.Error != nil {
		return fmt.Errorf("failed to disconnect device %s: %w", mac, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DecrementActive(ctx context.Context, seconds int64) (int64, []string, error) {
	var expired []string
	var mutated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Device{}).
			Where("is_active = ? AND time_remaining <= ?", true, seconds).
			Pluck("mac_address", &expired).Error; err != nil {
			return err
		}
		// Covers active devices at zero balance too: their grace window ends
		// here and they are cut off without any balance change.
		res := tx.Model(&model.Device{}).
			Where("is_active = ?", true).
			Updates(clampedDebit(seconds))
		if res.Error != nil {
			return res.Error
		}
		mutated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decrement active devices: %w", err)
	}
	return mutated, expired, nil
}

// clampedDebit is the single place the clamp-at-zero rule is written down:
// a subtraction that would go at or below zero yields exactly zero and
// deactivates the device. Both ReduceTime and the ticker's batch pass use it.
func clampedDebit(seconds int64) map[string]any {
	return map[string]any{
		"time_remaining": gorm.Expr("CASE WHEN time_remaining <= ? THEN 0 ELSE time_remaining - ? END", seconds, seconds),
		"is_active":      gorm.Expr("CASE WHEN time_remaining <= ? THEN ? ELSE is_active END", seconds, false),
	}
}
