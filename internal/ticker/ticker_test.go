package ticker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pisowifi-backend/config"
	"pisowifi-backend/internal/model"
	"pisowifi-backend/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Device{}))

	cfg := &config.Config{}
	cfg.Ticker.Enabled = true
	cfg.Ticker.IntervalSeconds = 1
	cfg.Ticker.DecrementSeconds = 1
	cfg.Ticker.Interval = time.Second

	s := store.NewGormStore(db)
	return NewService(cfg, s, nil), s
}

// Full accounting lifecycle: first contact, top-up, then age down to cutoff.
func TestTickLifecycle(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	device, created, err := s.Connect(ctx, "AA:BB")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), device.TimeRemaining)
	assert.True(t, device.IsActive)

	require.NoError(t, s.AddTime(ctx, "AA:BB", 10))
	device, err = s.Get(ctx, "AA:BB")
	require.NoError(t, err)
	assert.Equal(t, int64(10), device.TimeRemaining)

	require.NoError(t, svc.TickOnce(ctx))
	device, err = s.Get(ctx, "AA:BB")
	require.NoError(t, err)
	assert.Equal(t, int64(9), device.TimeRemaining)
	assert.True(t, device.IsActive)

	for i := 0; i < 9; i++ {
		require.NoError(t, svc.TickOnce(ctx))
	}
	device, err = s.Get(ctx, "AA:BB")
	require.NoError(t, err)
	assert.Equal(t, int64(0), device.TimeRemaining)
	assert.False(t, device.IsActive)

	// Further ticks are a no-op for an already cut-off device.
	require.NoError(t, svc.TickOnce(ctx))
	device, err = s.Get(ctx, "AA:BB")
	require.NoError(t, err)
	assert.Equal(t, int64(0), device.TimeRemaining)
	assert.False(t, device.IsActive)
}

func TestTickSkipsInactiveDevices(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	_, _, err := s.Connect(ctx, "CC:DD")
	require.NoError(t, err)
	require.NoError(t, s.AddTime(ctx, "CC:DD", 100))
	require.NoError(t, s.Disconnect(ctx, "CC:DD"))

	require.NoError(t, svc.TickOnce(ctx))

	device, err := s.Get(ctx, "CC:DD")
	require.NoError(t, err)
	assert.Equal(t, int64(100), device.TimeRemaining, "inactive devices do not consume time")
	assert.False(t, device.IsActive)
}

// A freshly connected device with no balance gets one tick of grace before
// the ticker cuts it off.
func TestTickEndsGraceWindow(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	_, _, err := s.Connect(ctx, "EE:FF")
	require.NoError(t, err)

	require.NoError(t, svc.TickOnce(ctx))

	device, err := s.Get(ctx, "EE:FF")
	require.NoError(t, err)
	assert.Equal(t, int64(0), device.TimeRemaining)
	assert.False(t, device.IsActive)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc, _ := newTestService(t)
	svc.cfg.Ticker.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ticker did not shut down after context cancellation")
	}
}

func TestRunDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	svc.cfg.Ticker.Enabled = false

	assert.NoError(t, svc.Run(context.Background()))
}
