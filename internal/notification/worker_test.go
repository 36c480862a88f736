package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pisowifi-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Device{}, &model.PushSubscription{}))
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, mac, endpoint string) {
	t.Helper()

	device := model.Device{MACAddress: mac}
	require.NoError(t, db.Create(&device).Error)

	sub := model.PushSubscription{Endpoint: endpoint, P256DH: "p256dh-key", Auth: "auth-key"}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Model(&sub).Association("Devices").Append(&device))
}

func pushResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newWorkerDB(t), &webpush.Options{})

	wp.Dispatch("AA:BB:CC:DD:EE:FF")

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_SendsExpiryNotice(t *testing.T) {
	db := newWorkerDB(t)
	seedSubscription(t, db, "AA:BB:CC:DD:EE:FF", "https://push.example.com/sub-1")

	sent := make(chan struct {
		payload  []byte
		endpoint string
	}, 1)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			sent <- struct {
				payload  []byte
				endpoint string
			}{payload, sub.Endpoint}
			return pushResponse(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch("AA:BB:CC:DD:EE:FF")

	select {
	case got := <-sent:
		assert.Equal(t, "https://push.example.com/sub-1", got.endpoint)
		assert.True(t, strings.Contains(string(got.payload), "AA:BB:CC:DD:EE:FF"),
			"payload should name the expired device, got %q", got.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWorkerPool_PrunesGoneSubscription(t *testing.T) {
	db := newWorkerDB(t)
	seedSubscription(t, db, "AA:BB:CC:DD:EE:FF", "https://push.example.com/sub-gone")

	wp := NewWorkerPool(1, db, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return pushResponse(http.StatusGone), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch("AA:BB:CC:DD:EE:FF")

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.PushSubscription{}).Count(&count)
		return count == 0
	}, 2*time.Second, 20*time.Millisecond, "gone subscription should be deleted")
}

func TestWorkerPool_NoSubscriptionsIsANoop(t *testing.T) {
	db := newWorkerDB(t)
	device := model.Device{MACAddress: "11:22:33:44:55:66"}
	require.NoError(t, db.Create(&device).Error)

	called := false
	wp := NewWorkerPool(1, db, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			called = true
			return pushResponse(http.StatusCreated), nil
		},
	}

	wp.sendNotificationsForDevice(context.Background(), "11:22:33:44:55:66")
	assert.False(t, called)
}
