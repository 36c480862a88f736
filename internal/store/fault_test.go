package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var errStoreDown = errors.New("connection refused")

// A persistence fault during the batch pass must surface as an error, not be
// absorbed: the ticker treats it as fatal.
func TestDecrementActivePersistenceFault(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "mac_address" FROM "devices"`)).
		WillReturnError(errStoreDown)
	mock.ExpectRollback()

	_, _, err := s.DecrementActive(context.Background(), 1)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Faults on request-driven mutations abort the operation and come back as
// neither NotFound, AlreadyExists, nor InvalidInput.
func TestAddTimePersistenceFault(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "devices"`)).
		WillReturnError(errStoreDown)
	mock.ExpectRollback()

	err := s.AddTime(context.Background(), "AA:BB:CC:DD:EE:FF", 60)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}
