package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	devicedomain "fibrodiario-backend/internal/device/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&devicedomain.DeviceToken{}))
	return db
}

func token(id, accountID, value string, issuedAt time.Time) *devicedomain.DeviceToken {
	return &devicedomain.DeviceToken{
		ID:           id,
		AccountID:    accountID,
		Token:        value,
		Platform:     devicedomain.PlatformWeb,
		IssuedAt:     issuedAt,
		LastActiveAt: issuedAt,
	}
}

func TestSaveAndFindByToken(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, token("id-1", "alice", "tok-1", now)))

	found, err := repo.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.AccountID)

	missing, err := repo.FindByToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveReassignsExistingToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, token("id-1", "alice", "shared", now)))

	reassigned := token("id-2", "bruno", "shared", now.Add(time.Hour))
	reassigned.Fingerprint = devicedomain.Fingerprint{Browser: "Firefox", OS: "Linux"}
	require.NoError(t, repo.Save(ctx, reassigned))

	var count int64
	require.NoError(t, db.Model(&devicedomain.DeviceToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "upsert on the token column, never a second row")

	found, err := repo.FindByToken(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "bruno", found.AccountID)
	assert.Equal(t, "Firefox", found.Fingerprint.Browser)
	assert.Equal(t, "id-1", found.ID, "the original row survives the reassignment")
}

func TestDeleteAll(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, token("id-1", "alice", "tok-1", now)))
	require.NoError(t, repo.Save(ctx, token("id-2", "alice", "tok-2", now)))
	require.NoError(t, repo.Save(ctx, token("id-3", "bruno", "tok-3", now)))

	deleted, err := repo.DeleteAll(ctx, []string{"tok-1", "tok-3", "never-existed"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	survivor, err := repo.FindByToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.NotNil(t, survivor)

	deleted, err = repo.DeleteAll(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteIssuedBefore(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, token("id-1", "alice", "ancient", now.Add(-61*24*time.Hour))))
	require.NoError(t, repo.Save(ctx, token("id-2", "alice", "fresh", now)))

	evicted, err := repo.DeleteIssuedBefore(ctx, now.Add(-devicedomain.StaleAfter))
	require.NoError(t, err)
	assert.EqualValues(t, 1, evicted)

	gone, err := repo.FindByToken(ctx, "ancient")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTouchLastActive(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	ctx := context.Background()
	issued := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, token("id-1", "alice", "tok-1", issued)))

	delivered := issued.Add(30 * 24 * time.Hour)
	require.NoError(t, repo.TouchLastActive(ctx, []string{"tok-1"}, delivered))

	found, err := repo.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.LastActiveAt.Equal(delivered))
	assert.True(t, found.IssuedAt.Equal(issued), "delivery confirmation never resets issuance")

	require.NoError(t, repo.TouchLastActive(ctx, nil, delivered))
}
