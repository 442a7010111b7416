package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	devicedomain "fibrodiario-backend/internal/device/domain"
)

// TokenRepository defines the device-token store. The token pool is mutated
// only through this interface; the dispatch path reads tokens via the account
// query and hands eviction candidates back here.
type TokenRepository interface {
	Save(ctx context.Context, token *devicedomain.DeviceToken) error
	FindByToken(ctx context.Context, token string) (*devicedomain.DeviceToken, error)
	Delete(ctx context.Context, token string) error
	DeleteAll(ctx context.Context, tokens []string) (int64, error)
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TouchLastActive(ctx context.Context, tokens []string, at time.Time) error
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Save upserts on the token string. A token registered under another account
// is atomically reassigned to the new owner, so the same token value never
// lives under two accounts.
func (r *tokenRepository) Save(ctx context.Context, token *devicedomain.DeviceToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id", "platform", "last_active_at",
			"device_user_agent", "device_browser", "device_os",
		}),
	}).Create(token).Error
}

func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*devicedomain.DeviceToken, error) {
	var record devicedomain.DeviceToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *tokenRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&devicedomain.DeviceToken{}).Error
}

func (r *tokenRepository) DeleteAll(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&devicedomain.DeviceToken{})
	return result.RowsAffected, result.Error
}

func (r *tokenRepository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("issued_at < ?", cutoff).Delete(&devicedomain.DeviceToken{})
	return result.RowsAffected, result.Error
}

// TouchLastActive refreshes last_active_at after a confirmed delivery.
func (r *tokenRepository) TouchLastActive(ctx context.Context, tokens []string, at time.Time) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&devicedomain.DeviceToken{}).
		Where("token IN ?", tokens).
		Update("last_active_at", at).Error
}
